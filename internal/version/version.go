// Package version exposes build information and the client's server
// compatibility check.
package version

import (
	"fmt"
	"runtime"

	"github.com/Masterminds/semver/v3"

	"github.com/attunefin/attune-go/errors"
)

// Build information. These variables are set at build time via ldflags.
var (
	// CommitHash is the git commit hash when the binary was built
	CommitHash = "dev"

	// BuildTime is when the binary was built
	BuildTime = "unknown"

	// Version is the semantic version (if tagged)
	Version = "dev"
)

// MinServerVersion is the oldest backend this client speaks to. Older
// servers lack the idempotency-key and progress-stream endpoints.
const MinServerVersion = "1.3.0"

// Info contains version and build information
type Info struct {
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
	Version    string `json:"version"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// Get returns the current version information
func Get() Info {
	return Info{
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		Version:    Version,
		GoVersion:  runtime.Version(),
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns a human-readable version string
func (i Info) String() string {
	return fmt.Sprintf("attune %s (commit %s, built %s)", i.Version, i.CommitHash, i.BuildTime)
}

// Short returns a short version string with just the commit hash
func (i Info) Short() string {
	if len(i.CommitHash) >= 7 {
		return i.CommitHash[:7]
	}
	return i.CommitHash
}

// CheckServerCompatibility verifies a backend-reported version against
// MinServerVersion. A "v" prefix and pre-release suffixes are tolerated.
func CheckServerCompatibility(serverVersion string) error {
	server, err := semver.NewVersion(serverVersion)
	if err != nil {
		return errors.Wrapf(err, "unparseable server version %q", serverVersion)
	}

	constraint, err := semver.NewConstraint(">= " + MinServerVersion)
	if err != nil {
		return errors.Wrap(err, "invalid minimum version constraint")
	}

	if !constraint.Check(server) {
		return errors.Newf("server version %s is older than the minimum supported %s; upgrade the backend or use an older client",
			server, MinServerVersion)
	}
	return nil
}
