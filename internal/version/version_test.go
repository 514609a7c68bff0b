package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	info := Get()

	assert.Equal(t, CommitHash, info.CommitHash)
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
}

func TestInfo_Short(t *testing.T) {
	info := Info{CommitHash: "abcdef1234567890"}
	assert.Equal(t, "abcdef1", info.Short())

	info.CommitHash = "dev"
	assert.Equal(t, "dev", info.Short())
}

func TestCheckServerCompatibility(t *testing.T) {
	tests := []struct {
		name    string
		version string
		wantErr bool
	}{
		{"exact minimum", MinServerVersion, false},
		{"newer patch", "1.3.9", false},
		{"newer minor", "1.4.2", false},
		{"newer major", "2.0.0", false},
		{"v prefix tolerated", "v1.5.0", false},
		{"older minor", "1.2.9", true},
		{"older major", "0.9.0", true},
		{"garbage", "not-a-version", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckServerCompatibility(tt.version)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
