package commands

import (
	"encoding/json"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/attunefin/attune-go/internal/version"
)

// VersionCmd shows build info and optionally checks server compatibility.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show attune version information",
	Long:  `Display version, build time, commit hash, and platform information for the attune binary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		info := version.Get()

		if jsonOutput {
			output, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(output))
		} else {
			fmt.Println(info.String())
			fmt.Printf("Platform: %s\n", info.Platform)
			fmt.Printf("Go: %s\n", info.GoVersion)
		}

		checkServer, _ := cmd.Flags().GetBool("check-server")
		if !checkServer {
			return nil
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newAPIClient(cfg)
		if err != nil {
			return err
		}
		health, err := client.Health(cmd.Context())
		if err != nil {
			return err
		}

		if err := version.CheckServerCompatibility(health.Version); err != nil {
			pterm.Warning.Printf("Server %s at %s: %v\n", health.Version, cfg.Server.BaseURL, err)
			return nil
		}
		pterm.Success.Printf("Server %s at %s is compatible\n", health.Version, cfg.Server.BaseURL)
		return nil
	},
}

func init() {
	VersionCmd.Flags().BoolP("json", "j", false, "Output version info as JSON")
	VersionCmd.Flags().Bool("check-server", false, "Check compatibility with the configured backend")
}
