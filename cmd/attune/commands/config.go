package commands

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/attunefin/attune-go/config"
	"github.com/attunefin/attune-go/errors"
)

// ConfigCmd groups configuration subcommands.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit attune configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Print the effective configuration after merging defaults, the user
file (~/.attune/attune.toml), any project attune.toml, and ATTUNE_*
environment variables. The auth token is redacted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return errors.Wrap(err, "failed to load configuration")
		}

		shown := *cfg
		if shown.Server.AuthToken != "" {
			shown.Server.AuthToken = redactToken(shown.Server.AuthToken)
		}

		data, err := toml.Marshal(shown)
		if err != nil {
			return errors.Wrap(err, "failed to render configuration")
		}
		fmt.Print(string(data))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in the user config file",
	Long: `Write one configuration value to ~/.attune/attune.toml, e.g.:

  attune config set server.base_url https://api.attune.fin
  attune config set progress.max_reconnect_attempts 3`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.UserConfigPath()
		if path == "" {
			return errors.New("could not determine home directory")
		}

		v := config.GetViper()
		v.Set(args[0], args[1])

		config.Reset()
		cfg, err := config.Load()
		if err != nil {
			return errors.Wrap(err, "failed to reload configuration")
		}
		if err := config.Save(cfg, path); err != nil {
			return err
		}
		fmt.Printf("Set %s in %s\n", args[0], path)
		return nil
	},
}

// redactToken keeps just enough of the token to recognize it.
func redactToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}

func init() {
	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configSetCmd)
}
