package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/attunefin/attune-go/cmd/attune/commands"
	"github.com/attunefin/attune-go/config"
	"github.com/attunefin/attune-go/logger"
)

var rootCmd = &cobra.Command{
	Use:   "attune",
	Short: "Attune - personal finance from the command line",
	Long: `Attune - financial therapy for your transactions.

The attune CLI talks to an Attune backend: upload bank statements and follow
their import live, browse transactions, review categorization suggestions,
and pull analytics.

Examples:
  attune upload march.csv        # Import a statement, follow progress live
  attune watch job-8f3a          # Re-attach to a running import
  attune transactions ls         # List transactions
  attune analytics               # Monthly roll-up
  attune config show             # Show effective configuration`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := logger.Initialize(cfg.Logging.JSON); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if level := logLevel(cfg.Logging.Level, verbosity); level != zapcore.InfoLevel {
			if err := logger.SetLevel(level); err != nil {
				return fmt.Errorf("failed to set log level: %w", err)
			}
		}
		return nil
	},
}

// logLevel resolves the effective log level from the configured level name
// and the repeatable -v flag. Any -v wins over the configured level;
// unknown level names fall back to info.
func logLevel(configured string, verbosity int) zapcore.Level {
	if verbosity > 0 {
		return zapcore.DebugLevel
	}
	if configured != "" {
		if level, err := zapcore.ParseLevel(configured); err == nil {
			return level
		}
	}
	return zapcore.InfoLevel
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity")

	rootCmd.AddCommand(commands.UploadCmd)
	rootCmd.AddCommand(commands.WatchCmd)
	rootCmd.AddCommand(commands.TransactionsCmd)
	rootCmd.AddCommand(commands.AnalyticsCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
