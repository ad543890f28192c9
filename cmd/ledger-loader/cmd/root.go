// Package cmd provides CLI commands for ledger-loader.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var debug bool

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ledger-loader",
	Short: "Bulk load and verify ledger history",
	Long: `ledger-loader replays exported ledger history through the same engine
write path the live API uses, so every plan state machine and idempotency
rule applies to replayed traffic unchanged.

It supports:
- Seeding accounts from a JSON export
- Replaying flattened hold/commit/rollback records
- Recomputing account balances for verification

The store is selected by the same environment variables ledgerd reads
(DATABASE_DRIVER, DATABASE_URL, BOLT_PATH). With the postgres driver the
schema must already be migrated; ledgerd applies migrations at startup.

Example:
  ledger-loader load --accounts accounts.json --records records.json
  ledger-loader verify --account acct-1`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logLevel := slog.LevelInfo
		if debug {
			logLevel = slog.LevelDebug
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(verifyCmd)
}
