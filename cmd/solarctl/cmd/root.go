// Package cmd provides the solarctl commands.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"solarbooks/internal/cli"
	"solarbooks/internal/log"
	"solarbooks/internal/services"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "solarctl",
	Short: "Inspect and maintain the solarbooks ledger",
	Long: `solarctl works directly against the configured ledger store.

Example:
  solarctl statement --period quarterly --year 2024
  solarctl invoices
  solarctl backfill-tags`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cli.LoadEnvFile()
		if cfgFile != "" {
			return os.Setenv("SOLARBOOKS_CONFIG", cfgFile)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is environment only)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(statementCmd)
	rootCmd.AddCommand(invoicesCmd)
	rootCmd.AddCommand(backfillCmd)
}

// openLedger wires a ledger service without an event publisher; the CLI
// never feeds the mirror directly.
func openLedger(ctx context.Context) (*services.LedgerService, error) {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	logger := log.New(log.Config{Level: log.ParseLevel(level), Component: log.ComponentCLI, Output: os.Stderr})
	log.SetDefault(logger)

	res, _, err := cli.OpenBackend(ctx, logger, cfg, false)
	if err != nil {
		return nil, err
	}
	catalogs := &services.FileCatalog{Path: cfg.CatalogFile}
	return services.NewLedgerService(res.Store, catalogs, res.Publisher), nil
}
