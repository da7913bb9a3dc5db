package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill-tags",
	Short: "Fill structured card fields from description tags",
	Long: `Older card entries only carry the "[holder (card)]" tag in their
description. backfill-tags copies it into the structured card fields.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		defer ledger.Close()

		n, err := ledger.BackfillCardTags(cmd.Context())
		if err != nil {
			return fmt.Errorf("backfill card tags: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %d entries\n", n)
		return nil
	},
}
