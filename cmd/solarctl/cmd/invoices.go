package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"solarbooks/internal/grouping"
)

var invoicesOnly bool

var invoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "List the ledger with card expenses grouped into invoices",
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		defer ledger.Close()

		view, err := ledger.ListView(cmd.Context())
		if err != nil {
			return fmt.Errorf("list view: %w", err)
		}
		return renderView(cmd.OutOrStdout(), view, invoicesOnly)
	},
}

func init() {
	invoicesCmd.Flags().BoolVar(&invoicesOnly, "only", false, "hide entries that are not card invoices")
}

func renderView(w io.Writer, view []grouping.ViewEntry, onlyInvoices bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDUE\tSTATUS\tAMOUNT\tDETAIL")
	for _, v := range view {
		if v.Kind == grouping.ViewAggregate {
			inv := v.Invoice
			detail := strings.Join(inv.CardNames, ", ") + fmt.Sprintf(" (%d items)", len(inv.Members))
			if inv.Suggestion != "" {
				detail += " unmatched, closest card " + inv.Suggestion
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", inv.ID, inv.DueDate, inv.Status, inv.Amount, detail)
			continue
		}
		if onlyInvoices {
			continue
		}
		e := v.Entry
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.DueDate, e.Status, e.Amount, e.Description)
	}
	return tw.Flush()
}
