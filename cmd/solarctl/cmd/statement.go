package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"solarbooks/internal/statement"
)

var (
	stmtPeriod      string
	stmtYear        int
	stmtGroupCards  bool
	stmtManagerial  bool
	stmtIncludeOpen bool
)

var statementCmd = &cobra.Command{
	Use:   "statement",
	Short: "Print the income statement",
	Long: `Print the income statement for the chosen period granularity.

Example:
  solarctl statement --period monthly --year 2024 --group-cards`,
	RunE: func(cmd *cobra.Command, args []string) error {
		period, err := statement.ParsePeriod(stmtPeriod)
		if err != nil {
			return err
		}
		ledger, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		defer ledger.Close()

		st, err := ledger.Statement(cmd.Context(), statement.Options{
			Period:                 period,
			Year:                   stmtYear,
			GroupCardExpenses:      stmtGroupCards,
			GroupByManagerialGroup: stmtManagerial,
		}, !stmtIncludeOpen)
		if err != nil {
			return fmt.Errorf("build statement: %w", err)
		}
		return renderStatement(cmd.OutOrStdout(), st)
	},
}

func init() {
	statementCmd.Flags().StringVar(&stmtPeriod, "period", "monthly", "monthly, quarterly, semiannual or annual")
	statementCmd.Flags().IntVar(&stmtYear, "year", 0, "restrict to one year (0 keeps every year)")
	statementCmd.Flags().BoolVar(&stmtGroupCards, "group-cards", false, "collapse card expenses into one row per card")
	statementCmd.Flags().BoolVar(&stmtManagerial, "managerial", false, "label rows by managerial group")
	statementCmd.Flags().BoolVar(&stmtIncludeOpen, "include-pending", false, "include entries that are not settled yet")
}

var statementSections = []statement.Section{
	statement.Revenue,
	statement.Taxes,
	statement.CostOfGoods,
	statement.OperatingExpenses,
}

func renderStatement(w io.Writer, st statement.Statement) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	header := "\t"
	for _, c := range st.Columns {
		header += c + "\t"
	}
	fmt.Fprintln(tw, header+"Total\t")

	for _, sec := range statementSections {
		rows := st.Rows(sec)
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s\t\n", sec)
		for _, row := range rows {
			line := "  " + row.Label + "\t"
			for _, v := range row.Values {
				line += v.String() + "\t"
			}
			fmt.Fprintln(tw, line+row.Total.String()+"\t")
		}
	}

	metric := func(label string, pick func(statement.Metrics) string) {
		line := label + "\t"
		for _, m := range st.Metrics {
			line += pick(m) + "\t"
		}
		fmt.Fprintln(tw, line+pick(st.Total)+"\t")
	}
	metric("Net revenue", func(m statement.Metrics) string { return m.NetRevenue.String() })
	metric("Gross profit", func(m statement.Metrics) string { return m.GrossProfit.String() })
	metric("Net profit", func(m statement.Metrics) string { return m.NetProfit.String() })
	metric("Margin %", func(m statement.Metrics) string { return m.Margin.StringFixed(2) })

	return tw.Flush()
}
