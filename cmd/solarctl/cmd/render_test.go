package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"solarbooks/internal/core"
	"solarbooks/internal/grouping"
	"solarbooks/internal/statement"
)

func TestRenderStatement(t *testing.T) {
	st := statement.Statement{
		Period:  statement.Semiannual,
		Columns: []string{"H1", "H2"},
		Sections: map[statement.Section][]statement.Row{
			statement.Revenue: {{Label: "Installations", Values: []core.Money{core.Cents(100000), core.Cents(50000)}, Total: core.Cents(150000)}},
		},
		Metrics: []statement.Metrics{
			{NetRevenue: core.Cents(100000), Margin: decimal.NewFromInt(100)},
			{NetRevenue: core.Cents(50000), Margin: decimal.NewFromInt(100)},
		},
		Total: statement.Metrics{NetRevenue: core.Cents(150000), Margin: decimal.NewFromInt(100)},
	}

	var buf bytes.Buffer
	if err := renderStatement(&buf, st); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{"H1", "H2", "Total", "revenue", "Installations", "1000.00", "1500.00", "100.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "taxes") {
		t.Errorf("empty sections should be skipped:\n%s", out)
	}
}

func TestRenderView(t *testing.T) {
	view := []grouping.ViewEntry{
		{Kind: grouping.ViewSingle, Entry: core.LedgerEntry{ID: "e001", Description: "Panel order", Amount: core.Cents(2500), Status: core.Pending, DueDate: core.NewDate(2024, 3, 10)}},
		{Kind: grouping.ViewAggregate, Invoice: &grouping.GroupedInvoice{
			ID:         "inv-visa-2024-03",
			Amount:     core.Cents(9000),
			Status:     core.Pending,
			DueDate:    core.NewDate(2024, 3, 15),
			CardNames:  []string{"Visa"},
			Members:    make([]core.LedgerEntry, 3),
			Suggestion: "",
		}},
	}

	tests := []struct {
		name    string
		only    bool
		want    []string
		notWant []string
	}{
		{name: "all", want: []string{"e001", "Panel order", "inv-visa-2024-03", "Visa (3 items)", "90.00"}},
		{name: "invoices only", only: true, want: []string{"inv-visa-2024-03"}, notWant: []string{"e001"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := renderView(&buf, view, tt.only); err != nil {
				t.Fatal(err)
			}
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out, w) {
					t.Errorf("output should not contain %q:\n%s", w, out)
				}
			}
		})
	}
}
