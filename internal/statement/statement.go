// Package statement builds the income statement (DRE) matrix from a snapshot
// of ledger entries.
//
// Entries are bucketed by the month of their payment date, or due date when
// unpaid, and classified into one of four sections. Derived lines are
// computed per column and again for the Total column from the summed raw
// values, so the Total margin is never an average of column margins.
package statement

import (
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"solarbooks/internal/core"
)

// CardRowLabel is the row that collects card expenses when they are grouped.
const CardRowLabel = "Credit card"

const (
	Revenue Section = iota
	Taxes
	CostOfGoods
	OperatingExpenses
)

// Section is a block of rows in the statement.
type Section int

func (s Section) String() string {
	switch s {
	case Revenue:
		return "revenue"
	case Taxes:
		return "taxes"
	case CostOfGoods:
		return "cost_of_goods"
	case OperatingExpenses:
		return "operating_expenses"
	}
	return "unknown"
}

var ErrUnknownPeriod = errors.New("unknown period")

// CategoryReader resolves categories by id.
type CategoryReader interface {
	Get(id string) (core.Category, bool)
}

type Options struct {
	Period                 Period
	GroupCardExpenses      bool
	GroupByManagerialGroup bool // relabels income rows only
	Year                   int // 0 keeps every year
}

type Row struct {
	Label  string
	Values []core.Money
	Total  core.Money
}

// Metrics are the derived lines of one column.
type Metrics struct {
	GrossRevenue      core.Money
	Taxes             core.Money
	NetRevenue        core.Money
	CostOfGoods       core.Money
	GrossProfit       core.Money
	OperatingExpenses core.Money
	NetProfit         core.Money
	Margin            decimal.Decimal // percent of gross revenue, 2 places
}

type Statement struct {
	Period  Period
	Year    int
	Columns []string
	// Rows per section, labels sorted. Every row has a value for every column.
	Sections map[Section][]Row
	Metrics  []Metrics
	Total    Metrics
}

// Rows returns the rows of a section.
func (s Statement) Rows(sec Section) []Row { return s.Sections[sec] }

// Build computes the statement. It trusts its input: callers that want a true
// income statement pass only settled entries. Cancelled entries are always
// left out.
func Build(entries []core.LedgerEntry, categories CategoryReader, opts Options) (Statement, error) {
	if opts.Period == "" {
		opts.Period = Monthly
	}
	cols := opts.Period.Columns()
	if len(cols) == 0 {
		return Statement{}, ErrUnknownPeriod
	}

	// section -> label -> column sums
	cells := map[Section]map[string][]core.Money{}
	for _, sec := range []Section{Revenue, Taxes, CostOfGoods, OperatingExpenses} {
		cells[sec] = map[string][]core.Money{}
	}

	for _, e := range entries {
		if e.Status == core.Cancelled {
			continue
		}
		date := e.EffectiveDate()
		if date.IsZero() {
			continue
		}
		if opts.Year != 0 && date.Year() != opts.Year {
			continue
		}
		sec, label, ok := classify(e, categories, opts)
		if !ok {
			continue
		}
		row, exists := cells[sec][label]
		if !exists {
			row = make([]core.Money, len(cols))
			cells[sec][label] = row
		}
		idx := opts.Period.Bucket(date.Month())
		row[idx] = row[idx].Add(e.Amount)
	}

	st := Statement{
		Period:   opts.Period,
		Year:     opts.Year,
		Columns:  cols,
		Sections: map[Section][]Row{},
		Metrics:  make([]Metrics, len(cols)),
	}

	// Collators are not safe for concurrent use.
	coll := collate.New(language.Und)
	raw := make([][4]core.Money, len(cols))
	var rawTotal [4]core.Money
	for sec, labels := range cells {
		rows := make([]Row, 0, len(labels))
		for label, values := range labels {
			r := Row{Label: label, Values: values}
			for i, v := range values {
				r.Total = r.Total.Add(v)
				raw[i][sec] = raw[i][sec].Add(v)
			}
			rawTotal[sec] = rawTotal[sec].Add(r.Total)
			rows = append(rows, r)
		}
		sort.Slice(rows, func(i, j int) bool {
			if c := coll.CompareString(rows[i].Label, rows[j].Label); c != 0 {
				return c < 0
			}
			return rows[i].Label < rows[j].Label
		})
		st.Sections[sec] = rows
	}

	for i := range cols {
		st.Metrics[i] = derive(raw[i])
	}
	st.Total = derive(rawTotal)
	return st, nil
}

// classify applies the row rules in order; the first match wins.
func classify(e core.LedgerEntry, categories CategoryReader, opts Options) (Section, string, bool) {
	if opts.GroupCardExpenses && e.IsCardExpense() {
		return OperatingExpenses, CardRowLabel, true
	}
	if categories == nil {
		return 0, "", false
	}
	cat, ok := categories.Get(e.CategoryID)
	if !ok {
		return 0, "", false
	}

	label := cat.Name
	name := strings.ToLower(cat.Name)
	switch {
	case cat.Kind == core.Income:
		if opts.GroupByManagerialGroup && strings.TrimSpace(cat.ManagerialGroup) != "" {
			label = cat.ManagerialGroup
		}
		return Revenue, label, true
	case strings.Contains(name, "imposto"):
		return Taxes, label, true
	case strings.Contains(name, "fornecedor"):
		return CostOfGoods, label, true
	case cat.Kind == core.Expense:
		return OperatingExpenses, label, true
	}
	return 0, "", false
}

func derive(raw [4]core.Money) Metrics {
	m := Metrics{
		GrossRevenue:      raw[Revenue],
		Taxes:             raw[Taxes],
		CostOfGoods:       raw[CostOfGoods],
		OperatingExpenses: raw[OperatingExpenses],
	}
	m.NetRevenue = m.GrossRevenue.Sub(m.Taxes)
	m.GrossProfit = m.NetRevenue.Sub(m.CostOfGoods)
	m.NetProfit = m.GrossProfit.Sub(m.OperatingExpenses)
	m.Margin = m.NetProfit.PercentOf(m.GrossRevenue)
	return m
}
