package statement

import (
	"errors"
	"strings"
	"testing"

	"solarbooks/internal/core"
)

type catMap map[string]core.Category

func (m catMap) Get(id string) (core.Category, bool) {
	c, ok := m[id]
	return c, ok
}

var categories = catMap{
	"sales":    {ID: "sales", Name: "Vendas", Kind: core.Income, ManagerialGroup: "Receita"},
	"service":  {ID: "service", Name: "Servicos", Kind: core.Income, ManagerialGroup: "Receita"},
	"tax":      {ID: "tax", Name: "Impostos sobre venda", Kind: core.Expense},
	"supplier": {ID: "supplier", Name: "Fornecedor de paineis", Kind: core.Expense},
	"rent":     {ID: "rent", Name: "Aluguel", Kind: core.Expense, ManagerialGroup: "Estrutura"},
	"fuel":     {ID: "fuel", Name: "Combustivel", Kind: core.Expense},
	"transfer": {ID: "transfer", Name: "Transferencia", Kind: core.Result},
}

func settled(id, cat string, cents int64, paid core.Date) core.LedgerEntry {
	return core.LedgerEntry{ID: id, CategoryID: cat, Amount: core.Cents(cents), Kind: core.Expense, DueDate: paid, PaymentDate: paid, Status: core.Settled}
}

func fixture() []core.LedgerEntry {
	return []core.LedgerEntry{
		settled("s1", "sales", 100000, core.NewDate(2024, 1, 10)),
		settled("s2", "service", 50000, core.NewDate(2024, 2, 10)),
		settled("t1", "tax", 10000, core.NewDate(2024, 1, 20)),
		settled("c1", "supplier", 30000, core.NewDate(2024, 1, 25)),
		settled("r1", "rent", 20000, core.NewDate(2024, 2, 5)),
		settled("x1", "transfer", 99999, core.NewDate(2024, 1, 5)),
		settled("u1", "unknown", 77777, core.NewDate(2024, 1, 5)),
		{ID: "cc-1", CategoryID: "fuel", Amount: core.Cents(4000), Kind: core.Expense, DueDate: core.NewDate(2024, 4, 10), Status: core.Pending},
		{ID: "cc-2", CategoryID: "rent", Amount: core.Cents(1000), Kind: core.Expense, DueDate: core.NewDate(2024, 4, 10), Status: core.Cancelled, CancelReason: "dup"},
		{ID: "nodate", CategoryID: "sales", Amount: core.Cents(5), Kind: core.Income, Status: core.Pending},
		settled("old", "sales", 123, core.NewDate(2023, 12, 31)),
	}
}

func labels(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Label
	}
	return out
}

func TestBuild_MonthlyClassification(t *testing.T) {
	st, err := Build(fixture(), categories, Options{Period: Monthly, Year: 2024})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(st.Columns) != 12 || st.Columns[0] != "Jan" {
		t.Fatalf("columns = %v", st.Columns)
	}

	tests := []struct {
		sec  Section
		want []string
	}{
		{Revenue, []string{"Servicos", "Vendas"}},
		{Taxes, []string{"Impostos sobre venda"}},
		{CostOfGoods, []string{"Fornecedor de paineis"}},
		{OperatingExpenses, []string{"Aluguel", "Combustivel"}},
	}
	for _, tt := range tests {
		t.Run(tt.sec.String(), func(t *testing.T) {
			got := labels(st.Rows(tt.sec))
			if len(got) != len(tt.want) {
				t.Fatalf("labels = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("labels = %v, want %v", got, tt.want)
				}
			}
		})
	}

	jan := st.Metrics[0]
	if jan.GrossRevenue.Cents != 100000 || jan.Taxes.Cents != 10000 || jan.CostOfGoods.Cents != 30000 {
		t.Errorf("jan = %+v", jan)
	}
	if jan.NetProfit.Cents != 60000 || jan.Margin.StringFixed(2) != "60.00" {
		t.Errorf("jan net = %s margin = %s", jan.NetProfit, jan.Margin)
	}

	feb := st.Metrics[1]
	if feb.NetProfit.Cents != 30000 || feb.Margin.StringFixed(2) != "60.00" {
		t.Errorf("feb net = %s margin = %s", feb.NetProfit, feb.Margin)
	}

	apr := st.Metrics[3]
	if apr.OperatingExpenses.Cents != 4000 || !apr.Margin.IsZero() {
		t.Errorf("apr = %+v", apr)
	}
}

func TestBuild_Identity(t *testing.T) {
	for _, p := range []Period{Monthly, Quarterly, Semiannual, Annual} {
		t.Run(string(p), func(t *testing.T) {
			st, err := Build(fixture(), categories, Options{Period: p, GroupCardExpenses: true})
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			all := append(append([]Metrics{}, st.Metrics...), st.Total)
			for i, m := range all {
				want := m.GrossRevenue.Sub(m.Taxes).Sub(m.CostOfGoods).Sub(m.OperatingExpenses)
				if m.NetProfit != want {
					t.Errorf("column %d net = %s, want %s", i, m.NetProfit, want)
				}
			}
		})
	}
}

func TestBuild_RowUnion(t *testing.T) {
	st, err := Build(fixture(), categories, Options{Period: Quarterly, Year: 2024})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	for sec, rows := range st.Sections {
		for _, r := range rows {
			if len(r.Values) != len(st.Columns) {
				t.Errorf("%s/%s has %d values for %d columns", sec, r.Label, len(r.Values), len(st.Columns))
			}
			var sum core.Money
			for _, v := range r.Values {
				sum = sum.Add(v)
			}
			if sum != r.Total {
				t.Errorf("%s/%s total = %s, want %s", sec, r.Label, r.Total, sum)
			}
		}
	}
	// Aluguel only appears in Q1 and Combustivel only in Q2; both span every column.
	fuel := st.Rows(OperatingExpenses)[1]
	if fuel.Label != "Combustivel" || !fuel.Values[0].IsZero() || fuel.Values[1].Cents != 4000 {
		t.Errorf("fuel row = %+v", fuel)
	}
}

func TestBuild_TotalMarginFromSums(t *testing.T) {
	entries := []core.LedgerEntry{
		settled("a", "sales", 10000, core.NewDate(2024, 1, 1)),
		settled("b", "rent", 9000, core.NewDate(2024, 1, 2)),
		settled("c", "sales", 30000, core.NewDate(2024, 7, 1)),
		settled("d", "rent", 3000, core.NewDate(2024, 7, 2)),
	}
	st, err := Build(entries, categories, Options{Period: Semiannual})
	if err != nil {
		t.Fatal(err)
	}
	// H1 margin 10%, H2 margin 90%; total is 28000/40000 = 70%, not the 50% average.
	if got := st.Total.Margin.StringFixed(2); got != "70.00" {
		t.Errorf("total margin = %s, want 70.00", got)
	}
	if st.Metrics[0].Margin.StringFixed(2) != "10.00" || st.Metrics[1].Margin.StringFixed(2) != "90.00" {
		t.Errorf("column margins = %s, %s", st.Metrics[0].Margin, st.Metrics[1].Margin)
	}
}

func TestBuild_GroupingFlags(t *testing.T) {
	st, err := Build(fixture(), categories, Options{Period: Annual, GroupCardExpenses: true, GroupByManagerialGroup: true, Year: 2024})
	if err != nil {
		t.Fatal(err)
	}
	if got := labels(st.Rows(Revenue)); len(got) != 1 || got[0] != "Receita" {
		t.Errorf("revenue labels = %v", got)
	}
	if got := st.Rows(Revenue)[0].Total.Cents; got != 150000 {
		t.Errorf("revenue total = %d", got)
	}
	// Managerial groups only relabel income rows.
	opex := labels(st.Rows(OperatingExpenses))
	if len(opex) != 2 || opex[0] != "Aluguel" || opex[1] != CardRowLabel {
		t.Errorf("opex labels = %v", opex)
	}
	// Empty managerial group falls back to the category name.
	if got := labels(st.Rows(Taxes)); got[0] != "Impostos sobre venda" {
		t.Errorf("tax labels = %v", got)
	}
}

func TestBuild_YearFilter(t *testing.T) {
	st, err := Build(fixture(), categories, Options{Period: Annual})
	if err != nil {
		t.Fatal(err)
	}
	if got := st.Total.GrossRevenue.Cents; got != 150123 {
		t.Errorf("all-years revenue = %d, want 150123", got)
	}
}

func TestBuild_UnknownPeriod(t *testing.T) {
	if _, err := Build(nil, categories, Options{Period: "weekly"}); !errors.Is(err, ErrUnknownPeriod) {
		t.Errorf("error = %v", err)
	}
}

func TestPeriod(t *testing.T) {
	tests := []struct {
		p      Period
		month  int
		bucket int
	}{
		{Monthly, 12, 11},
		{Quarterly, 3, 0},
		{Quarterly, 4, 1},
		{Semiannual, 6, 0},
		{Semiannual, 7, 1},
		{Annual, 12, 0},
	}
	for _, tt := range tests {
		if got := tt.p.Bucket(tt.month); got != tt.bucket {
			t.Errorf("%s.Bucket(%d) = %d, want %d", tt.p, tt.month, got, tt.bucket)
		}
	}

	if p, err := ParsePeriod(" Quarterly "); err != nil || p != Quarterly {
		t.Errorf("ParsePeriod() = %q, %v", p, err)
	}
	if p, _ := ParsePeriod(""); p != Monthly {
		t.Errorf("empty period = %q", p)
	}
	if _, err := ParsePeriod("daily"); !errors.Is(err, ErrUnknownPeriod) {
		t.Errorf("ParsePeriod(daily) error = %v", err)
	}
}

func TestBuild_RowsSortAlphabetically(t *testing.T) {
	cats := catMap{
		"z": {ID: "z", Name: "Zeladoria", Kind: core.Expense},
		"a": {ID: "a", Name: "aluguel", Kind: core.Expense},
		"w": {ID: "w", Name: "Água", Kind: core.Expense},
		"b": {ID: "b", Name: "Banco", Kind: core.Expense},
	}
	paid := core.NewDate(2024, 5, 2)
	var entries []core.LedgerEntry
	for _, id := range []string{"z", "a", "w", "b"} {
		entries = append(entries, settled("e-"+id, id, 100, paid))
	}

	st, err := Build(entries, cats, Options{Period: Annual})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Água", "aluguel", "Banco", "Zeladoria"}
	got := labels(st.Rows(OperatingExpenses))
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("labels = %v, want %v", got, want)
	}
}
