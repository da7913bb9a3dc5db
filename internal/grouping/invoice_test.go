package grouping

import (
	"sort"
	"strings"
	"testing"

	"solarbooks/internal/core"
)

type cardMap map[string]core.CardConfig

func (m cardMap) CardByName(name string) (core.CardConfig, bool) {
	c, ok := m[strings.ToLower(name)]
	return c, ok
}

type suggestingCards struct{ cardMap }

func (suggestingCards) Suggest(name string) (string, bool) { return "Visa", true }

var cards = cardMap{
	"visa":   {Name: "Visa", ClosingDay: 15, DueDay: 10},
	"master": {Name: "Master", ClosingDay: 5, DueDay: 10},
}

func cardEntry(id, desc string, cents int64, due core.Date, status core.Status) core.LedgerEntry {
	e := core.LedgerEntry{
		ID:          core.CardEntryPrefix + id,
		Description: desc,
		Amount:      core.Cents(cents),
		Kind:        core.Expense,
		DueDate:     due,
		CategoryID:  "cat",
		Status:      status,
	}
	if status == core.Settled {
		e.PaymentDate = due
	}
	if status == core.Cancelled {
		e.CancelReason = "duplicate"
	}
	return e
}

func fixture() []core.LedgerEntry {
	apr := core.NewDate(2024, 4, 10)
	may := core.NewDate(2024, 5, 10)
	return []core.LedgerEntry{
		cardEntry("1", "Panels [Ana (Visa)] (1/2)", 10000, apr, core.Pending),
		cardEntry("2", "Bolts [Bob (Visa)]", 2550, apr, core.Pending),
		cardEntry("3", "Fuel [Master]", 4000, apr, core.Pending),
		cardEntry("4", "Panels [Ana (Visa)] (2/2)", 10000, may, core.Pending),
		cardEntry("5", "Edited by hand", 700, apr, core.Settled),
		cardEntry("6", "Dup [Ana (Visa)]", 999, apr, core.Cancelled),
		{ID: "rent", Description: "Rent", Amount: core.Cents(50000), Kind: core.Expense, DueDate: core.NewDate(2024, 4, 5), Status: core.Pending, BankAccountID: "acc"},
		{ID: "sale", Description: "Sale", Amount: core.Cents(90000), Kind: core.Income, DueDate: core.NewDate(2024, 3, 1), PaymentDate: core.NewDate(2024, 3, 2), Status: core.Settled, BankAccountID: "acc"},
	}
}

func TestGroupForList_Buckets(t *testing.T) {
	view := GroupForList(fixture(), cards)

	var invoices []GroupedInvoice
	singles := map[string]bool{}
	for _, v := range view {
		if v.Kind == ViewAggregate {
			invoices = append(invoices, *v.Invoice)
		} else {
			singles[v.Entry.ID] = true
		}
	}

	// apr/15 (Visa x2), apr/5 (Master), may/15 (Visa), apr/0 (untagged)
	if len(invoices) != 4 {
		t.Fatalf("invoices = %d, want 4", len(invoices))
	}
	for _, id := range []string{"cc-6", "rent", "sale"} {
		if !singles[id] {
			t.Errorf("%s should pass through as a single", id)
		}
	}

	visaApr := findInvoice(t, invoices, core.NewDate(2024, 4, 10), 15)
	if visaApr.Amount.Cents != 12550 || len(visaApr.Members) != 2 {
		t.Errorf("visa april = %s with %d members", visaApr.Amount, len(visaApr.Members))
	}
	if visaApr.Status != core.Pending {
		t.Errorf("visa april status = %s", visaApr.Status)
	}
	unlinked := findInvoice(t, invoices, core.NewDate(2024, 4, 10), 0)
	if unlinked.Status != core.Settled {
		t.Errorf("all-settled invoice status = %s", unlinked.Status)
	}
}

func findInvoice(t *testing.T, invoices []GroupedInvoice, due core.Date, closing int) GroupedInvoice {
	t.Helper()
	for _, g := range invoices {
		if g.DueDate.SameDay(due) && g.ClosingDay == closing {
			return g
		}
	}
	t.Fatalf("no invoice for %s/%d", due, closing)
	return GroupedInvoice{}
}

func TestGroupForList_UnknownCardStillGroups(t *testing.T) {
	due := core.NewDate(2024, 6, 10)
	entries := []core.LedgerEntry{
		cardEntry("1", "Tools [Ana (Vsia)]", 100, due, core.Pending),
		cardEntry("2", "Tape [Ana (Vsia)]", 200, due, core.Pending),
	}
	view := GroupForList(entries, suggestingCards{cards})
	if len(view) != 1 || view[0].Kind != ViewAggregate {
		t.Fatalf("view = %+v", view)
	}
	g := view[0].Invoice
	if g.ClosingDay != 0 || g.Amount.Cents != 300 {
		t.Errorf("invoice = closing %d amount %s", g.ClosingDay, g.Amount)
	}
	if g.Suggestion != "Visa" {
		t.Errorf("suggestion = %q", g.Suggestion)
	}

	if view := GroupForList(entries, nil); len(view) != 1 {
		t.Errorf("nil card reader should still group, got %d items", len(view))
	}
}

func TestGroupForList_Ordering(t *testing.T) {
	view := GroupForList(fixture(), cards)

	seenDone := false
	var lastPending, lastDone core.Date
	for _, v := range view {
		if v.Status() == core.Pending {
			if seenDone {
				t.Fatalf("pending %s after a settled item", v.ID())
			}
			if !lastPending.IsZero() && v.DueDate().Before(lastPending.Time) {
				t.Errorf("pending out of order at %s", v.ID())
			}
			lastPending = v.DueDate()
			continue
		}
		seenDone = true
		if !lastDone.IsZero() && v.EffectiveDate().After(lastDone.Time) {
			t.Errorf("settled out of order at %s", v.ID())
		}
		lastDone = v.EffectiveDate()
	}
	if view[0].ID() != "rent" {
		t.Errorf("first = %s, want rent", view[0].ID())
	}
	if last := view[len(view)-1]; last.ID() != "sale" {
		t.Errorf("last = %s, want sale", last.ID())
	}
}

func TestGroupForList_DeterministicIDs(t *testing.T) {
	a := GroupForList(fixture(), cards)
	b := GroupForList(fixture(), cards)
	for i := range a {
		if a[i].ID() != b[i].ID() {
			t.Fatalf("position %d: %s != %s", i, a[i].ID(), b[i].ID())
		}
	}
}

func TestUngroup_RoundTrip(t *testing.T) {
	in := fixture()
	view := GroupForList(in, cards)
	out := Ungroup(view)

	ids := func(es []core.LedgerEntry) []string {
		s := make([]string, len(es))
		for i, e := range es {
			s[i] = e.ID
		}
		sort.Strings(s)
		return s
	}
	got, want := ids(out), ids(in)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("ungroup ids = %v, want %v", got, want)
	}

	var inSum, viewSum core.Money
	for _, e := range in {
		inSum = inSum.Add(e.Amount)
	}
	for _, v := range view {
		viewSum = viewSum.Add(v.Amount())
	}
	if inSum != viewSum {
		t.Errorf("view total = %s, want %s", viewSum, inSum)
	}
}

func TestFindInvoice(t *testing.T) {
	view := GroupForList(fixture(), cards)
	var id string
	for _, v := range view {
		if v.Kind == ViewAggregate {
			id = v.ID()
			break
		}
	}

	g, ok := FindInvoice(view, id)
	if !ok {
		t.Fatalf("FindInvoice(%s) not found", id)
	}
	members := g.Entries()
	members[0].Description = "changed"
	if g.Members[0].Description == "changed" {
		t.Errorf("Entries() should return a copy")
	}

	if _, ok := FindInvoice(view, "rent"); ok {
		t.Errorf("single entries are not invoices")
	}
}
