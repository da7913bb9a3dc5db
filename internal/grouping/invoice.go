// Package grouping folds card expense entries into invoice aggregates for
// list views and breaks an invoice down by holder and card for drill-down.
package grouping

import (
	"slices"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"solarbooks/internal/core"
)

const (
	ViewSingle ViewKind = iota
	ViewAggregate
)

// ViewKind discriminates the ViewEntry variant.
type ViewKind int

func (k ViewKind) String() string {
	if k == ViewAggregate {
		return "invoice"
	}
	return "entry"
}

// CardReader resolves card configuration by name.
type CardReader interface {
	CardByName(name string) (core.CardConfig, bool)
}

// CardSuggester optionally proposes the closest known card for an unknown name.
type CardSuggester interface {
	Suggest(name string) (string, bool)
}

// GroupedInvoice is a transient aggregate of card expenses sharing a billing cycle.
type GroupedInvoice struct {
	ID         string
	Amount     core.Money
	Status     core.Status
	DueDate    core.Date
	ClosingDay int // 0 when no member matched a configured card
	CardNames  []string
	Suggestion string // nearest configured card when unmatched, diagnostics only
	Members    []core.LedgerEntry
}

// ViewEntry is either a single ledger entry or an invoice aggregate.
type ViewEntry struct {
	Kind    ViewKind
	Entry   core.LedgerEntry
	Invoice *GroupedInvoice
}

var invoiceNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("solarbooks/invoices"))

func Single(e core.LedgerEntry) ViewEntry { return ViewEntry{Kind: ViewSingle, Entry: e} }

func Aggregate(g GroupedInvoice) ViewEntry { return ViewEntry{Kind: ViewAggregate, Invoice: &g} }

func (v ViewEntry) ID() string {
	if v.Kind == ViewAggregate {
		return v.Invoice.ID
	}
	return v.Entry.ID
}

func (v ViewEntry) Amount() core.Money {
	if v.Kind == ViewAggregate {
		return v.Invoice.Amount
	}
	return v.Entry.Amount
}

func (v ViewEntry) Status() core.Status {
	if v.Kind == ViewAggregate {
		return v.Invoice.Status
	}
	return v.Entry.Status
}

func (v ViewEntry) DueDate() core.Date {
	if v.Kind == ViewAggregate {
		return v.Invoice.DueDate
	}
	return v.Entry.DueDate
}

// EffectiveDate is the payment date when present, otherwise the due date.
// An invoice uses the latest payment date among its members.
func (v ViewEntry) EffectiveDate() core.Date {
	if v.Kind == ViewAggregate {
		return v.Invoice.EffectiveDate()
	}
	return v.Entry.EffectiveDate()
}

func (g GroupedInvoice) EffectiveDate() core.Date {
	var latest core.Date
	for _, m := range g.Members {
		if m.PaymentDate.After(latest.Time) {
			latest = m.PaymentDate
		}
	}
	if latest.IsZero() {
		return g.DueDate
	}
	return latest
}

// Entries returns a copy of the members.
func (g GroupedInvoice) Entries() []core.LedgerEntry {
	out := make([]core.LedgerEntry, len(g.Members))
	copy(out, g.Members)
	return out
}

type bucket struct {
	key        string
	dueDate    core.Date
	closingDay int
	cardNames  []string
	unmatched  string
	members    []core.LedgerEntry
}

func groupable(e core.LedgerEntry) bool {
	return e.IsCardExpense() && e.Status != core.Cancelled
}

// GroupForList folds pending and settled card expenses into one invoice per
// (due date, closing day) and passes every other entry through. The result is
// sorted with pending items first by ascending due date, then the rest by
// descending effective date. Ties break on ID.
func GroupForList(entries []core.LedgerEntry, cards CardReader) []ViewEntry {
	buckets := map[string]*bucket{}
	var order []string
	var out []ViewEntry

	for _, e := range entries {
		if !groupable(e) {
			out = append(out, Single(e))
			continue
		}

		closing := 0
		var name string
		if tag, ok := ResolveCard(e); ok {
			name = tag.CardName
			if cards != nil {
				if cfg, found := cards.CardByName(name); found {
					closing = cfg.ClosingDay
				}
			}
		}

		key := e.DueDate.String() + "|" + strconv.Itoa(closing)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{key: key, dueDate: e.DueDate, closingDay: closing}
			buckets[key] = b
			order = append(order, key)
		}
		b.members = append(b.members, e)
		if name != "" && !slices.Contains(b.cardNames, name) {
			b.cardNames = append(b.cardNames, name)
			if closing == 0 && b.unmatched == "" {
				b.unmatched = name
			}
		}
	}

	suggester, _ := cards.(CardSuggester)
	for _, key := range order {
		out = append(out, Aggregate(buildInvoice(buckets[key], suggester)))
	}

	SortView(out)
	return out
}

func buildInvoice(b *bucket, suggester CardSuggester) GroupedInvoice {
	g := GroupedInvoice{
		ID:         uuid.NewSHA1(invoiceNamespace, []byte(b.key)).String(),
		Status:     core.Settled,
		DueDate:    b.dueDate,
		ClosingDay: b.closingDay,
		CardNames:  b.cardNames,
		Members:    make([]core.LedgerEntry, len(b.members)),
	}
	copy(g.Members, b.members)
	for _, m := range b.members {
		g.Amount = g.Amount.Add(m.Amount)
		if m.Status != core.Settled {
			g.Status = core.Pending
		}
	}
	if b.unmatched != "" && suggester != nil {
		if s, ok := suggester.Suggest(b.unmatched); ok {
			g.Suggestion = s
		}
	}
	return g
}

// SortView orders a view list in place: pending first by ascending due date,
// everything else after by descending effective date.
func SortView(view []ViewEntry) {
	sort.SliceStable(view, func(i, j int) bool {
		a, b := view[i], view[j]
		ap, bp := a.Status() == core.Pending, b.Status() == core.Pending
		if ap != bp {
			return ap
		}
		var da, db core.Date
		if ap {
			da, db = a.DueDate(), b.DueDate()
			if !da.Equal(db.Time) {
				return da.Before(db.Time)
			}
		} else {
			da, db = a.EffectiveDate(), b.EffectiveDate()
			if !da.Equal(db.Time) {
				return da.After(db.Time)
			}
		}
		return a.ID() < b.ID()
	})
}

// Ungroup flattens a view back into ledger entries, expanding every invoice
// into its members.
func Ungroup(view []ViewEntry) []core.LedgerEntry {
	var out []core.LedgerEntry
	for _, v := range view {
		if v.Kind == ViewAggregate {
			out = append(out, v.Invoice.Entries()...)
			continue
		}
		out = append(out, v.Entry)
	}
	return out
}

// FindInvoice looks up an invoice in a view by its synthetic ID.
func FindInvoice(view []ViewEntry, id string) (GroupedInvoice, bool) {
	for _, v := range view {
		if v.Kind == ViewAggregate && v.Invoice.ID == id {
			return *v.Invoice, true
		}
	}
	return GroupedInvoice{}, false
}
