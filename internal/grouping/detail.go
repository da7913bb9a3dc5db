package grouping

import (
	"sort"

	"solarbooks/internal/core"
)

// Members without a resolvable card land here instead of being dropped.
const (
	FallbackHolder = "manual/unlinked"
	FallbackLabel  = "description changed (no card link)"
)

type CardGroup struct {
	Label   string
	Amount  core.Money
	Entries []core.LedgerEntry
}

type HolderGroup struct {
	Holder string
	Amount core.Money
	Cards  []CardGroup
}

// InvoiceBreakdown nests an invoice's members holder -> card label -> entries.
type InvoiceBreakdown struct {
	InvoiceID string
	Amount    core.Money
	Holders   []HolderGroup
}

// Count returns how many entries the breakdown holds.
func (b InvoiceBreakdown) Count() int {
	n := 0
	for _, h := range b.Holders {
		for _, c := range h.Cards {
			n += len(c.Entries)
		}
	}
	return n
}

// InvoiceDetail breaks an invoice down by holder and card. Holders and labels
// are sorted by name with the fallback bucket last; entries keep member order.
func InvoiceDetail(inv GroupedInvoice) InvoiceBreakdown {
	type key struct{ holder, label string }
	byKey := map[key][]core.LedgerEntry{}
	labels := map[string][]string{}

	for _, m := range inv.Members {
		k := key{FallbackHolder, FallbackLabel}
		if tag, ok := ResolveCard(m); ok {
			k = key{tag.Holder, tag.Label}
		}
		if _, seen := byKey[k]; !seen {
			labels[k.holder] = append(labels[k.holder], k.label)
		}
		byKey[k] = append(byKey[k], m)
	}

	holders := make([]string, 0, len(labels))
	for h := range labels {
		holders = append(holders, h)
	}
	sort.Slice(holders, func(i, j int) bool {
		if (holders[i] == FallbackHolder) != (holders[j] == FallbackHolder) {
			return holders[j] == FallbackHolder
		}
		return holders[i] < holders[j]
	})

	out := InvoiceBreakdown{InvoiceID: inv.ID}
	for _, h := range holders {
		hg := HolderGroup{Holder: h}
		ls := labels[h]
		sort.Strings(ls)
		for _, l := range ls {
			cg := CardGroup{Label: l, Entries: byKey[key{h, l}]}
			for _, e := range cg.Entries {
				cg.Amount = cg.Amount.Add(e.Amount)
			}
			hg.Amount = hg.Amount.Add(cg.Amount)
			hg.Cards = append(hg.Cards, cg)
		}
		out.Amount = out.Amount.Add(hg.Amount)
		out.Holders = append(out.Holders, hg)
	}
	return out
}
