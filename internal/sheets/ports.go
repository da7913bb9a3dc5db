// Package sheets mirrors ledger entries into a spreadsheet for bookkeeping
// staff. The store stays authoritative; the mirror is rebuilt from it.
package sheets

import (
	"context"

	"solarbooks/internal/core"
)

// EntryMirror keeps one row per ledger entry, keyed by entry ID.
type EntryMirror interface {
	Upsert(ctx context.Context, entries []core.LedgerEntry) error
	Remove(ctx context.Context, ids []string) error
}

// Header is the column layout of a mirrored sheet.
var Header = []string{"ID", "Description", "Amount", "Kind", "Status", "Due date", "Payment date",
	"Launch date", "Category", "Card", "Holder", "Cancel reason"}

// Row renders an entry in Header order.
func Row(e core.LedgerEntry) []any {
	return []any{
		e.ID, e.Description, e.Amount.String(), string(e.Kind), string(e.Status),
		e.DueDate.String(), e.PaymentDate.String(), e.LaunchDate.String(),
		e.CategoryID, e.CardName, e.Holder, e.CancelReason,
	}
}
