// Package storage persists ledger entries. The engine itself never talks to a
// store; services load snapshots from one and write expansion and settlement
// results back.
package storage

import (
	"context"
	"errors"

	"solarbooks/internal/core"
)

var ErrNotFound = errors.New("entry not found")

// LedgerStore is the ledger entry collection keyed by entry ID.
type LedgerStore interface {
	All(ctx context.Context) ([]core.LedgerEntry, error)
	Get(ctx context.Context, id string) (core.LedgerEntry, error)
	Save(ctx context.Context, e core.LedgerEntry) error
	SaveMany(ctx context.Context, entries []core.LedgerEntry) error
	Delete(ctx context.Context, id string) error

	// SaveEntry is Save; it lets a store act as a settlement writer.
	SaveEntry(ctx context.Context, e core.LedgerEntry) error
	Close() error
}
