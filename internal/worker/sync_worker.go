// Package worker mirrors ledger changes into the spreadsheet as events arrive.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"solarbooks/internal/core"
	"solarbooks/internal/events"
	"solarbooks/internal/sheets"
	"solarbooks/internal/storage"
)

// EntryReader is the part of the store the worker needs.
type EntryReader interface {
	Get(ctx context.Context, id string) (core.LedgerEntry, error)
	All(ctx context.Context) ([]core.LedgerEntry, error)
}

// SyncWorker handles synchronization of ledger entries to the sheet mirror.
type SyncWorker struct {
	store     EntryReader
	mirror    sheets.EntryMirror
	batchSize int
}

func NewSyncWorker(store EntryReader, mirror sheets.EntryMirror, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &SyncWorker{store: store, mirror: mirror, batchSize: batchSize}
}

// HandleEvent processes one ledger event. Saved entries are read back from
// the store so the mirror always reflects the latest version; entries that
// no longer exist are removed.
func (w *SyncWorker) HandleEvent(ctx context.Context, e events.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event", "type", e.Type, "entries", len(e.EntryIDs))

	switch e.Type {
	case events.EntriesDeleted:
		if err := w.mirror.Remove(ctx, e.EntryIDs); err != nil {
			return fmt.Errorf("remove mirrored entries: %w", err)
		}
		return nil
	case events.EntriesSaved:
	default:
		slog.WarnContext(ctx, "Ignoring unknown event type", "type", e.Type)
		return nil
	}

	var current []core.LedgerEntry
	var gone []string
	for _, id := range e.EntryIDs {
		entry, err := w.store.Get(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			gone = append(gone, id)
			continue
		}
		if err != nil {
			return fmt.Errorf("get entry %s: %w", id, err)
		}
		current = append(current, entry)
	}

	if err := w.upsertBatches(ctx, current); err != nil {
		return err
	}
	if len(gone) > 0 {
		if err := w.mirror.Remove(ctx, gone); err != nil {
			return fmt.Errorf("remove mirrored entries: %w", err)
		}
	}
	return nil
}

// Resync mirrors every entry in the store. Run at startup to recover from
// events lost while the worker was down.
func (w *SyncWorker) Resync(ctx context.Context) error {
	all, err := w.store.All(ctx)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	if len(all) == 0 {
		slog.InfoContext(ctx, "No entries to mirror on startup")
		return nil
	}
	if err := w.upsertBatches(ctx, all); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Startup resync completed", "entries", len(all))
	return nil
}

func (w *SyncWorker) upsertBatches(ctx context.Context, entries []core.LedgerEntry) error {
	for start := 0; start < len(entries); start += w.batchSize {
		end := min(start+w.batchSize, len(entries))
		if err := w.mirror.Upsert(ctx, entries[start:end]); err != nil {
			return fmt.Errorf("mirror entries: %w", err)
		}
	}
	return nil
}
