// Package memory is an in-process ledger store for tests and local runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"solarbooks/internal/core"
	"solarbooks/internal/storage"
)

type Store struct {
	mu      sync.RWMutex
	entries map[string]core.LedgerEntry
}

var _ storage.LedgerStore = (*Store)(nil)

// New returns a store seeded with the given entries.
func New(seed ...core.LedgerEntry) *Store {
	s := &Store{entries: make(map[string]core.LedgerEntry, len(seed))}
	for _, e := range seed {
		s.entries[e.ID] = e
	}
	return s
}

// All returns the entries ordered by due date, then ID.
func (s *Store) All(_ context.Context) ([]core.LedgerEntry, error) {
	s.mu.RLock()
	out := make([]core.LedgerEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].DueDate.String(), out[j].DueDate.String()
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) Get(_ context.Context, id string) (core.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return core.LedgerEntry{}, storage.ErrNotFound
	}
	return e, nil
}

func (s *Store) Save(ctx context.Context, e core.LedgerEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.entries[e.ID] = e
	s.mu.Unlock()
	return nil
}

func (s *Store) SaveEntry(ctx context.Context, e core.LedgerEntry) error { return s.Save(ctx, e) }

func (s *Store) SaveMany(ctx context.Context, entries []core.LedgerEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.entries[e.ID] = e
	}
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

func (s *Store) Close() error { return nil }
