// Package memory is an in-process EntryMirror for tests and local runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"solarbooks/internal/core"
	"solarbooks/internal/sheets"
)

type Mirror struct {
	mu   sync.Mutex
	rows map[string][]any
}

var _ sheets.EntryMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{rows: map[string][]any{}}
}

func (m *Mirror) Upsert(_ context.Context, entries []core.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.rows[e.ID] = sheets.Row(e)
	}
	return nil
}

func (m *Mirror) Remove(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.rows, id)
	}
	return nil
}

// Row returns the mirrored row for id.
func (m *Mirror) Row(id string) ([]any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	return r, ok
}

// IDs lists mirrored entry IDs in sorted order.
func (m *Mirror) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.rows))
	for id := range m.rows {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
