// Package events defines the change notifications emitted after ledger writes.
// They carry entry IDs only; consumers read the current state from the store.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

const (
	EntriesSaved   Type = "entries.saved"
	EntriesDeleted Type = "entries.deleted"
)

type Type string

type LedgerEvent struct {
	Type      Type      `json:"type"`
	EntryIDs  []string  `json:"entry_ids"`
	Timestamp time.Time `json:"timestamp"`
}

func New(t Type, ids ...string) LedgerEvent {
	return LedgerEvent{Type: t, EntryIDs: ids, Timestamp: time.Now().UTC()}
}

func (e LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func FromJSON(data []byte) (LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return LedgerEvent{}, err
	}
	return e, nil
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, e LedgerEvent) error
	Close() error
}

// Handler processes one consumed event. Returning an error requeues it.
type Handler func(ctx context.Context, e LedgerEvent) error

// Nop discards events. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, LedgerEvent) error { return nil }
func (Nop) Close() error                               { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []LedgerEvent
	Err    error // returned from Publish when set
}

func (r *Recorder) Publish(_ context.Context, e LedgerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of what was published.
func (r *Recorder) Events() []LedgerEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LedgerEvent, len(r.events))
	copy(out, r.events)
	return out
}
