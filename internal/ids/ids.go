// Package ids generates identifiers for ledger entries.
package ids

import (
	"fmt"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"solarbooks/internal/core"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier suitable for storage keys.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewCardEntryID returns an identifier carrying the card provenance marker.
func NewCardEntryID() string {
	return core.CardEntryPrefix + New()
}

// Generator produces entry IDs. Expanders take one so tests can pin IDs.
type Generator interface {
	NewID() string
	NewCardID() string
}

// ULID is the production Generator.
type ULID struct{}

func (ULID) NewID() string     { return New() }
func (ULID) NewCardID() string { return NewCardEntryID() }

// Sequence is a deterministic Generator for tests and fixtures.
type Sequence struct {
	Prefix string

	mu sync.Mutex
	n  int
}

func (s *Sequence) next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s%03d", s.Prefix, s.n)
}

func (s *Sequence) NewID() string     { return s.next() }
func (s *Sequence) NewCardID() string { return core.CardEntryPrefix + s.next() }
