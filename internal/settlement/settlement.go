// Package settlement applies pay, reverse and cancel transitions to single
// entries and to every member of an invoice.
//
// Group operations write members one at a time in member order and stop at
// the first failure. Nothing is rolled back: the Result says which members
// were applied, which failed and which were never attempted, so the caller
// can retry or reconcile.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"solarbooks/internal/core"
	"solarbooks/internal/grouping"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// EntryWriter persists one entry, replacing any previous version.
type EntryWriter interface {
	SaveEntry(ctx context.Context, e core.LedgerEntry) error
}

// Target is what a transition applies to: one entry or an invoice's members.
type Target struct {
	ID      string
	Members []core.LedgerEntry

	single bool
}

// Single targets one entry. Its failures are returned as they are, never as
// a PartialFailureError.
func Single(e core.LedgerEntry) Target {
	return Target{ID: e.ID, Members: []core.LedgerEntry{e}, single: true}
}

func Group(g grouping.GroupedInvoice) Target {
	return Target{ID: g.ID, Members: g.Entries()}
}

type Failure struct {
	ID  string
	Err error
}

type Result struct {
	Applied      []core.LedgerEntry // entries as written
	Unchanged    []string           // already in the target state
	Failed       []Failure
	NotAttempted []string
}

// OK reports whether every member reached the target state.
func (r Result) OK() bool { return len(r.Failed) == 0 && len(r.NotAttempted) == 0 }

// AppliedIDs lists the IDs of the written entries in order.
func (r Result) AppliedIDs() []string {
	ids := make([]string, len(r.Applied))
	for i, e := range r.Applied {
		ids[i] = e.ID
	}
	return ids
}

// PartialFailureError is returned when a member could not be transitioned.
// Earlier members stay applied.
type PartialFailureError struct {
	Op     string
	Target string
	Result Result
}

func (e *PartialFailureError) Error() string {
	f := e.Result.Failed[0]
	return fmt.Sprintf("%s %s: %d applied, %s failed: %v, %d not attempted",
		e.Op, e.Target, len(e.Result.Applied), f.ID, f.Err, len(e.Result.NotAttempted))
}

func (e *PartialFailureError) Unwrap() error { return e.Result.Failed[0].Err }

type Coordinator struct {
	writer EntryWriter
	now    func() time.Time
}

// New returns a coordinator writing through w. A nil clock means time.Now.
func New(w EntryWriter, now func() time.Time) *Coordinator {
	if now == nil {
		now = time.Now
	}
	return &Coordinator{writer: w, now: now}
}

// Settle marks every pending member settled, paid today.
func (c *Coordinator) Settle(ctx context.Context, t Target) (Result, error) {
	paid := core.DateOf(c.now())
	return c.apply(ctx, "settle", t, func(e core.LedgerEntry) (core.LedgerEntry, bool, error) {
		switch e.Status {
		case core.Settled:
			return e, false, nil
		case core.Cancelled:
			return e, false, fmt.Errorf("settle cancelled entry: %w", ErrInvalidTransition)
		}
		e.Status = core.Settled
		e.PaymentDate = paid
		return e, true, nil
	})
}

// Reverse returns a settled entry to pending and clears its payment date.
func (c *Coordinator) Reverse(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	if e.Status != core.Settled {
		return e, fmt.Errorf("reverse %s entry: %w", e.Status, ErrInvalidTransition)
	}
	e.Status = core.Pending
	e.PaymentDate = core.Date{}
	if err := c.writer.SaveEntry(ctx, e); err != nil {
		return e, fmt.Errorf("save entry %s: %w", e.ID, err)
	}
	return e, nil
}

// Cancel marks every member cancelled with the same reason. A blank reason
// is rejected before anything is written.
func (c *Coordinator) Cancel(ctx context.Context, t Target, reason string) (Result, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Result{}, core.FieldErrors{core.FieldCancelReason: "cancel reason is required"}
	}
	return c.apply(ctx, "cancel", t, func(e core.LedgerEntry) (core.LedgerEntry, bool, error) {
		if e.Status == core.Cancelled {
			return e, false, nil
		}
		e.Status = core.Cancelled
		e.CancelReason = reason
		e.PaymentDate = core.Date{}
		return e, true, nil
	})
}

type transition func(core.LedgerEntry) (core.LedgerEntry, bool, error)

func (c *Coordinator) apply(ctx context.Context, op string, t Target, next transition) (Result, error) {
	var res Result
	for i, m := range t.Members {
		err := ctx.Err()
		var updated core.LedgerEntry
		var changed bool
		if err == nil {
			updated, changed, err = next(m)
		}
		if err == nil && !changed {
			res.Unchanged = append(res.Unchanged, m.ID)
			continue
		}
		if err == nil {
			if werr := c.writer.SaveEntry(ctx, updated); werr != nil {
				err = fmt.Errorf("save entry %s: %w", m.ID, werr)
			}
		}
		if err != nil {
			res.Failed = append(res.Failed, Failure{ID: m.ID, Err: err})
			if t.single {
				return res, err
			}
			for _, rest := range t.Members[i+1:] {
				res.NotAttempted = append(res.NotAttempted, rest.ID)
			}
			return res, &PartialFailureError{Op: op, Target: t.ID, Result: res}
		}
		res.Applied = append(res.Applied, updated)
	}
	return res, nil
}
