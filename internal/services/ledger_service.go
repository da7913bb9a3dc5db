// Package services wires the ledger engine to storage, the catalogue and the
// event publisher.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"solarbooks/internal/catalog"
	"solarbooks/internal/core"
	"solarbooks/internal/events"
	"solarbooks/internal/expansion"
	"solarbooks/internal/grouping"
	"solarbooks/internal/ids"
	"solarbooks/internal/settlement"
	"solarbooks/internal/statement"
	"solarbooks/internal/storage"
)

var ErrInvoiceNotFound = errors.New("invoice not found")

// LedgerService orchestrates ledger operations across the store, the
// catalogue and the event publisher. Publishing is best effort: a failed
// publish is logged and never fails the write that preceded it.
type LedgerService struct {
	store     storage.LedgerStore
	catalogs  CatalogSource
	publisher events.Publisher
	ids       ids.Generator
	settler   *settlement.Coordinator
	metrics   Recorder

	mu       sync.Mutex
	onChange []func()
}

// Recorder receives operational counters. *obs.Metrics implements it.
type Recorder interface {
	EntriesWritten(op string, n int)
	Settlement(op, outcome string)
	PublishFailed()
}

type nopRecorder struct{}

func (nopRecorder) EntriesWritten(string, int) {}
func (nopRecorder) Settlement(string, string)  {}
func (nopRecorder) PublishFailed()             {}

type Option func(*LedgerService)

func WithRecorder(r Recorder) Option {
	return func(s *LedgerService) { s.metrics = r }
}

func WithIDs(g ids.Generator) Option {
	return func(s *LedgerService) { s.ids = g }
}

// WithCoordinator replaces the settlement coordinator, e.g. to pin the clock.
func WithCoordinator(c *settlement.Coordinator) Option {
	return func(s *LedgerService) { s.settler = c }
}

func NewLedgerService(store storage.LedgerStore, catalogs CatalogSource, publisher events.Publisher, opts ...Option) *LedgerService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	s := &LedgerService{
		store:     store,
		catalogs:  catalogs,
		publisher: publisher,
		ids:       ids.ULID{},
		metrics:   nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.settler == nil {
		s.settler = settlement.New(store, nil)
	}
	return s
}

// OnChange registers fn to run after every successful write.
func (s *LedgerService) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

func (s *LedgerService) changed(ctx context.Context, op string, t events.Type, changedIDs ...string) {
	if len(changedIDs) == 0 {
		return
	}
	s.metrics.EntriesWritten(op, len(changedIDs))
	s.mu.Lock()
	hooks := append([]func(){}, s.onChange...)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	if err := s.publisher.Publish(ctx, events.New(t, changedIDs...)); err != nil {
		s.metrics.PublishFailed()
		slog.ErrorContext(ctx, "Failed to publish ledger event", "type", t, "entries", len(changedIDs), "error", err)
	}
}

// snapshot loads the entries and the catalogue concurrently.
func (s *LedgerService) snapshot(ctx context.Context) ([]core.LedgerEntry, *catalog.Catalog, error) {
	var entries []core.LedgerEntry
	var cat *catalog.Catalog

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.store.All(gctx)
		if err != nil {
			return fmt.Errorf("load entries: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cat, err = s.catalogs.Catalog(gctx)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return entries, cat, nil
}

// CreateCardExpenses expands a card submission and stores the result. The
// whole batch is rejected if the card is unknown or any line is invalid.
func (s *LedgerService) CreateCardExpenses(ctx context.Context, cardName string, lines []expansion.ExpenseLine) ([]core.LedgerEntry, error) {
	cat, err := s.catalogs.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	card, ok := cat.Cards.CardByName(cardName)
	if !ok {
		msg := fmt.Sprintf("unknown card %q", cardName)
		if hint, found := cat.Cards.Suggest(cardName); found {
			msg += fmt.Sprintf(", did you mean %q?", hint)
		}
		return nil, core.FieldErrors{core.FieldCard: msg}
	}

	lineErrs := core.LineErrors{}
	for i, l := range lines {
		errs := l.Validate()
		if errs == nil {
			errs = core.FieldErrors{}
		}
		if strings.TrimSpace(l.CategoryID) != "" {
			if _, known := cat.Categories.Get(l.CategoryID); !known {
				errs.Add(core.FieldCategory, "unknown category")
			}
		}
		if len(errs) > 0 {
			lineErrs[i] = errs
		}
	}
	if len(lineErrs) > 0 {
		return nil, lineErrs
	}

	entries, err := expansion.ExpandBatch(lines, card, s.ids)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveMany(ctx, entries); err != nil {
		return nil, fmt.Errorf("save card expenses: %w", err)
	}

	slog.InfoContext(ctx, "Card expenses created", "card", card.Name, "lines", len(lines), "entries", len(entries))
	s.changed(ctx, "card_expenses", events.EntriesSaved, entryIDs(entries)...)
	return entries, nil
}

// CreateEntry stores a directly entered entry. A missing ID is generated and
// a missing status defaults to pending.
func (s *LedgerService) CreateEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	if e.ID == "" {
		e.ID = s.ids.NewID()
	}
	if e.Status == "" {
		e.Status = core.Pending
	}
	if e.LaunchDate.IsZero() {
		e.LaunchDate = e.DueDate
	}
	if errs := e.Validate(); errs != nil {
		return core.LedgerEntry{}, errs
	}
	if err := s.store.Save(ctx, e); err != nil {
		return core.LedgerEntry{}, fmt.Errorf("save entry: %w", err)
	}
	slog.InfoContext(ctx, "Entry created", "id", e.ID, "kind", e.Kind, "amount_cents", e.Amount.Cents)
	s.changed(ctx, "create", events.EntriesSaved, e.ID)
	return e, nil
}

// CreateRecurring repeats an existing entry and stores the new occurrences.
func (s *LedgerService) CreateRecurring(ctx context.Context, id string, f expansion.Frequency, occurrences int) ([]core.LedgerEntry, error) {
	base, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get entry %s: %w", id, err)
	}
	series, err := expansion.ExpandRecurrence(base, f, occurrences, s.ids)
	if err != nil {
		return nil, err
	}
	created := series[1:]
	if err := s.store.SaveMany(ctx, created); err != nil {
		return nil, fmt.Errorf("save occurrences: %w", err)
	}
	slog.InfoContext(ctx, "Recurring entries created", "base", id, "frequency", f, "occurrences", occurrences)
	s.changed(ctx, "recur", events.EntriesSaved, entryIDs(created)...)
	return series, nil
}

// ListView returns the grouped, sorted entry list.
func (s *LedgerService) ListView(ctx context.Context) ([]grouping.ViewEntry, error) {
	entries, cat, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return grouping.GroupForList(entries, cat.Cards), nil
}

func (s *LedgerService) findInvoice(ctx context.Context, invoiceID string) (grouping.GroupedInvoice, error) {
	view, err := s.ListView(ctx)
	if err != nil {
		return grouping.GroupedInvoice{}, err
	}
	inv, ok := grouping.FindInvoice(view, invoiceID)
	if !ok {
		return grouping.GroupedInvoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

// Categories returns the current category catalogue, used to label entries.
func (s *LedgerService) Categories(ctx context.Context) (*catalog.Categories, error) {
	cat, err := s.catalogs.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return cat.Categories, nil
}

// InvoiceDetail returns an invoice and its holder/card breakdown.
func (s *LedgerService) InvoiceDetail(ctx context.Context, invoiceID string) (grouping.GroupedInvoice, grouping.InvoiceBreakdown, error) {
	inv, err := s.findInvoice(ctx, invoiceID)
	if err != nil {
		return grouping.GroupedInvoice{}, grouping.InvoiceBreakdown{}, err
	}
	return inv, grouping.InvoiceDetail(inv), nil
}

// Statement builds the DRE. With settledOnly only settled entries count,
// which is what an income statement normally wants.
func (s *LedgerService) Statement(ctx context.Context, opts statement.Options, settledOnly bool) (statement.Statement, error) {
	entries, cat, err := s.snapshot(ctx)
	if err != nil {
		return statement.Statement{}, err
	}
	if settledOnly {
		kept := entries[:0]
		for _, e := range entries {
			if e.Status == core.Settled {
				kept = append(kept, e)
			}
		}
		entries = kept
	}
	return statement.Build(entries, cat.Categories, opts)
}

func (s *LedgerService) Settle(ctx context.Context, id string) (settlement.Result, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return settlement.Result{}, fmt.Errorf("get entry %s: %w", id, err)
	}
	return s.afterSettlement(ctx, "settle", id)(s.settler.Settle(ctx, settlement.Single(e)))
}

func (s *LedgerService) SettleInvoice(ctx context.Context, invoiceID string) (settlement.Result, error) {
	inv, err := s.findInvoice(ctx, invoiceID)
	if err != nil {
		return settlement.Result{}, err
	}
	return s.afterSettlement(ctx, "settle", invoiceID)(s.settler.Settle(ctx, settlement.Group(inv)))
}

func (s *LedgerService) Cancel(ctx context.Context, id, reason string) (settlement.Result, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return settlement.Result{}, fmt.Errorf("get entry %s: %w", id, err)
	}
	return s.afterSettlement(ctx, "cancel", id)(s.settler.Cancel(ctx, settlement.Single(e), reason))
}

func (s *LedgerService) CancelInvoice(ctx context.Context, invoiceID, reason string) (settlement.Result, error) {
	inv, err := s.findInvoice(ctx, invoiceID)
	if err != nil {
		return settlement.Result{}, err
	}
	return s.afterSettlement(ctx, "cancel", invoiceID)(s.settler.Cancel(ctx, settlement.Group(inv), reason))
}

// afterSettlement publishes whatever was applied, even when a later member
// failed, and logs partial failures.
func (s *LedgerService) afterSettlement(ctx context.Context, op, target string) func(settlement.Result, error) (settlement.Result, error) {
	return func(res settlement.Result, err error) (settlement.Result, error) {
		s.changed(ctx, op, events.EntriesSaved, res.AppliedIDs()...)
		var pfe *settlement.PartialFailureError
		switch {
		case errors.As(err, &pfe):
			s.metrics.Settlement(op, "partial")
			slog.WarnContext(ctx, "Settlement partially applied",
				"operation", op,
				"target", target,
				"applied", len(res.Applied),
				"failed", res.Failed[0].ID,
				"not_attempted", len(res.NotAttempted))
		case err != nil:
			s.metrics.Settlement(op, "error")
		default:
			s.metrics.Settlement(op, "ok")
			slog.InfoContext(ctx, "Settlement applied", "operation", op, "target", target, "applied", len(res.Applied))
		}
		return res, err
	}
}

func (s *LedgerService) Reverse(ctx context.Context, id string) (core.LedgerEntry, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("get entry %s: %w", id, err)
	}
	out, err := s.settler.Reverse(ctx, e)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	s.changed(ctx, "reverse", events.EntriesSaved, out.ID)
	return out, nil
}

func (s *LedgerService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	slog.InfoContext(ctx, "Entry deleted", "id", id)
	s.changed(ctx, "delete", events.EntriesDeleted, id)
	return nil
}

// BackfillCardTags copies legacy description tags into the structured card
// fields and returns how many entries were updated.
func (s *LedgerService) BackfillCardTags(ctx context.Context) (int, error) {
	entries, err := s.store.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("load entries: %w", err)
	}
	updated := grouping.BackfillCardFields(entries)
	if len(updated) == 0 {
		return 0, nil
	}
	if err := s.store.SaveMany(ctx, updated); err != nil {
		return 0, fmt.Errorf("save backfilled entries: %w", err)
	}
	slog.InfoContext(ctx, "Card fields backfilled", "entries", len(updated))
	s.changed(ctx, "backfill", events.EntriesSaved, entryIDs(updated)...)
	return len(updated), nil
}

// Close closes the store and the publisher.
func (s *LedgerService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	return errors.Join(errs...)
}

func entryIDs(entries []core.LedgerEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}
