package services

import (
	"context"
	"fmt"
	"sync"

	"solarbooks/internal/cache"
	"solarbooks/internal/statement"
)

// StatementCache memoizes built statements. Any ledger write purges it.
type StatementCache struct {
	svc   *LedgerService
	cache cache.Cache[statement.Statement]

	// gen is bumped on every write; a build that overlapped a write is not cached.
	mu  sync.Mutex
	gen uint64
}

func NewStatementCache(svc *LedgerService, c cache.Cache[statement.Statement]) *StatementCache {
	sc := &StatementCache{svc: svc, cache: c}
	svc.OnChange(sc.invalidate)
	return sc
}

func (s *StatementCache) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.cache.Purge()
}

func (s *StatementCache) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func statementKey(opts statement.Options, settledOnly bool) string {
	return fmt.Sprintf("%s|%d|%t|%t|%t", opts.Period, opts.Year, opts.GroupCardExpenses, opts.GroupByManagerialGroup, settledOnly)
}

// Statement returns the cached statement or builds and caches it.
func (s *StatementCache) Statement(ctx context.Context, opts statement.Options, settledOnly bool) (statement.Statement, bool, error) {
	if opts.Period == "" {
		opts.Period = statement.Monthly
	}
	key := statementKey(opts, settledOnly)
	if st, ok := s.cache.Get(key); ok {
		return st, true, nil
	}
	gen := s.generation()
	st, err := s.svc.Statement(ctx, opts, settledOnly)
	if err != nil {
		return statement.Statement{}, false, err
	}
	s.mu.Lock()
	if s.gen == gen {
		s.cache.Set(key, st)
	}
	s.mu.Unlock()
	return st, false, nil
}
