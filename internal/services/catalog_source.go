package services

import (
	"context"
	"sync"
	"time"

	"solarbooks/internal/catalog"
)

// CatalogSource supplies the current category and card catalogue.
type CatalogSource interface {
	Catalog(ctx context.Context) (*catalog.Catalog, error)
}

// StaticCatalog always returns the same catalogue.
type StaticCatalog struct {
	C *catalog.Catalog
}

func (s StaticCatalog) Catalog(context.Context) (*catalog.Catalog, error) { return s.C, nil }

// FileCatalog reloads a YAML catalogue at most once per TTL so edits to the
// file are picked up without a restart.
type FileCatalog struct {
	Path string
	TTL  time.Duration

	mu       sync.Mutex
	cached   *catalog.Catalog
	loadedAt time.Time
}

func (f *FileCatalog) Catalog(context.Context) (*catalog.Catalog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cached != nil && time.Since(f.loadedAt) < f.TTL {
		return f.cached, nil
	}
	c, err := catalog.Load(f.Path)
	if err != nil {
		if f.cached != nil {
			// Keep serving the last good catalogue.
			return f.cached, nil
		}
		return nil, err
	}
	f.cached, f.loadedAt = c, time.Now()
	return c, nil
}
