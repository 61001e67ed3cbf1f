// Package query is the read-side facade: it answers tender lookups from
// the cache when possible, scrapes synchronously when the cache has
// nothing usable, and degrades to stale or static fallback data so a
// lookup for a known source always produces a response.
package query

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tenderwatch/crawler/internal/cache"
	"github.com/tenderwatch/crawler/internal/fallback"
	"github.com/tenderwatch/crawler/internal/logger"
	"github.com/tenderwatch/crawler/internal/metrics"
	"github.com/tenderwatch/crawler/internal/sources"
	"github.com/tenderwatch/crawler/internal/tender"
)

// Scraper fetches the current tender listing for a source.
type Scraper interface {
	Scrape(ctx context.Context, src sources.Source) ([]tender.Record, error)
}

// Config holds facade tuning.
type Config struct {
	// TTL applied to entries written by on-demand refreshes.
	TTL time.Duration `mapstructure:"ttl"`
	// FallbackTTL applied to cached fallback placeholders. Kept short so
	// a recovered site is retried quickly.
	FallbackTTL time.Duration `mapstructure:"fallback_ttl"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		TTL:         time.Hour,
		FallbackTTL: 5 * time.Minute,
	}
}

// Facade answers tender queries.
type Facade struct {
	log      logger.Interface
	manager  *sources.Manager
	scraper  Scraper
	store    cache.Store
	fallback *fallback.Provider
	metrics  *metrics.Metrics
	cfg      Config

	// group collapses concurrent refreshes of the same source into one
	// upstream scrape.
	group singleflight.Group
}

// New creates a query facade.
func New(
	log logger.Interface,
	manager *sources.Manager,
	scraper Scraper,
	store cache.Store,
	provider *fallback.Provider,
	m *metrics.Metrics,
	cfg Config,
) *Facade {
	return &Facade{
		log:      log,
		manager:  manager,
		scraper:  scraper,
		store:    store,
		fallback: provider,
		metrics:  m,
		cfg:      cfg,
	}
}

// GetTenderData returns the tender listing for one source. Known sources
// always yield a successful response, served in preference order: fresh
// cache, synchronous scrape, stale cache, static fallback. Unknown
// sources yield sources.ErrUnknownSource.
func (f *Facade) GetTenderData(ctx context.Context, sourceID string) (*tender.Response, error) {
	src, err := f.manager.Get(sourceID)
	if err != nil {
		return nil, err
	}

	key := cache.Key(src.ID)
	if entry, cacheErr := f.store.Get(ctx, key); cacheErr == nil {
		f.metrics.IncCacheRead(src.ID, metrics.CacheHit)
		if entry.Fallback {
			f.metrics.IncFallbackServe(src.ID)
		}
		return tender.NewResponse(src.ID, entry.Data, true, entry.Fallback), nil
	}
	f.metrics.IncCacheRead(src.ID, metrics.CacheMiss)

	result, refreshErr, _ := f.group.Do(src.ID, func() (any, error) {
		return f.refresh(ctx, src)
	})
	if refreshErr != nil {
		return nil, refreshErr
	}
	return result.(*tender.Response), nil
}

// GetTenderDataPage returns one page of the listing.
func (f *Facade) GetTenderDataPage(ctx context.Context, sourceID string, page, limit int) (*tender.PageResponse, error) {
	resp, err := f.GetTenderData(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	return tender.Paginate(resp, page, limit), nil
}

// refresh is the cache-miss path, executed once per source at a time.
func (f *Facade) refresh(ctx context.Context, src sources.Source) (*tender.Response, error) {
	start := time.Now()
	entry, err := f.store.GetWithRefresh(ctx, cache.Key(src.ID), f.cfg.TTL, func(ctx context.Context) ([]tender.Record, error) {
		return f.scraper.Scrape(ctx, src)
	})
	if err == nil {
		// A concurrent writer may have refreshed first; in that case the
		// entry predates this call and counts as a cache read.
		cached := entry.FetchedAt.Before(start)
		return tender.NewResponse(src.ID, entry.Data, cached, entry.Fallback), nil
	}

	f.log.Warn("On-demand scrape failed, degrading",
		"source_id", src.ID, "error", err)

	if stale, staleErr := f.store.GetStale(ctx, cache.Key(src.ID)); staleErr == nil && !stale.Fallback {
		f.metrics.IncCacheRead(src.ID, metrics.CacheStale)
		return tender.NewResponse(src.ID, stale.Data, true, false), nil
	} else if staleErr != nil && !errors.Is(staleErr, cache.ErrNotFound) {
		f.log.Error("Stale cache read failed", "source_id", src.ID, "error", staleErr)
	}

	records := f.fallback.Records(src)
	f.metrics.IncFallbackServe(src.ID)
	if setErr := f.store.SetFallback(ctx, cache.Key(src.ID), records, f.cfg.FallbackTTL); setErr != nil {
		f.log.Error("Caching fallback data failed", "source_id", src.ID, "error", setErr)
	}
	return tender.NewResponse(src.ID, records, false, true), nil
}
