// Package app wires the application together: configuration, logging,
// the scrape pipeline, cache backend, optional archive and search, the
// scheduler, and the HTTP API.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tenderwatch/crawler/internal/api"
	"github.com/tenderwatch/crawler/internal/archive"
	"github.com/tenderwatch/crawler/internal/cache"
	"github.com/tenderwatch/crawler/internal/config"
	"github.com/tenderwatch/crawler/internal/fallback"
	"github.com/tenderwatch/crawler/internal/logger"
	"github.com/tenderwatch/crawler/internal/metrics"
	"github.com/tenderwatch/crawler/internal/orchestrator"
	"github.com/tenderwatch/crawler/internal/query"
	"github.com/tenderwatch/crawler/internal/scraper"
	"github.com/tenderwatch/crawler/internal/search"
	"github.com/tenderwatch/crawler/internal/sources"
)

// App holds the assembled application components.
type App struct {
	Log          logger.Interface
	Config       *config.Config
	Sources      *sources.Manager
	Adapter      *scraper.Adapter
	Store        cache.Store
	Facade       *query.Facade
	Orchestrator *orchestrator.Orchestrator
	Metrics      *metrics.Metrics

	// Archive and Searcher are nil when disabled in configuration.
	Archive  *archive.Repository
	Searcher *search.Indexer

	closers []func() error
}

// New assembles the application from configuration.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log, err := logger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	manager, err := sources.NewManager(sources.Defaults())
	if err != nil {
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}

	a := &App{Log: log, Config: cfg, Sources: manager}

	a.buildScraper()
	if storeErr := a.buildStore(ctx); storeErr != nil {
		return nil, storeErr
	}

	sinks, err := a.buildSinks(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Metrics = metrics.NewMetrics(prometheus.DefaultRegisterer)
	a.Facade = query.New(log, manager, a.Adapter, a.Store, fallback.NewProvider(), a.Metrics, cfg.Query)
	a.Orchestrator = orchestrator.New(log, manager, a.Adapter, a.Store, a.Metrics, cfg.Scheduler, sinks...)
	return a, nil
}

// Server builds the HTTP API server over the assembled components.
func (a *App) Server() *api.Server {
	var searcher api.Searcher
	if a.Searcher != nil {
		searcher = a.Searcher
	}

	return api.NewServer(api.Params{
		Logger:    a.Log,
		Config:    a.Config.Server,
		Sources:   a.Sources,
		Querier:   a.Facade,
		Scheduler: a.Orchestrator,
		Searcher:  searcher,
	})
}

// Close releases held connections in reverse acquisition order.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (a *App) buildScraper() {
	fetcher := scraper.NewHTTPFetcher(scraper.HTTPFetcherConfig{
		Timeout:           a.Config.Scraper.Timeout,
		UserAgent:         a.Config.Scraper.UserAgent,
		RequestsPerSecond: a.Config.Scraper.RequestsPerSecond,
	})

	retryCfg := scraper.DefaultRetryConfig()
	retryCfg.MaxAttempts = a.Config.Scraper.MaxAttempts

	discoverer := scraper.NewDiscoverer(a.Log,
		a.Config.Scraper.UserAgent, a.Config.Scraper.Timeout, a.Config.Scraper.MaxPages)
	a.Adapter = scraper.NewAdapter(fetcher, a.Log,
		scraper.WithRetryConfig(retryCfg),
		scraper.WithDiscoverer(discoverer),
	)
}

func (a *App) buildStore(ctx context.Context) error {
	if a.Config.Cache.Backend != config.BackendRedis {
		a.Store = cache.NewMemoryStore()
		return nil
	}

	client, err := cache.NewRedisClient(ctx, a.Config.Cache.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect cache backend: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	a.Store = cache.NewRedisStore(client, cache.WithStaleRetention(a.Config.Cache.StaleRetention))
	return nil
}

func (a *App) buildSinks(ctx context.Context) ([]orchestrator.Sink, error) {
	var sinks []orchestrator.Sink

	if a.Config.Archive.Enabled {
		db, err := archive.NewPostgresConnection(a.Config.Archive.Postgres)
		if err != nil {
			return nil, fmt.Errorf("failed to connect archive database: %w", err)
		}
		a.closers = append(a.closers, db.Close)

		repo := archive.NewRepository(db)
		if migrateErr := repo.Migrate(ctx); migrateErr != nil {
			return nil, migrateErr
		}
		a.Archive = repo
		sinks = append(sinks, repo)
	}

	if a.Config.Search.Enabled {
		client, err := search.NewClient(a.Config.Search.Elasticsearch)
		if err != nil {
			return nil, fmt.Errorf("failed to connect search backend: %w", err)
		}

		indexer := search.NewIndexer(client, a.Log, a.Config.Search.Index)
		if indexErr := indexer.EnsureIndex(ctx); indexErr != nil {
			return nil, indexErr
		}
		a.Searcher = indexer
		sinks = append(sinks, indexer)
	}

	return sinks, nil
}
