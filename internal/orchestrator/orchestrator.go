// Package orchestrator schedules periodic scrapes across all configured
// sources and tracks per-source job state. One scrape runs per source at
// a time; completed results flow into the cache and any registered sinks.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/tenderwatch/crawler/internal/cache"
	"github.com/tenderwatch/crawler/internal/logger"
	"github.com/tenderwatch/crawler/internal/metrics"
	"github.com/tenderwatch/crawler/internal/sources"
	"github.com/tenderwatch/crawler/internal/tender"
)

// Status is the lifecycle state of a source's scrape job.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// JobState is a snapshot of one source's scrape job.
type JobState struct {
	SourceID       string    `json:"sourceId"`
	Status         Status    `json:"status"`
	RunID          string    `json:"runId,omitempty"`
	LastRunAt      time.Time `json:"lastRunAt,omitzero"`
	LastSuccessAt  time.Time `json:"lastSuccessAt,omitzero"`
	LastError      string    `json:"lastError,omitempty"`
	NextEligibleAt time.Time `json:"nextEligibleAt,omitzero"`
}

// Scraper fetches the current tender listing for a source.
type Scraper interface {
	Scrape(ctx context.Context, src sources.Source) ([]tender.Record, error)
}

// Sink receives successfully scraped records, e.g. the archive or the
// search indexer. Sink errors are logged but never fail the run; the
// cache write is the only store the run's outcome depends on.
type Sink interface {
	Store(ctx context.Context, src sources.Source, records []tender.Record) error
}

// Config holds orchestrator tuning.
type Config struct {
	// Interval between scheduled scrapes of each source.
	Interval time.Duration `mapstructure:"interval"`
	// MinRunGap is the shortest allowed gap between two runs of the same
	// source; runs requested earlier, forced or scheduled, are rejected.
	MinRunGap time.Duration `mapstructure:"min_run_gap"`
	// CacheTTL applied to entries written after a successful scrape.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// RunTimeout bounds a single scrape run.
	RunTimeout time.Duration `mapstructure:"run_timeout"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Interval:   time.Hour,
		MinRunGap:  time.Minute,
		CacheTTL:   time.Hour,
		RunTimeout: 2 * time.Minute,
	}
}

// Orchestrator drives the scrape schedule.
type Orchestrator struct {
	log     logger.Interface
	manager *sources.Manager
	scraper Scraper
	store   cache.Store
	sinks   []Sink
	metrics *metrics.Metrics
	cfg     Config

	mu      sync.Mutex
	states  map[string]*JobState
	cron    *cron.Cron
	running bool
	wg      sync.WaitGroup
}

// New creates an orchestrator over the given sources. Sinks are optional.
func New(
	log logger.Interface,
	manager *sources.Manager,
	scraper Scraper,
	store cache.Store,
	m *metrics.Metrics,
	cfg Config,
	sinks ...Sink,
) *Orchestrator {
	states := make(map[string]*JobState)
	for _, id := range manager.IDs() {
		states[id] = &JobState{SourceID: id, Status: StatusIdle}
	}

	return &Orchestrator{
		log:     log,
		manager: manager,
		scraper: scraper,
		store:   store,
		sinks:   sinks,
		metrics: m,
		cfg:     cfg,
		states:  states,
	}
}

// Start begins the periodic schedule. Calling Start on a running
// orchestrator is a no-op. The context covers startup only; run
// lifetimes are bounded by RunTimeout, never by the caller's context,
// so an admin request starting the scheduler does not doom later runs
// when it completes.
func (o *Orchestrator) Start(_ context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return nil
	}

	o.cron = cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))

	spec := fmt.Sprintf("@every %s", o.cfg.Interval)
	for _, src := range o.manager.All() {
		src := src
		if _, err := o.cron.AddFunc(spec, func() {
			o.runSource(context.Background(), src, false)
		}); err != nil {
			return fmt.Errorf("scheduling source %s: %w", src.ID, err)
		}
	}

	o.cron.Start()
	o.running = true
	o.log.Info("Scrape scheduler started",
		"sources", len(o.manager.IDs()),
		"interval", o.cfg.Interval.String())
	return nil
}

// Stop halts the schedule and waits for in-flight runs to finish on
// their own; it never cancels them. Calling Stop on a stopped
// orchestrator is a no-op.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	cronDone := o.cron.Stop()
	o.mu.Unlock()

	<-cronDone.Done()
	o.wg.Wait()
	o.log.Info("Scrape scheduler stopped")
}

// Running reports whether the schedule is active.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// ForceRun triggers an immediate scrape of one source, outside the
// schedule. It returns false if the source is unknown, already running,
// or inside its minimum run gap. The scrape itself runs asynchronously.
func (o *Orchestrator) ForceRun(sourceID string) bool {
	src, err := o.manager.Get(sourceID)
	if err != nil {
		return false
	}

	runID, ok := o.tryBegin(src.ID)
	if !ok {
		return false
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.execute(context.Background(), src, runID)
	}()
	return true
}

// ForceRunAll triggers an immediate scrape of every source and returns
// the IDs that were accepted.
func (o *Orchestrator) ForceRunAll() []string {
	var accepted []string
	for _, id := range o.manager.IDs() {
		if o.ForceRun(id) {
			accepted = append(accepted, id)
		}
	}
	return accepted
}

// Statuses returns a snapshot of every source's job state, ordered by
// source ID.
func (o *Orchestrator) Statuses() []JobState {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]JobState, 0, len(o.states))
	for _, state := range o.states {
		out = append(out, *state)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceID < out[j].SourceID })
	return out
}

// Status returns the job state for one source.
func (o *Orchestrator) Status(sourceID string) (JobState, error) {
	if _, err := o.manager.Get(sourceID); err != nil {
		return JobState{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	return *o.states[sourceID], nil
}

// runSource is the scheduled entry point; rejected runs are skipped
// silently apart from a debug line.
func (o *Orchestrator) runSource(ctx context.Context, src sources.Source, forced bool) {
	runID, ok := o.tryBegin(src.ID)
	if !ok {
		o.log.Debug("Skipping scrape run", "source_id", src.ID, "forced", forced)
		return
	}
	o.execute(ctx, src, runID)
}

// tryBegin transitions the source to running if it is eligible: not
// already running and past its minimum run gap.
func (o *Orchestrator) tryBegin(sourceID string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	state := o.states[sourceID]
	now := time.Now()
	if state.Status == StatusRunning || now.Before(state.NextEligibleAt) {
		return "", false
	}

	runID := uuid.New().String()
	state.Status = StatusRunning
	state.RunID = runID
	state.LastRunAt = now
	state.NextEligibleAt = now.Add(o.cfg.MinRunGap)
	return runID, true
}

// execute performs one scrape run and records its outcome. A failed run
// never touches the cache, so previously cached data stays served.
func (o *Orchestrator) execute(ctx context.Context, src sources.Source, runID string) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("Scrape run panicked", "source_id", src.ID, "run_id", runID, "panic", r)
			o.finish(src.ID, fmt.Errorf("panic: %v", r))
		}
	}()

	runCtx := ctx
	if o.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.cfg.RunTimeout)
		defer cancel()
	}

	o.log.Info("Scrape run started", "source_id", src.ID, "run_id", runID)
	start := time.Now()

	records, err := o.scraper.Scrape(runCtx, src)
	elapsed := time.Since(start)
	if err != nil {
		o.metrics.ObserveScrape(src.ID, metrics.ScrapeFailure, elapsed)
		o.log.Error("Scrape run failed",
			"source_id", src.ID, "run_id", runID, "elapsed", elapsed.String(), "error", err)
		o.finish(src.ID, err)
		return
	}

	if cacheErr := o.store.Set(runCtx, cache.Key(src.ID), records, o.cfg.CacheTTL); cacheErr != nil {
		o.metrics.ObserveScrape(src.ID, metrics.ScrapeFailure, elapsed)
		o.log.Error("Caching scrape result failed",
			"source_id", src.ID, "run_id", runID, "error", cacheErr)
		o.finish(src.ID, cacheErr)
		return
	}

	for _, sink := range o.sinks {
		if sinkErr := sink.Store(runCtx, src, records); sinkErr != nil {
			o.log.Warn("Sink rejected scrape result",
				"source_id", src.ID, "run_id", runID, "error", sinkErr)
		}
	}

	o.metrics.ObserveScrape(src.ID, metrics.ScrapeSuccess, elapsed)
	o.metrics.SetTendersCached(src.ID, len(records))
	o.log.Info("Scrape run completed",
		"source_id", src.ID, "run_id", runID,
		"tenders", len(records), "elapsed", elapsed.String())
	o.finish(src.ID, nil)
}

// finish records the terminal state of a run.
func (o *Orchestrator) finish(sourceID string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	state := o.states[sourceID]
	if err != nil {
		state.Status = StatusFailed
		state.LastError = err.Error()
		return
	}
	state.Status = StatusSucceeded
	state.LastError = ""
	state.LastSuccessAt = time.Now()
}
