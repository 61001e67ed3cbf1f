package orchestrator_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenderwatch/crawler/internal/cache"
	"github.com/tenderwatch/crawler/internal/logger"
	"github.com/tenderwatch/crawler/internal/metrics"
	"github.com/tenderwatch/crawler/internal/orchestrator"
	"github.com/tenderwatch/crawler/internal/sources"
	"github.com/tenderwatch/crawler/internal/tender"
)

// stubScraper is a controllable Scraper for exercising run lifecycles.
type stubScraper struct {
	mu      sync.Mutex
	calls   int
	records []tender.Record
	err     error
	block   chan struct{}
	panics  bool
}

func (s *stubScraper) Scrape(ctx context.Context, _ sources.Source) ([]tender.Record, error) {
	s.mu.Lock()
	s.calls++
	block := s.block
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.panics {
		panic("selector table corrupted")
	}
	return s.records, s.err
}

func (s *stubScraper) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testManager(t *testing.T) *sources.Manager {
	t.Helper()
	manager, err := sources.NewManager(sources.Defaults())
	require.NoError(t, err)
	return manager
}

func newOrchestrator(
	t *testing.T,
	scraper orchestrator.Scraper,
	store cache.Store,
	cfg orchestrator.Config,
	sinks ...orchestrator.Sink,
) *orchestrator.Orchestrator {
	t.Helper()
	return orchestrator.New(
		logger.NewNoOp(),
		testManager(t),
		scraper,
		store,
		metrics.NewMetrics(prometheus.NewRegistry()),
		cfg,
		sinks...,
	)
}

func waitForTerminal(t *testing.T, o *orchestrator.Orchestrator, sourceID string) orchestrator.JobState {
	t.Helper()

	var state orchestrator.JobState
	require.Eventually(t, func() bool {
		var err error
		state, err = o.Status(sourceID)
		require.NoError(t, err)
		return state.Status == orchestrator.StatusSucceeded || state.Status == orchestrator.StatusFailed
	}, 5*time.Second, 5*time.Millisecond)
	return state
}

func TestForceRun_PopulatesCache(t *testing.T) {
	t.Parallel()

	store := cache.NewMemoryStore()
	scraper := &stubScraper{records: []tender.Record{{Name: "road repair", PostedDate: "01-06-2026"}}}
	o := newOrchestrator(t, scraper, store, orchestrator.DefaultConfig())

	require.True(t, o.ForceRun("basar"))
	state := waitForTerminal(t, o, "basar")

	assert.Equal(t, orchestrator.StatusSucceeded, state.Status)
	assert.NotEmpty(t, state.RunID)
	assert.False(t, state.LastSuccessAt.IsZero())

	entry, err := store.Get(context.Background(), cache.Key("basar"))
	require.NoError(t, err)
	assert.Equal(t, "road repair", entry.Data[0].Name)
}

func TestForceRun_UnknownSource(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, &stubScraper{}, cache.NewMemoryStore(), orchestrator.DefaultConfig())
	assert.False(t, o.ForceRun("hogwarts"))
}

func TestForceRun_RejectsOverlappingRun(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	scraper := &stubScraper{block: block}
	o := newOrchestrator(t, scraper, cache.NewMemoryStore(), orchestrator.DefaultConfig())

	require.True(t, o.ForceRun("rkvalley"))
	require.Eventually(t, func() bool {
		state, err := o.Status("rkvalley")
		require.NoError(t, err)
		return state.Status == orchestrator.StatusRunning
	}, 5*time.Second, 5*time.Millisecond)

	// A second run of the same source must be refused while the first is
	// still in flight. A different source is unaffected.
	assert.False(t, o.ForceRun("rkvalley"))
	assert.True(t, o.ForceRun("ongole"))

	close(block)
	waitForTerminal(t, o, "rkvalley")
	assert.Equal(t, 2, scraper.callCount())
}

func TestForceRun_HonoursMinimumRunGap(t *testing.T) {
	t.Parallel()

	cfg := orchestrator.DefaultConfig()
	cfg.MinRunGap = time.Second
	scraper := &stubScraper{}
	o := newOrchestrator(t, scraper, cache.NewMemoryStore(), cfg)

	require.True(t, o.ForceRun("sklm"))
	waitForTerminal(t, o, "sklm")

	// Still inside the gap.
	assert.False(t, o.ForceRun("sklm"))

	time.Sleep(cfg.MinRunGap + 100*time.Millisecond)
	assert.True(t, o.ForceRun("sklm"))
	waitForTerminal(t, o, "sklm")
	assert.Equal(t, 2, scraper.callCount())
}

func TestFailedRun_LeavesCacheUntouched(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := cache.NewMemoryStore()
	previous := []tender.Record{{Name: "hostel furniture", PostedDate: "20-05-2026"}}
	require.NoError(t, store.Set(ctx, cache.Key("nuzvidu"), previous, time.Hour))

	cfg := orchestrator.DefaultConfig()
	cfg.MinRunGap = 0
	scraper := &stubScraper{err: errors.New("connection refused")}
	o := newOrchestrator(t, scraper, store, cfg)

	require.True(t, o.ForceRun("nuzvidu"))
	state := waitForTerminal(t, o, "nuzvidu")

	assert.Equal(t, orchestrator.StatusFailed, state.Status)
	assert.Contains(t, state.LastError, "connection refused")

	entry, err := store.Get(ctx, cache.Key("nuzvidu"))
	require.NoError(t, err)
	assert.Equal(t, "hostel furniture", entry.Data[0].Name)
}

func TestPanickingRun_MarkedFailedAndRecoverable(t *testing.T) {
	t.Parallel()

	cfg := orchestrator.DefaultConfig()
	cfg.MinRunGap = 0
	scraper := &stubScraper{panics: true}
	o := newOrchestrator(t, scraper, cache.NewMemoryStore(), cfg)

	require.True(t, o.ForceRun("basar"))
	state := waitForTerminal(t, o, "basar")
	assert.Equal(t, orchestrator.StatusFailed, state.Status)
	assert.Contains(t, state.LastError, "panic")

	// The source is not wedged; the next run proceeds.
	scraper.panics = false
	require.True(t, o.ForceRun("basar"))
	state = waitForTerminal(t, o, "basar")
	assert.Equal(t, orchestrator.StatusSucceeded, state.Status)
}

func TestForceRunAll(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, &stubScraper{}, cache.NewMemoryStore(), orchestrator.DefaultConfig())

	accepted := o.ForceRunAll()
	assert.ElementsMatch(t, testManager(t).IDs(), accepted)
	for _, id := range accepted {
		waitForTerminal(t, o, id)
	}
}

func TestSinksReceiveRecords_AndSinkErrorsDoNotFailRun(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		received []string
	)
	good := sinkFunc(func(_ context.Context, src sources.Source, _ []tender.Record) error {
		mu.Lock()
		received = append(received, src.ID)
		mu.Unlock()
		return nil
	})
	bad := sinkFunc(func(context.Context, sources.Source, []tender.Record) error {
		return errors.New("index unavailable")
	})

	scraper := &stubScraper{records: []tender.Record{{Name: "lab reagents"}}}
	o := newOrchestrator(t, scraper, cache.NewMemoryStore(), orchestrator.DefaultConfig(), bad, good)

	require.True(t, o.ForceRun("ongole"))
	state := waitForTerminal(t, o, "ongole")

	assert.Equal(t, orchestrator.StatusSucceeded, state.Status)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"ongole"}, received)
}

func TestStart_CallerContextDoesNotBoundRuns(t *testing.T) {
	t.Parallel()

	store := cache.NewMemoryStore()
	scraper := &stubScraper{records: []tender.Record{{Name: "mess supplies"}}}
	o := newOrchestrator(t, scraper, store, orchestrator.DefaultConfig())

	// An admin request's context dies as soon as its response is written;
	// runs triggered afterwards must not inherit that fate.
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, o.Start(ctx))
	defer o.Stop()
	cancel()

	require.True(t, o.ForceRun("basar"))
	state := waitForTerminal(t, o, "basar")

	assert.Equal(t, orchestrator.StatusSucceeded, state.Status)
	entry, err := store.Get(context.Background(), cache.Key("basar"))
	require.NoError(t, err)
	assert.Equal(t, "mess supplies", entry.Data[0].Name)
}

func TestStop_LetsInFlightRunComplete(t *testing.T) {
	t.Parallel()

	cfg := orchestrator.DefaultConfig()
	cfg.MinRunGap = 0
	block := make(chan struct{})
	scraper := &stubScraper{block: block, records: []tender.Record{{Name: "auditorium chairs"}}}
	o := newOrchestrator(t, scraper, cache.NewMemoryStore(), cfg)

	require.NoError(t, o.Start(context.Background()))
	require.True(t, o.ForceRun("rkvalley"))
	require.Eventually(t, func() bool {
		state, err := o.Status("rkvalley")
		require.NoError(t, err)
		return state.Status == orchestrator.StatusRunning
	}, 5*time.Second, 5*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		o.Stop()
		close(stopped)
	}()

	// Stop must wait for the run, not abort it.
	close(block)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the in-flight run finished")
	}

	state, err := o.Status("rkvalley")
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StatusSucceeded, state.Status)

	// Forced runs remain possible after the schedule is stopped.
	scraper.mu.Lock()
	scraper.block = nil
	scraper.mu.Unlock()
	require.True(t, o.ForceRun("rkvalley"))
	state = waitForTerminal(t, o, "rkvalley")
	assert.Equal(t, orchestrator.StatusSucceeded, state.Status)
}

// perSourceScraper fails for one source and succeeds for the rest.
type perSourceScraper struct {
	failing string
}

func (s *perSourceScraper) Scrape(_ context.Context, src sources.Source) ([]tender.Record, error) {
	if src.ID == s.failing {
		return nil, errors.New("no such host")
	}
	return []tender.Record{{Name: "campus notice"}}, nil
}

func TestScheduledRuns_FailingSourceIsIsolated(t *testing.T) {
	t.Parallel()

	cfg := orchestrator.DefaultConfig()
	cfg.Interval = 50 * time.Millisecond
	cfg.MinRunGap = 0
	store := cache.NewMemoryStore()
	o := newOrchestrator(t, &perSourceScraper{failing: "basar"}, store, cfg)

	require.NoError(t, o.Start(context.Background()))
	defer o.Stop()

	require.Eventually(t, func() bool {
		for _, state := range o.Statuses() {
			want := orchestrator.StatusSucceeded
			if state.SourceID == "basar" {
				want = orchestrator.StatusFailed
			}
			if state.Status != want {
				return false
			}
		}
		return true
	}, 10*time.Second, 10*time.Millisecond)

	state, err := o.Status("basar")
	require.NoError(t, err)
	assert.Contains(t, state.LastError, "no such host")

	_, err = store.Get(context.Background(), cache.Key("basar"))
	assert.ErrorIs(t, err, cache.ErrNotFound)
	entry, err := store.Get(context.Background(), cache.Key("ongole"))
	require.NoError(t, err)
	assert.Equal(t, "campus notice", entry.Data[0].Name)
}

func TestStartStop_Idempotent(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, &stubScraper{}, cache.NewMemoryStore(), orchestrator.DefaultConfig())

	require.NoError(t, o.Start(context.Background()))
	require.NoError(t, o.Start(context.Background()))
	assert.True(t, o.Running())

	o.Stop()
	o.Stop()
	assert.False(t, o.Running())
}

func TestStatuses_CoversAllSources(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, &stubScraper{}, cache.NewMemoryStore(), orchestrator.DefaultConfig())

	states := o.Statuses()
	require.Len(t, states, len(testManager(t).IDs()))
	for _, state := range states {
		assert.Equal(t, orchestrator.StatusIdle, state.Status)
	}
}

// sinkFunc adapts a function to the Sink interface.
type sinkFunc func(ctx context.Context, src sources.Source, records []tender.Record) error

func (f sinkFunc) Store(ctx context.Context, src sources.Source, records []tender.Record) error {
	return f(ctx, src, records)
}
