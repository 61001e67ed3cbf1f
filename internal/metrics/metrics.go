// Package metrics exposes Prometheus instrumentation for the scrape
// pipeline, cache, and fallback paths.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache read outcomes.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheStale = "stale"
)

// Scrape outcomes.
const (
	ScrapeSuccess = "success"
	ScrapeFailure = "failure"
)

// Metrics holds all Prometheus collectors for the application.
type Metrics struct {
	ScrapesTotal   *prometheus.CounterVec
	ScrapeDuration *prometheus.HistogramVec
	CacheReads     *prometheus.CounterVec
	FallbackServes *prometheus.CounterVec
	TendersCached  *prometheus.GaugeVec
}

// NewMetrics registers all collectors against the given registerer.
// Pass prometheus.DefaultRegisterer in production; tests use their own
// registry so parallel tests never collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ScrapesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tenderwatch_scrapes_total",
			Help: "Scrape attempts by source and outcome",
		}, []string{"source", "status"}),
		ScrapeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tenderwatch_scrape_duration_seconds",
			Help:    "Wall-clock duration of scrape attempts",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		CacheReads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tenderwatch_cache_reads_total",
			Help: "Cache lookups by outcome",
		}, []string{"source", "result"}),
		FallbackServes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tenderwatch_fallback_serves_total",
			Help: "Responses served from static fallback data",
		}, []string{"source"}),
		TendersCached: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tenderwatch_tenders_cached",
			Help: "Number of tender records currently cached per source",
		}, []string{"source"}),
	}
}

// ObserveScrape records one scrape attempt.
func (m *Metrics) ObserveScrape(source, status string, elapsed time.Duration) {
	m.ScrapesTotal.WithLabelValues(source, status).Inc()
	m.ScrapeDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// IncCacheRead records one cache lookup outcome.
func (m *Metrics) IncCacheRead(source, result string) {
	m.CacheReads.WithLabelValues(source, result).Inc()
}

// IncFallbackServe records one fallback response.
func (m *Metrics) IncFallbackServe(source string) {
	m.FallbackServes.WithLabelValues(source).Inc()
}

// SetTendersCached records the cached record count for a source.
func (m *Metrics) SetTendersCached(source string, count int) {
	m.TendersCached.WithLabelValues(source).Set(float64(count))
}
