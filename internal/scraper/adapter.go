// Package scraper implements the per-source site adapter: fetching a
// campus tender listing page with retries and parsing it into normalized
// records.
package scraper

import (
	"context"

	"github.com/tenderwatch/crawler/internal/logger"
	"github.com/tenderwatch/crawler/internal/sources"
	"github.com/tenderwatch/crawler/internal/tender"
)

// Adapter scrapes tender listing pages. One adapter instance serves all
// sources; the per-source markup quirks live in the source's strategy.
type Adapter struct {
	fetcher    Fetcher
	discoverer *Discoverer
	log        logger.Interface
	retryCfg   RetryConfig
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithRetryConfig overrides the default retry policy.
func WithRetryConfig(cfg RetryConfig) AdapterOption {
	return func(a *Adapter) {
		a.retryCfg = cfg
	}
}

// WithDiscoverer enables pagination discovery for enumeration scrapes.
func WithDiscoverer(d *Discoverer) AdapterOption {
	return func(a *Adapter) {
		a.discoverer = d
	}
}

// NewAdapter creates a site adapter using the given fetcher.
func NewAdapter(fetcher Fetcher, log logger.Interface, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		fetcher:  fetcher,
		log:      log,
		retryCfg: DefaultRetryConfig(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Scrape fetches and parses the source's listing page. Transient fetch
// failures are retried with exponential backoff; exhausted retries and
// parse failures surface as a ScrapeError. The adapter never returns
// partial data alongside an error.
func (a *Adapter) Scrape(ctx context.Context, src sources.Source) ([]tender.Record, error) {
	records, err := a.scrapePage(ctx, src, src.ListingURL())
	if err != nil {
		return nil, &ScrapeError{SourceID: src.ID, Err: err}
	}

	a.log.Info("scrape completed",
		"source", src.ID,
		"records", len(records))

	return records, nil
}

// scrapePage fetches one page with retries and extracts records from it.
func (a *Adapter) scrapePage(ctx context.Context, src sources.Source, pageURL string) ([]tender.Record, error) {
	var body []byte

	fetchErr := Retry(ctx, a.retryCfg, func() error {
		fetched, err := a.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			a.log.Warn("fetch attempt failed",
				"source", src.ID,
				"url", pageURL,
				"error", err.Error())
			return err
		}
		body = fetched
		return nil
	})
	if fetchErr != nil {
		return nil, fetchErr
	}

	return ExtractRecords(src, body)
}

// ScrapeUpTo accumulates up to n unique records for the source, probing
// the configured page variants and any discovered pagination links after
// the main listing page. Variant failures are logged and skipped; only a
// failure of the main page fails the whole call. Deduplication is by
// (name, postedDate) as pages frequently overlap.
func (a *Adapter) ScrapeUpTo(ctx context.Context, src sources.Source, n int) ([]tender.Record, error) {
	records, err := a.Scrape(ctx, src)
	if err != nil {
		return nil, err
	}

	if n <= 0 || len(records) >= n {
		return capRecords(records, n), nil
	}

	for _, pageURL := range a.candidatePages(ctx, src) {
		extra, pageErr := a.scrapePage(ctx, src, pageURL)
		if pageErr != nil {
			a.log.Warn("page variant skipped",
				"source", src.ID,
				"url", pageURL,
				"error", pageErr.Error())
			continue
		}

		records = tender.Dedupe(append(records, extra...))
		if len(records) >= n {
			break
		}
	}

	return capRecords(records, n), nil
}

// candidatePages lists additional listing URLs to probe: configured page
// variants first, then pagination links discovered by crawling the
// listing page itself.
func (a *Adapter) candidatePages(ctx context.Context, src sources.Source) []string {
	seen := make(map[string]struct{})
	var pages []string

	appendPage := func(pageURL string) {
		if _, dup := seen[pageURL]; dup || pageURL == src.ListingURL() {
			return
		}
		seen[pageURL] = struct{}{}
		pages = append(pages, pageURL)
	}

	for _, variant := range src.Strategy.PageVariants {
		appendPage(ResolveURL(src.BaseURL, variant))
	}

	if a.discoverer != nil {
		discovered, err := a.discoverer.ListingVariants(ctx, src)
		if err != nil {
			a.log.Warn("pagination discovery failed",
				"source", src.ID,
				"error", err.Error())
		}
		for _, pageURL := range discovered {
			appendPage(pageURL)
		}
	}

	return pages
}

// capRecords trims the record set to at most n entries. n <= 0 means no cap.
func capRecords(records []tender.Record, n int) []tender.Record {
	if n > 0 && len(records) > n {
		return records[:n]
	}
	return records
}
