package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// maxResponseBodyBytes limits the size of fetched listing pages.
const maxResponseBodyBytes = 10 * 1024 * 1024 // 10 MB

// defaultFetchesPerSecond bounds request rate against a single deployment's
// upstream sites. Campus servers are small and sometimes rate-limit.
const defaultFetchesPerSecond = 2

// Fetcher retrieves a raw HTML page. The production implementation is
// HTTPFetcher; tests substitute their own.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) ([]byte, error)
}

// HTTPFetcher fetches pages over HTTP with a bounded timeout, a shared
// client-side rate limit, and a response size cap.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter
}

// HTTPFetcherConfig configures an HTTPFetcher.
type HTTPFetcherConfig struct {
	Timeout           time.Duration
	UserAgent         string
	RequestsPerSecond float64
}

// NewHTTPFetcher creates a fetcher with the given configuration. Redirects
// are followed by the underlying client.
func NewHTTPFetcher(cfg HTTPFetcherConfig) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaultFetchesPerSecond
	}

	return &HTTPFetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

// Fetch performs the GET request. Non-2xx responses are returned as a
// StatusError so retry classification can treat 429/5xx as transient.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if reqErr != nil {
		return nil, fmt.Errorf("create request: %w", reqErr)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, doErr := f.client.Do(req)
	if doErr != nil {
		return nil, fmt.Errorf("http fetch: %w", doErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{URL: pageURL, Code: resp.StatusCode}
	}

	limited := io.LimitReader(resp.Body, maxResponseBodyBytes)

	body, readErr := io.ReadAll(limited)
	if readErr != nil {
		return nil, fmt.Errorf("read response body: %w", readErr)
	}

	return body, nil
}
