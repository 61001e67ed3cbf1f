// Package cache provides the per-source tender cache: a key-value store
// with TTL, a stale read path for fallback-on-error, and a synchronous
// refresh-through operation.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tenderwatch/crawler/internal/tender"
)

// ErrNotFound is returned when no usable entry exists for a key. Get also
// returns it for entries past their TTL; GetStale only when the key has
// never been written.
var ErrNotFound = errors.New("cache entry not found")

// Entry is one cached scrape result.
type Entry struct {
	SourceID  string          `json:"sourceId"`
	Data      []tender.Record `json:"data"`
	FetchedAt time.Time       `json:"fetchedAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Fallback  bool            `json:"fallback"`
}

// Expired reports whether the entry's TTL has elapsed.
func (e *Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// RefreshFunc produces fresh data for a key, typically a site adapter
// scrape bound to one source.
type RefreshFunc func(ctx context.Context) ([]tender.Record, error)

// Store is the cache contract shared by the in-memory and Redis
// implementations. Reads never trigger I/O against the upstream source;
// only GetWithRefresh may invoke the refresh function, and it does so
// synchronously in the caller's goroutine. Entries for different keys are
// fully independent, including their TTLs.
type Store interface {
	// Get returns the entry if present and unexpired, ErrNotFound otherwise.
	Get(ctx context.Context, key string) (*Entry, error)
	// GetStale returns the entry regardless of expiry, ErrNotFound only
	// when the key has never been written.
	GetStale(ctx context.Context, key string) (*Entry, error)
	// Set stores fresh data under the key with the given TTL.
	Set(ctx context.Context, key string, data []tender.Record, ttl time.Duration) error
	// SetFallback stores placeholder data under the key, flagged so
	// readers can tell it apart from scraped data.
	SetFallback(ctx context.Context, key string, data []tender.Record, ttl time.Duration) error
	// GetWithRefresh returns the unexpired entry if present; otherwise it
	// calls refresh synchronously, stores the result, and returns the new
	// entry. A refresh failure is propagated and the previous (stale)
	// entry is left untouched for callers that want to serve it.
	GetWithRefresh(ctx context.Context, key string, ttl time.Duration, refresh RefreshFunc) (*Entry, error)
}

// keyPrefix namespaces tender entries, which matters when the Redis
// backend shares a database with other consumers.
const keyPrefix = "tenders:"

// Key returns the cache key for a source.
func Key(sourceID string) string {
	return keyPrefix + sourceID
}

// SourceID recovers the source ID from a cache key.
func SourceID(key string) string {
	return strings.TrimPrefix(key, keyPrefix)
}
