package cache

import (
	"context"
	"sync"
	"time"

	"github.com/tenderwatch/crawler/internal/tender"
)

// MemoryStore is the single-process cache backend. Expired entries are
// retained so the stale read path keeps working; each entry is replaced
// wholesale on the next successful write, so readers never observe a
// partially written value.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

var _ Store = (*MemoryStore)(nil)

// Get returns the entry if present and unexpired.
func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || entry.Expired(s.now()) {
		return nil, ErrNotFound
	}
	return entry, nil
}

// GetStale returns the entry regardless of expiry.
func (s *MemoryStore) GetStale(_ context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}

// Set stores fresh data under the key with the given TTL.
func (s *MemoryStore) Set(_ context.Context, key string, data []tender.Record, ttl time.Duration) error {
	return s.set(key, data, ttl, false)
}

// SetFallback stores placeholder data under the key. Fallback entries are
// flagged so readers can distinguish them from scraped data.
func (s *MemoryStore) SetFallback(_ context.Context, key string, data []tender.Record, ttl time.Duration) error {
	return s.set(key, data, ttl, true)
}

func (s *MemoryStore) set(key string, data []tender.Record, ttl time.Duration, isFallback bool) error {
	now := s.now()
	entry := &Entry{
		SourceID:  SourceID(key),
		Data:      data,
		FetchedAt: now,
		ExpiresAt: now.Add(ttl),
		Fallback:  isFallback,
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

// GetWithRefresh returns the unexpired entry or refreshes synchronously.
func (s *MemoryStore) GetWithRefresh(
	ctx context.Context,
	key string,
	ttl time.Duration,
	refresh RefreshFunc,
) (*Entry, error) {
	if entry, err := s.Get(ctx, key); err == nil {
		return entry, nil
	}

	data, err := refresh(ctx)
	if err != nil {
		return nil, err
	}

	if setErr := s.Set(ctx, key, data, ttl); setErr != nil {
		return nil, setErr
	}
	return s.GetStale(ctx, key)
}
