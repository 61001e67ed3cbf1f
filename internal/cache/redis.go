package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tenderwatch/crawler/internal/tender"
)

// defaultStaleRetention is how long an entry outlives its logical TTL in
// Redis so the stale read path works across a prolonged outage.
const defaultStaleRetention = 7 * 24 * time.Hour

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NewRedisClient connects to Redis and verifies the connection with a ping.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// RedisStore is the shared cache backend. Expiry is tracked logically via
// the entry's ExpiresAt field; the Redis key itself lives longer (the
// stale retention window) so expired entries stay readable through
// GetStale until a write replaces them or retention lapses.
type RedisStore struct {
	client         *redis.Client
	staleRetention time.Duration
	now            func() time.Time
}

// RedisStoreOption customises a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithStaleRetention overrides how long expired entries are kept readable.
func WithStaleRetention(d time.Duration) RedisStoreOption {
	return func(s *RedisStore) { s.staleRetention = d }
}

// NewRedisStore wraps a connected Redis client as a Store.
func NewRedisStore(client *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client:         client,
		staleRetention: defaultStaleRetention,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Store = (*RedisStore)(nil)

// Get returns the entry if present and unexpired.
func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	entry, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if entry.Expired(s.now()) {
		return nil, ErrNotFound
	}
	return entry, nil
}

// GetStale returns the entry regardless of logical expiry.
func (s *RedisStore) GetStale(ctx context.Context, key string) (*Entry, error) {
	return s.load(ctx, key)
}

func (s *RedisStore) load(ctx context.Context, key string) (*Entry, error) {
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache key %s: %w", key, err)
	}

	var entry Entry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, fmt.Errorf("decoding cache key %s: %w", key, err)
	}
	return &entry, nil
}

// Set stores fresh data under the key with the given TTL.
func (s *RedisStore) Set(ctx context.Context, key string, data []tender.Record, ttl time.Duration) error {
	return s.set(ctx, key, data, ttl, false)
}

// SetFallback stores placeholder data under the key, flagged as fallback.
func (s *RedisStore) SetFallback(ctx context.Context, key string, data []tender.Record, ttl time.Duration) error {
	return s.set(ctx, key, data, ttl, true)
}

func (s *RedisStore) set(ctx context.Context, key string, data []tender.Record, ttl time.Duration, isFallback bool) error {
	now := s.now()
	entry := Entry{
		SourceID:  SourceID(key),
		Data:      data,
		FetchedAt: now,
		ExpiresAt: now.Add(ttl),
		Fallback:  isFallback,
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache key %s: %w", key, err)
	}

	physicalTTL := ttl + s.staleRetention
	if physicalTTL <= 0 {
		physicalTTL = s.staleRetention
	}
	if err := s.client.Set(ctx, key, payload, physicalTTL).Err(); err != nil {
		return fmt.Errorf("writing cache key %s: %w", key, err)
	}
	return nil
}

// GetWithRefresh returns the unexpired entry or refreshes synchronously.
// On refresh failure the previous entry is left in place for stale reads.
func (s *RedisStore) GetWithRefresh(
	ctx context.Context,
	key string,
	ttl time.Duration,
	refresh RefreshFunc,
) (*Entry, error) {
	if entry, err := s.Get(ctx, key); err == nil {
		return entry, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
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
