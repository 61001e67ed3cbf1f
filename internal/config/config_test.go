package config_test

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenderwatch/crawler/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, config.BackendMemory, cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Query.TTL)
	assert.Equal(t, time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, 3, cfg.Scraper.MaxAttempts)
	assert.False(t, cfg.Archive.Enabled)
	assert.False(t, cfg.Search.Enabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.Set("server.address", ":9090")
	v.Set("cache.backend", "redis")
	v.Set("cache.redis.addr", "localhost:6379")
	v.Set("scheduler.interval", "30m")
	v.Set("query.ttl", "2h")

	cfg, err := config.Load(v)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, config.BackendRedis, cfg.Cache.Backend)
	assert.Equal(t, "localhost:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, 2*time.Hour, cfg.Query.TTL)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		set  map[string]any
	}{
		{"unknown cache backend", map[string]any{"cache.backend": "memcached"}},
		{"redis without addr", map[string]any{"cache.backend": "redis"}},
		{"search without addresses", map[string]any{"search.enabled": true}},
		{"zero retry attempts", map[string]any{"scraper.max_attempts": 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := viper.New()
			for key, value := range tt.set {
				v.Set(key, value)
			}

			_, err := config.Load(v)
			assert.Error(t, err)
		})
	}
}
