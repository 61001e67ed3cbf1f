// Package config loads application configuration from YAML files and
// environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/tenderwatch/crawler/internal/api"
	"github.com/tenderwatch/crawler/internal/archive"
	"github.com/tenderwatch/crawler/internal/cache"
	"github.com/tenderwatch/crawler/internal/logger"
	"github.com/tenderwatch/crawler/internal/orchestrator"
	"github.com/tenderwatch/crawler/internal/query"
	"github.com/tenderwatch/crawler/internal/search"
)

// Cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// AppConfig holds application-wide settings.
type AppConfig struct {
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// ScraperConfig holds HTTP scraping settings.
type ScraperConfig struct {
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	MaxPages          int           `mapstructure:"max_pages"`
}

// CacheConfig selects and tunes the cache backend.
type CacheConfig struct {
	Backend        string            `mapstructure:"backend"`
	Redis          cache.RedisConfig `mapstructure:"redis"`
	StaleRetention time.Duration     `mapstructure:"stale_retention"`
}

// ArchiveConfig wraps the PostgreSQL settings with an enable switch.
type ArchiveConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Postgres archive.Config `mapstructure:"postgres"`
	// Retention is how long snapshots are kept before pruning.
	Retention time.Duration `mapstructure:"retention"`
}

// SearchConfig wraps the Elasticsearch settings with an enable switch.
type SearchConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Elasticsearch search.Config `mapstructure:"elasticsearch"`
	Index         string        `mapstructure:"index"`
}

// Config is the root application configuration.
type Config struct {
	App       AppConfig           `mapstructure:"app"`
	Logger    logger.Config       `mapstructure:"logger"`
	Server    api.Config          `mapstructure:"server"`
	Scraper   ScraperConfig       `mapstructure:"scraper"`
	Cache     CacheConfig         `mapstructure:"cache"`
	Query     query.Config        `mapstructure:"query"`
	Scheduler orchestrator.Config `mapstructure:"scheduler"`
	Archive   ArchiveConfig       `mapstructure:"archive"`
	Search    SearchConfig        `mapstructure:"search"`
}

// Load decodes the configuration held by the given viper instance,
// applying defaults for anything unset.
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail at an awkward time.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	if c.Cache.Backend == BackendRedis && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache backend %q requires cache.redis.addr", BackendRedis)
	}
	if c.Search.Enabled && len(c.Search.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("search requires search.elasticsearch.addresses")
	}
	if c.Scraper.MaxAttempts < 1 {
		return fmt.Errorf("scraper.max_attempts must be at least 1")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "production")
	v.SetDefault("app.debug", false)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.rate_limit", 10)
	v.SetDefault("server.rate_burst", 20)

	v.SetDefault("scraper.user_agent", "TenderWatch/1.0 (+https://github.com/tenderwatch/crawler)")
	v.SetDefault("scraper.timeout", 30*time.Second)
	v.SetDefault("scraper.requests_per_second", 1.0)
	v.SetDefault("scraper.max_attempts", 3)
	v.SetDefault("scraper.max_pages", 3)

	v.SetDefault("cache.backend", BackendMemory)
	v.SetDefault("cache.stale_retention", 7*24*time.Hour)
	v.SetDefault("cache.redis.addr", "")
	v.SetDefault("cache.redis.db", 0)

	v.SetDefault("query.ttl", time.Hour)
	v.SetDefault("query.fallback_ttl", 5*time.Minute)

	v.SetDefault("scheduler.interval", time.Hour)
	v.SetDefault("scheduler.min_run_gap", time.Minute)
	v.SetDefault("scheduler.cache_ttl", time.Hour)
	v.SetDefault("scheduler.run_timeout", 2*time.Minute)

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.retention", 90*24*time.Hour)
	v.SetDefault("archive.postgres.host", "localhost")
	v.SetDefault("archive.postgres.port", "5432")
	v.SetDefault("archive.postgres.sslmode", "disable")

	v.SetDefault("search.enabled", false)
	v.SetDefault("search.index", search.DefaultIndex)
}
