// Package sources manages the configuration of the tender listing sources
// the scraper knows about. Each source is one campus website with its own
// base URL and parsing strategy.
package sources

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Source is the immutable per-source configuration consumed by the site
// adapter, orchestrator, and fallback provider.
type Source struct {
	// ID is the stable source identifier used in cache keys, API routes,
	// and job state (e.g. "basar", "rkvalley").
	ID string `mapstructure:"id" yaml:"id"`
	// Name is the human-readable campus name.
	Name string `mapstructure:"name" yaml:"name"`
	// BaseURL is the site root against which relative links are resolved.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// ListingPath is the path of the tender listing page, relative to
	// BaseURL.
	ListingPath string `mapstructure:"listing_path" yaml:"listing_path"`
	// TendersURL is the public tenders page linked from fallback records.
	// Defaults to BaseURL+ListingPath when empty.
	TendersURL string `mapstructure:"tenders_url" yaml:"tenders_url"`
	// Strategy describes how to parse this source's listing markup.
	Strategy Strategy `mapstructure:"strategy" yaml:"strategy"`
}

// Validate validates the source configuration.
func (s *Source) Validate() error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if err := s.Strategy.Validate(); err != nil {
		return fmt.Errorf("source %s: %w", s.ID, err)
	}
	return nil
}

// ListingURL returns the absolute URL of the listing page.
func (s *Source) ListingURL() string {
	return s.BaseURL + s.ListingPath
}

// FallbackURL returns the public tenders page for fallback records.
func (s *Source) FallbackURL() string {
	if s.TendersURL != "" {
		return s.TendersURL
	}
	return s.ListingURL()
}

// ErrUnknownSource is returned when a source ID is not configured.
var ErrUnknownSource = errors.New("unknown source")

// Manager holds the configured sources and provides thread-safe access.
type Manager struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// NewManager creates a manager from the given sources. Every source must
// validate; a duplicate ID is a configuration error.
func NewManager(configured []Source) (*Manager, error) {
	byID := make(map[string]Source, len(configured))

	for i := range configured {
		src := configured[i]
		if err := src.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byID[src.ID]; dup {
			return nil, fmt.Errorf("duplicate source id: %s", src.ID)
		}
		byID[src.ID] = src
	}

	if len(byID) == 0 {
		return nil, errors.New("no sources configured")
	}

	return &Manager{sources: byID}, nil
}

// Get returns the source with the given ID.
func (m *Manager) Get(sourceID string) (Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	src, ok := m.sources[sourceID]
	if !ok {
		return Source{}, fmt.Errorf("%w: %s", ErrUnknownSource, sourceID)
	}
	return src, nil
}

// All returns all configured sources sorted by ID.
func (m *Manager) All() []Source {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Source, 0, len(m.sources))
	for _, src := range m.sources {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IDs returns the configured source IDs sorted alphabetically.
func (m *Manager) IDs() []string {
	all := m.All()
	ids := make([]string, 0, len(all))
	for i := range all {
		ids = append(ids, all[i].ID)
	}
	return ids
}
