// Package search indexes tender records into Elasticsearch and serves
// full-text queries across all sources.
package search

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/tenderwatch/crawler/internal/logger"
	"github.com/tenderwatch/crawler/internal/sources"
	"github.com/tenderwatch/crawler/internal/tender"
)

const (
	// DefaultIndex is the tender document index.
	DefaultIndex = "tenders"

	defaultSearchTimeout = 10 * time.Second
	defaultSearchLimit   = 50
)

// Config holds Elasticsearch connection settings.
type Config struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	APIKey    string   `mapstructure:"api_key"`
}

// NewClient creates and ping-verifies an Elasticsearch client.
func NewClient(cfg Config) (*es.Client, error) {
	clientConfig := es.Config{
		Addresses: cfg.Addresses,
	}
	if cfg.APIKey != "" {
		clientConfig.APIKey = cfg.APIKey
	} else if cfg.Username != "" {
		clientConfig.Username = cfg.Username
		clientConfig.Password = cfg.Password
	}

	client, err := es.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	res, err := client.Ping()
	if err != nil {
		return nil, fmt.Errorf("failed to ping Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error pinging Elasticsearch: %s", res.String())
	}
	return client, nil
}

// Document is a tender record as stored in the index.
type Document struct {
	SourceID    string                `json:"sourceId"`
	SourceName  string                `json:"sourceName"`
	Name        string                `json:"name"`
	PostedDate  string                `json:"postedDate"`
	ClosingDate string                `json:"closingDate"`
	Links       []tender.DownloadLink `json:"downloadLinks"`
	IndexedAt   time.Time             `json:"indexedAt"`
}

// Indexer writes tender documents and answers search queries.
type Indexer struct {
	client *es.Client
	log    logger.Interface
	index  string
}

// NewIndexer creates an indexer over the given client.
func NewIndexer(client *es.Client, log logger.Interface, index string) *Indexer {
	if index == "" {
		index = DefaultIndex
	}
	return &Indexer{client: client, log: log, index: index}
}

// EnsureIndex creates the tender index with its mapping if missing.
func (i *Indexer) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.index}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	mapping := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"sourceId":    map[string]any{"type": "keyword"},
				"sourceName":  map[string]any{"type": "text"},
				"name":        map[string]any{"type": "text"},
				"postedDate":  map[string]any{"type": "keyword"},
				"closingDate": map[string]any{"type": "keyword"},
				"indexedAt":   map[string]any{"type": "date"},
			},
		},
	}
	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal index mapping: %w", err)
	}

	createRes, err := i.client.Indices.Create(
		i.index,
		i.client.Indices.Create.WithContext(ctx),
		i.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", i.index, err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("error creating index %s: %s", i.index, createRes.String())
	}
	i.log.Info("Created search index", "index", i.index)
	return nil
}

// Store indexes the records for one source. Document IDs are derived from
// the record identity, so re-scraping the same listing upserts instead of
// duplicating. It satisfies the orchestrator's sink contract.
func (i *Indexer) Store(ctx context.Context, src sources.Source, records []tender.Record) error {
	now := time.Now().UTC()
	for idx := range records {
		record := records[idx]
		doc := Document{
			SourceID:    src.ID,
			SourceName:  src.Name,
			Name:        record.Name,
			PostedDate:  record.PostedDate,
			ClosingDate: record.ClosingDate,
			Links:       record.DownloadLinks,
			IndexedAt:   now,
		}

		body, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal document for %s: %w", src.ID, err)
		}

		res, err := i.client.Index(
			i.index,
			bytes.NewReader(body),
			i.client.Index.WithContext(ctx),
			i.client.Index.WithDocumentID(docID(src.ID, record)),
		)
		if err != nil {
			return fmt.Errorf("failed to index document for %s: %w", src.ID, err)
		}
		if res.IsError() {
			msg := res.String()
			res.Body.Close()
			return fmt.Errorf("indexing error for %s: %s", src.ID, msg)
		}
		res.Body.Close()
	}

	i.log.Debug("Indexed tender records", "source_id", src.ID, "count", len(records))
	return nil
}

// docID derives a stable document ID from the record identity.
func docID(sourceID string, record tender.Record) string {
	sum := sha256.Sum256([]byte(sourceID + "\x00" + record.Key()))
	return hex.EncodeToString(sum[:16])
}

// Hit is one search result.
type Hit struct {
	Score    float64  `json:"score"`
	Document Document `json:"document"`
}

// Search runs a full-text query over tender names, optionally restricted
// to one source.
func (i *Indexer) Search(ctx context.Context, q, sourceID string, limit int) ([]Hit, error) {
	if q == "" {
		return nil, errors.New("search query must not be empty")
	}
	if limit < 1 || limit > defaultSearchLimit {
		limit = defaultSearchLimit
	}

	must := []map[string]any{
		{
			"match": map[string]any{
				"name": map[string]any{
					"query":     q,
					"fuzziness": "AUTO",
				},
			},
		},
	}
	if sourceID != "" {
		must = append(must, map[string]any{
			"term": map[string]any{"sourceId": sourceID},
		})
	}

	query := map[string]any{
		"size":  limit,
		"query": map[string]any{"bool": map[string]any{"must": must}},
		"sort":  []map[string]any{{"_score": map[string]any{"order": "desc"}}},
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("error marshaling search query: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, defaultSearchTimeout)
	defer cancel()

	res, err := i.client.Search(
		i.client.Search.WithContext(searchCtx),
		i.client.Search.WithIndex(i.index),
		i.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("error executing search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Score  float64  `json:"_score"`
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if decodeErr := json.NewDecoder(res.Body).Decode(&result); decodeErr != nil {
		return nil, fmt.Errorf("error decoding search response: %w", decodeErr)
	}

	hits := make([]Hit, 0, len(result.Hits.Hits))
	for _, h := range result.Hits.Hits {
		hits = append(hits, Hit{Score: h.Score, Document: h.Source})
	}
	return hits, nil
}
