// Package helpers provides testing utilities for integration tests.
package helpers

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/elasticsearch"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tenderwatch/crawler/internal/search"
)

const (
	elasticsearchImage    = "docker.elastic.co/elasticsearch/elasticsearch:8.11.0"
	elasticsearchPassword = "changeme"
	startupTimeout        = 60 * time.Second
	healthCheckTimeout    = 5 * time.Second
	healthCheckRetries    = 30
)

// ElasticsearchContainer manages a test Elasticsearch instance.
type ElasticsearchContainer struct {
	Container testcontainers.Container
	Address   string
}

// StartElasticsearch starts an Elasticsearch container for testing. The
// returned container must be stopped with Stop().
func StartElasticsearch(ctx context.Context) (*ElasticsearchContainer, error) {
	esContainer, err := elasticsearch.Run(
		ctx,
		elasticsearchImage,
		elasticsearch.WithPassword(elasticsearchPassword),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/").WithPort("9200/tcp").WithStartupTimeout(startupTimeout),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start Elasticsearch container: %w", err)
	}

	host, err := esContainer.Host(ctx)
	if err != nil {
		_ = esContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	mappedPort, err := esContainer.MappedPort(ctx, "9200")
	if err != nil {
		_ = esContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	address := fmt.Sprintf("http://%s", net.JoinHostPort(host, mappedPort.Port()))
	if waitErr := waitForElasticsearch(ctx, address); waitErr != nil {
		_ = esContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to wait for Elasticsearch: %w", waitErr)
	}

	return &ElasticsearchContainer{Container: esContainer, Address: address}, nil
}

// Stop terminates the container.
func (e *ElasticsearchContainer) Stop(ctx context.Context) error {
	if e.Container == nil {
		return nil
	}
	return e.Container.Terminate(ctx)
}

// SearchConfig returns the connection settings for the container.
func (e *ElasticsearchContainer) SearchConfig() search.Config {
	return search.Config{
		Addresses: []string{e.Address},
		Username:  "elastic",
		Password:  elasticsearchPassword,
	}
}

func waitForElasticsearch(ctx context.Context, address string) error {
	client := &http.Client{Timeout: healthCheckTimeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address+"/_cluster/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth("elastic", elasticsearchPassword)

	for range healthCheckRetries {
		resp, doErr := client.Do(req)
		if doErr == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}

	return fmt.Errorf("elasticsearch did not become ready within %d seconds", healthCheckRetries)
}
