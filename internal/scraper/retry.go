package scraper

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"
)

// RetryConfig configures retry behavior for transient fetch failures.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the exponential backoff.
	MaxDelay time.Duration
	// Multiplier is the exponential backoff multiplier.
	Multiplier float64
	// IsRetryable determines whether an error should be retried.
	IsRetryable func(error) bool
}

// DefaultRetryConfig returns the retry configuration used by adapters:
// three attempts with the base delay doubling each time.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		IsRetryable:  IsTransient,
	}
}

// retryablePatterns matches common transient network error strings.
var retryablePatterns = []string{
	"timeout",
	"deadline exceeded",
	"connection refused",
	"connection reset",
	"no such host",
	"temporary failure",
	"network is unreachable",
	"i/o timeout",
}

// IsTransient reports whether an error is worth retrying: network-level
// failures, timeouts, and 429/5xx responses. Parse errors and 4xx
// responses are not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests ||
			statusErr.Code >= http.StatusInternalServerError
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}

// Retry executes fn with exponential backoff until it succeeds, the error
// is classified non-retryable, attempts are exhausted, or the context is
// cancelled.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.IsRetryable == nil {
		cfg.IsRetryable = IsTransient
	}

	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !cfg.IsRetryable(err) {
			return err
		}

		if attempt < cfg.MaxAttempts {
			backoff := time.Duration(float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1)))
			if backoff > cfg.MaxDelay {
				backoff = cfg.MaxDelay
			}

			select {
			case <-ctx.Done():
				return fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrMaxAttemptsExceeded, cfg.MaxAttempts, lastErr)
}
