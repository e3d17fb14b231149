package gateways

import (
	"context"
	"math"
	"net/http"
	"time"
)

const (
	// Max retries for transient errors
	defaultMaxRetries = 3
	// Initial backoff duration
	initialBackoff = 1 * time.Second
	// Max backoff duration
	maxBackoff = 32 * time.Second
)

// RetryPolicy retries transient HTTP failures with exponential backoff
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy returns the policy used for downloads and index requests
func DefaultRetryPolicy(maxRetries int) RetryPolicy {
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	return RetryPolicy{
		MaxRetries:     maxRetries,
		InitialBackoff: initialBackoff,
		MaxBackoff:     maxBackoff,
	}
}

// isRetryableStatus checks if an HTTP status code is retryable
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, // 408
		http.StatusTooManyRequests,     // 429
		http.StatusInternalServerError, // 500
		http.StatusBadGateway,          // 502
		http.StatusServiceUnavailable,  // 503
		http.StatusGatewayTimeout:      // 504
		return true
	default:
		return false
	}
}

// backoff returns the wait before retry number attempt (0-based)
func (p RetryPolicy) backoff(attempt int) time.Duration {
	b := float64(p.InitialBackoff) * math.Pow(2, float64(attempt))
	if b > float64(p.MaxBackoff) {
		b = float64(p.MaxBackoff)
	}
	return time.Duration(b)
}

// do executes a request with exponential backoff retry. newRequest is called
// once per attempt so bodies are never reused. The final response is returned
// even when its status is retryable.
func (p RetryPolicy) do(ctx context.Context, client *http.Client, newRequest func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(p.backoff(attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		req, err := newRequest()
		if err != nil {
			return nil, err
		}

		resp, err := client.Do(req)
		if err != nil {
			// Network errors are retryable unless the caller gave up
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if !isRetryableStatus(resp.StatusCode) || attempt == p.MaxRetries {
			return resp, nil
		}

		//nolint:errcheck,gosec // G104: Best effort close before retry
		resp.Body.Close()
	}

	return nil, lastErr
}
