package papersources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/helixir/abstract-wordstats/internal/domain"
	"github.com/helixir/abstract-wordstats/internal/observability"
)

// HTTPClientConfig configures the HTTP client.
type HTTPClientConfig struct {
	// Source names the remote API in errors and metrics.
	Source string

	// Timeout is the request timeout for HTTP operations.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxRetries is the maximum number of retry attempts.
	MaxRetries int

	// RetryDelay is the delay before the first retry. Each further retry doubles it.
	RetryDelay time.Duration

	// MaxRetryDelay caps the delay between two attempts, including Retry-After waits.
	MaxRetryDelay time.Duration

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// Metrics receives retry and rate limit counts. May be nil.
	Metrics *observability.Metrics
}

// HTTPClient wraps http.Client with rate limiting and bounded retries.
// It is safe for concurrent use.
type HTTPClient struct {
	client      *http.Client
	rateLimiter *RateLimiter
	config      HTTPClientConfig
}

// NewHTTPClient creates a new HTTP client with rate limiting.
// The client applies rate limiting before each request and retries on network errors,
// 429 (Too Many Requests) and 5xx server errors with exponential backoff.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	// Apply defaults
	if cfg.Source == "" {
		cfg.Source = "http"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = NCBIRate
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 1
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.MaxRetryDelay == 0 {
		cfg.MaxRetryDelay = time.Minute
	}
	if cfg.MaxRetryDelay < cfg.RetryDelay {
		cfg.MaxRetryDelay = cfg.RetryDelay
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "abstract-wordstats/1.0"
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.BurstSize),
		config:      cfg,
	}
}

// Do executes an HTTP request with rate limiting and retries.
// It waits for the rate limiter before each attempt and sets the User-Agent header.
// Retries wait RetryDelay*2^n (capped by MaxRetryDelay), or the server's Retry-After
// when it is given. When every attempt fails the error wraps a *domain.ExternalAPIError;
// a 429 on the last attempt additionally wraps a *domain.RateLimitError.
//
// The request body is not preserved across retries; callers must provide
// requests with GetBody set if the body needs to be resent on retry.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	// Set default headers
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			c.config.Metrics.RecordSourceRetry(c.config.Source)
			// Reset body if possible for retry
			if err := c.resetRequestBody(req); err != nil {
				return nil, fmt.Errorf("cannot retry request: %w", err)
			}
		}

		// Wait for rate limiter
		if err := c.rateLimiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			// Check for context cancellation
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = domain.NewExternalAPIError(c.config.Source, 0, "request failed", err)
			if attempt < c.config.MaxRetries {
				if err := c.waitForRetry(req.Context(), c.backoffDelay(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			break
		}

		if !c.shouldRetry(resp.StatusCode) {
			if resp.StatusCode < http.StatusBadRequest {
				c.rateLimiter.Recover()
			}
			return resp, nil
		}

		retryDelay := c.getRetryDelay(resp, attempt)

		// Close the response body to free resources before retry
		if resp.Body != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		var cause error
		if resp.StatusCode == http.StatusTooManyRequests {
			c.config.Metrics.RecordSourceRateLimited(c.config.Source)
			c.rateLimiter.Slowdown()
			cause = domain.NewRateLimitError(c.config.Source, retryDelay)
		}
		lastErr = domain.NewExternalAPIError(c.config.Source, resp.StatusCode,
			fmt.Sprintf("server returned status %d", resp.StatusCode), cause)

		if attempt < c.config.MaxRetries {
			if err := c.waitForRetry(req.Context(), retryDelay); err != nil {
				return nil, err
			}
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no response received")
	}
	return nil, fmt.Errorf("max retries exhausted after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

// shouldRetry returns true if the status code indicates we should retry.
func (c *HTTPClient) shouldRetry(statusCode int) bool {
	// Retry on 429 Too Many Requests
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	// Retry on 5xx server errors
	return statusCode >= 500 && statusCode < 600
}

// backoffDelay returns RetryDelay*2^attempt, capped by MaxRetryDelay.
func (c *HTTPClient) backoffDelay(attempt int) time.Duration {
	delay := c.config.RetryDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= c.config.MaxRetryDelay {
			return c.config.MaxRetryDelay
		}
	}
	return delay
}

// getRetryDelay determines how long to wait before retrying.
// It respects the Retry-After header if present, otherwise uses exponential backoff.
// The result never exceeds MaxRetryDelay.
func (c *HTTPClient) getRetryDelay(resp *http.Response, attempt int) time.Duration {
	delay := c.backoffDelay(attempt)

	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		// Try to parse as seconds, then as HTTP date
		if seconds, err := strconv.ParseInt(retryAfter, 10, 64); err == nil {
			if seconds > 0 {
				delay = time.Duration(seconds) * time.Second
			}
		} else if t, err := http.ParseTime(retryAfter); err == nil {
			if until := time.Until(t); until > 0 {
				delay = until
			}
		}
	}

	if delay > c.config.MaxRetryDelay {
		delay = c.config.MaxRetryDelay
	}
	return delay
}

// waitForRetry waits for the specified duration, respecting context cancellation.
func (c *HTTPClient) waitForRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// resetRequestBody resets the request body for retry if possible.
func (c *HTTPClient) resetRequestBody(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}

	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("failed to get request body for retry: %w", err)
	}
	req.Body = body
	return nil
}
