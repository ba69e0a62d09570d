// Package requester performs polite HTTP GET requests through a shared
// client identity, retrying transient failures with exponential backoff.
package requester

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for request execution.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polite_requests_total",
		Help: "Total HTTP attempts by final status (network_error for failed attempts)",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polite_request_duration_seconds",
		Help:    "Duration of one unit of work including retries and backoff",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})
)

// Connection pool limits for the shared transport. Retries within one
// execution reuse keep-alive connections from this pool.
const (
	maxIdleConns        = 100
	maxIdleConnsPerHost = 32
	idleConnTimeout     = 60 * time.Second
)

// maxBodyBytes bounds how much of a response body is read to measure its length.
const maxBodyBytes = 2 << 20 // 2 MiB

// Config holds the executor configuration.
type Config struct {
	// UserAgent is sent with every request (required; polite clients identify themselves).
	UserAgent string

	// Timeout applies per attempt, not per unit of work.
	Timeout time.Duration

	// Retry controls the retry loop and backoff growth.
	Retry RetryConfig

	// MaxBodyBytes caps how many body bytes are read per response.
	MaxBodyBytes int64
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent:    userAgent,
		Timeout:      10 * time.Second,
		Retry:        DefaultRetryConfig(),
		MaxBodyBytes: maxBodyBytes,
	}
}

// Client executes polite GET requests. The underlying http.Client and its
// connection pool are shared across all concurrent units of work and are
// safe for concurrent use; Client holds no other mutable state.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a request executor with a tuned shared transport.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = maxBodyBytes
	}
	cfg.Retry = cfg.Retry.withDefaults()

	transport := &http.Transport{
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		IdleConnTimeout:     idleConnTimeout,
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
		config:     cfg,
		logger:     log.With().Str("component", "requester").Logger(),
	}, nil
}

// SetHTTPClient replaces the underlying HTTP client (for testing).
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// Close releases idle connections held by the shared transport.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Execute performs one polite GET against url and always returns a terminal
// Outcome; per-request failures are folded into the outcome, never returned
// as errors. A 200 response is terminal immediately. Network errors and the
// statuses 429/500/502/503/504 are retried with doubling backoff until
// MaxAttempts; any other status is terminal on the first attempt. Backoff
// sleeps observe ctx, and no new attempt starts after ctx is cancelled.
func (c *Client) Execute(ctx context.Context, url string) Outcome {
	start := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(start).Seconds())
	}()

	retry := c.config.Retry
	backoff := retry.InitialBackoff

	for attempt := 1; attempt <= retry.MaxAttempts; attempt++ {
		status, bodyLen, err := c.attempt(ctx, url)
		if err != nil {
			requestsTotal.WithLabelValues("network_error").Inc()
			if !retry.ShouldRetry(attempt, 0) || ctx.Err() != nil {
				c.logger.Warn().Err(err).Str("url", url).Int("attempt", attempt).
					Msg("Request failed")
				return Outcome{URL: url, Kind: KindNetworkFailure, Err: fmt.Sprintf("network error: %v", err)}
			}
			if serr := c.backoff(ctx, url, attempt, backoff, 0); serr != nil {
				return Outcome{URL: url, Kind: KindNetworkFailure, Err: fmt.Sprintf("cancelled during backoff: %v", serr)}
			}
			backoff = retry.NextBackoff(backoff)
			continue
		}

		requestsTotal.WithLabelValues(fmt.Sprintf("%d", status)).Inc()

		if status == http.StatusOK {
			c.logger.Debug().Str("url", url).Int("attempt", attempt).
				Int64("body_length", bodyLen).Msg("Request succeeded")
			return Outcome{URL: url, Kind: KindSuccess, StatusCode: status, BodyLength: bodyLen}
		}

		if retry.ShouldRetry(attempt, status) {
			if serr := c.backoff(ctx, url, attempt, backoff, status); serr != nil {
				return Outcome{URL: url, Kind: KindHTTPFailure, StatusCode: status, BodyLength: bodyLen}
			}
			backoff = retry.NextBackoff(backoff)
			continue
		}

		c.logger.Debug().Str("url", url).Int("status", status).Int("attempt", attempt).
			Msg("Terminal HTTP failure")
		return Outcome{URL: url, Kind: KindHTTPFailure, StatusCode: status, BodyLength: bodyLen}
	}

	// Only reachable if every attempt was consumed without a terminal result.
	retryExhaustedTotal.Inc()
	c.logger.Warn().Str("url", url).Int("max_attempts", retry.MaxAttempts).
		Msg("Retry attempts exhausted")
	return Outcome{URL: url, Kind: KindRetriesExhausted}
}

// attempt performs a single GET with the per-attempt timeout and returns the
// status and measured body length, or an error if no response was received.
func (c *Client) attempt(ctx context.Context, url string) (int, int64, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	// Read the body fully (bounded) so the length is measured and the
	// connection can be reused by the pool.
	bodyLen, err := io.Copy(io.Discard, io.LimitReader(resp.Body, c.config.MaxBodyBytes))
	if err != nil {
		return 0, 0, fmt.Errorf("read body: %w", err)
	}

	return resp.StatusCode, bodyLen, nil
}

// backoff sleeps the current backoff before the next attempt.
func (c *Client) backoff(ctx context.Context, url string, attempt int, d time.Duration, status int) error {
	reason := retryReason(status)
	c.logger.Debug().
		Str("url", url).
		Int("attempt", attempt).
		Int("status", status).
		Str("reason", reason).
		Dur("backoff", d).
		Msg("Retrying request after backoff")
	return sleepBackoff(ctx, d, reason)
}
