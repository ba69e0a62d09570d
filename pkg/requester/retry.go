package requester

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for retry behavior.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polite_retries_total",
		Help: "Total number of retry attempts by reason",
	}, []string{"reason"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "polite_retry_backoff_seconds",
		Help:    "Backoff duration slept before retries by reason",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"reason"})

	retryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polite_retry_exhausted_total",
		Help: "Total number of times the attempt loop ended without a terminal response",
	})
)

// Retry reasons reported in metrics and logs.
const (
	reasonNetwork   = "network"
	reasonRateLimit = "rate_limit"
	reasonServer    = "server"
)

// RetryConfig holds the configuration for the retry loop.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the backoff slept before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff is the ceiling for backoff growth. The observed deployments
	// disagree on this value (10s web-facing, 60s unthrottled), so it is
	// configuration rather than a constant.
	MaxBackoff time.Duration

	// BackoffMultiplier is the growth factor applied between retries.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the retry configuration used by the web-facing
// deployment: three attempts, doubling backoff from 1s capped at 10s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// UnthrottledRetryConfig returns the retry configuration used by the
// interactive deployment: five attempts with a 60s backoff ceiling.
func UnthrottledRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        60 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// withDefaults fills zero fields with the default configuration.
func (c RetryConfig) withDefaults() RetryConfig {
	d := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.BackoffMultiplier <= 1 {
		c.BackoffMultiplier = d.BackoffMultiplier
	}
	return c
}

// NextBackoff grows the previous backoff by the multiplier, capped at MaxBackoff.
func (c RetryConfig) NextBackoff(prev time.Duration) time.Duration {
	next := time.Duration(float64(prev) * c.BackoffMultiplier)
	if next > c.MaxBackoff {
		next = c.MaxBackoff
	}
	return next
}

// ShouldRetry reports whether another attempt is permitted for the given
// attempt number and status. Statuses outside the retryable set are terminal
// on the first attempt; status zero stands for a network-level failure.
func (c RetryConfig) ShouldRetry(attempt, status int) bool {
	if attempt >= c.MaxAttempts {
		return false
	}
	return status == 0 || retryableStatus(status)
}

// retryableStatus reports whether status signals transient server overload
// worth backing off from. Other 4xx statuses are permanent client errors.
func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// retryReason maps a status to its metric label. Status zero is a network failure.
func retryReason(status int) string {
	switch {
	case status == 0:
		return reasonNetwork
	case status == http.StatusTooManyRequests:
		return reasonRateLimit
	default:
		return reasonServer
	}
}

// sleepBackoff waits for d or until ctx is cancelled.
func sleepBackoff(ctx context.Context, d time.Duration, reason string) error {
	retriesTotal.WithLabelValues(reason).Inc()
	retryBackoffSeconds.WithLabelValues(reason).Observe(d.Seconds())

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
