// Package batch validates, dispatches, and aggregates batches of polite GET
// requests against a (possibly parameterized) target URL.
package batch

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Sternrassler/polite-requester/pkg/template"
)

// Validation errors returned by Runner.Run before any network I/O occurs.
var (
	// ErrInvalidURL means the target does not parse as an http(s) URL with a host.
	ErrInvalidURL = errors.New("invalid target URL")

	// ErrInvalidTotal means the requested total is not a positive integer.
	ErrInvalidTotal = errors.New("total must be a positive integer")

	// ErrTotalTooLarge means the requested total exceeds the configured maximum.
	ErrTotalTooLarge = errors.New("total exceeds configured maximum")

	// ErrInvalidDelay means a negative per-worker delay was supplied.
	ErrInvalidDelay = errors.New("per-worker delay must not be negative")
)

// Request describes one batch of GET requests. It is immutable once
// validated; every worker consumes it read-only.
type Request struct {
	// URLTemplate is the target URL, optionally containing the {n} placeholder.
	URLTemplate string

	// Total is the number of requests to dispatch.
	Total int

	// Concurrency is the requested worker pool size. Zero selects the
	// configured default; values above the ceiling are clamped.
	Concurrency int

	// Delay is the pacing pause applied after each completed unit of work
	// before its worker slot is reused.
	Delay time.Duration

	// OverrideCapConfirmed records that the caller explicitly confirmed
	// exceeding the safety cap. Only honored when the configured limits
	// treat the cap as confirmable.
	OverrideCapConfirmed bool
}

// Limits holds the orchestrator's safety caps and defaults. The observed
// deployments disagree on these values, so they are configuration with two
// named presets rather than constants.
type Limits struct {
	// MaxTotal caps Request.Total. Zero or negative means unbounded.
	MaxTotal int

	// MaxConcurrency is the worker pool ceiling. Requests above it are
	// silently clamped, never rejected, to keep the interface forgiving.
	MaxConcurrency int

	// DefaultConcurrency is used when the request leaves Concurrency unset.
	DefaultConcurrency int

	// DefaultDelay is the pacing delay entry points apply when absent.
	DefaultDelay time.Duration

	// ConfirmableCap makes MaxTotal a soft cap: a request exceeding it
	// passes validation when OverrideCapConfirmed is set.
	ConfirmableCap bool
}

// DefaultLimits returns the capped web-facing limits.
func DefaultLimits() Limits {
	return Limits{
		MaxTotal:           500,
		MaxConcurrency:     25,
		DefaultConcurrency: 5,
		DefaultDelay:       100 * time.Millisecond,
	}
}

// InteractiveLimits returns the limits of the interactive deployment: a high
// soft cap that explicit confirmation may exceed.
func InteractiveLimits() Limits {
	return Limits{
		MaxTotal:           10000,
		MaxConcurrency:     1000,
		DefaultConcurrency: 100,
		DefaultDelay:       time.Microsecond,
		ConfirmableCap:     true,
	}
}

// normalize validates req against the limits and returns the effective
// request. Checks run in order and the first failure wins; concurrency is
// clamped rather than rejected.
func (l Limits) normalize(req Request) (Request, error) {
	probe := template.Probe(req.URLTemplate)
	u, err := url.Parse(probe)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Request{}, fmt.Errorf("%w: %q", ErrInvalidURL, req.URLTemplate)
	}

	if req.Total <= 0 {
		return Request{}, fmt.Errorf("%w: got %d", ErrInvalidTotal, req.Total)
	}

	if l.MaxTotal > 0 && req.Total > l.MaxTotal {
		if !l.ConfirmableCap {
			return Request{}, fmt.Errorf("%w: %d > %d", ErrTotalTooLarge, req.Total, l.MaxTotal)
		}
		if !req.OverrideCapConfirmed {
			return Request{}, fmt.Errorf("%w: %d > %d (confirmation required)", ErrTotalTooLarge, req.Total, l.MaxTotal)
		}
	}

	if req.Concurrency <= 0 {
		req.Concurrency = l.DefaultConcurrency
	}
	if l.MaxConcurrency > 0 && req.Concurrency > l.MaxConcurrency {
		req.Concurrency = l.MaxConcurrency
	}
	if req.Concurrency <= 0 {
		req.Concurrency = 1
	}

	if req.Delay < 0 {
		return Request{}, fmt.Errorf("%w: got %v", ErrInvalidDelay, req.Delay)
	}

	return req, nil
}
