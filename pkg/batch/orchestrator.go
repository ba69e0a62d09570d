package batch

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/polite-requester/pkg/requester"
)

var (
	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polite_batches_total",
		Help: "Total batch runs by result (ok, rejected)",
	}, []string{"result"})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polite_batch_duration_seconds",
		Help:    "End-to-end batch duration in seconds",
		Buckets: []float64{0.5, 1, 5, 15, 60, 300},
	})
)

// Runner is the single entry point external collaborators call: it validates
// a Request, applies the configured caps, and drives dispatch and
// aggregation end to end. The shared executor is owned here and passed to
// every worker; it is never recreated per request.
type Runner struct {
	exec       Executor
	dispatcher *Dispatcher
	limits     Limits
	logger     zerolog.Logger
}

// NewRunner creates a batch runner around a shared executor.
func NewRunner(exec Executor, limits Limits) *Runner {
	return &Runner{
		exec:       exec,
		dispatcher: NewDispatcher(0),
		limits:     limits,
		logger:     log.With().Str("component", "batch-runner").Logger(),
	}
}

// SetDispatcher replaces the dispatcher, e.g. to add a global rate gate.
func (r *Runner) SetDispatcher(d *Dispatcher) {
	r.dispatcher = d
}

// Limits returns the configured caps and defaults, for entry points that
// render or prompt with them.
func (r *Runner) Limits() Limits {
	return r.limits
}

// Run validates req and executes the batch. A validation error is returned
// before any network I/O happens; once validation passes the batch itself
// never fails, short of cancellation, and per-request failures are surfaced
// only as data in the Result.
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	return r.run(ctx, req, nil)
}

// RunObserved is Run with a callback invoked per outcome as it completes,
// in completion order.
func (r *Runner) RunObserved(ctx context.Context, req Request, observe func(requester.Outcome)) (Result, error) {
	return r.run(ctx, req, observe)
}

func (r *Runner) run(ctx context.Context, req Request, observe func(requester.Outcome)) (Result, error) {
	validated, err := r.limits.normalize(req)
	if err != nil {
		batchesTotal.WithLabelValues("rejected").Inc()
		r.logger.Warn().Err(err).Msg("Batch rejected")
		return Result{}, err
	}

	start := time.Now()
	r.logger.Info().
		Str("url_template", validated.URLTemplate).
		Int("total", validated.Total).
		Int("concurrency", validated.Concurrency).
		Dur("delay", validated.Delay).
		Msg("Starting batch")

	outcomes := r.dispatcher.Run(ctx, validated, r.exec)
	result := Aggregate(validated.Total, outcomes, observe)

	batchesTotal.WithLabelValues("ok").Inc()
	batchDuration.Observe(time.Since(start).Seconds())
	r.logger.Info().
		Int("total", result.Total).
		Int("ok", result.OKCount).
		Int("errors", result.ErrorCount).
		Dur("duration", time.Since(start)).
		Msg("Batch complete")

	return result, nil
}
