package batch

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/Sternrassler/polite-requester/pkg/requester"
	"github.com/Sternrassler/polite-requester/pkg/template"
)

// Prometheus metrics for dispatching.
var (
	unitsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polite_units_in_flight",
		Help: "Units of work currently executing",
	})

	unitsDispatchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polite_units_dispatched_total",
		Help: "Total units of work handed to workers",
	})
)

// Executor performs one polite GET and returns its terminal outcome.
// *requester.Client satisfies this; tests substitute instrumented doubles.
type Executor interface {
	Execute(ctx context.Context, url string) requester.Outcome
}

// Dispatcher drives units of work through a fixed-size worker pool.
type Dispatcher struct {
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewDispatcher creates a dispatcher. ratePerSecond > 0 adds a global rate
// gate across all workers on top of the per-slot pacing delay; zero leaves
// throughput bounded only by concurrency, latency, and pacing.
func NewDispatcher(ratePerSecond float64) *Dispatcher {
	d := &Dispatcher{
		logger: log.With().Str("component", "dispatcher").Logger(),
	}
	if ratePerSecond > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}
	return d
}

// Run dispatches req.Total units of work across exactly req.Concurrency
// workers and streams outcomes as they complete, in arbitrary order. Each
// worker pauses req.Delay after finishing a unit before its slot takes the
// next one. The returned channel closes once every submitted unit has
// yielded its outcome or ctx is cancelled; after cancellation no new units
// are started. req must already be validated.
func (d *Dispatcher) Run(ctx context.Context, req Request, exec Executor) <-chan requester.Outcome {
	jobs := make(chan string)
	outcomes := make(chan requester.Outcome, req.Concurrency)

	// Feed expanded URLs until done or cancelled.
	go func() {
		defer close(jobs)
		for i := 1; i <= req.Total; i++ {
			select {
			case jobs <- template.Expand(req.URLTemplate, i):
			case <-ctx.Done():
				d.logger.Debug().
					Int("submitted", i-1).
					Int("total", req.Total).
					Msg("Submission stopped (context cancelled)")
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < req.Concurrency; w++ {
		wg.Add(1)
		go d.worker(ctx, w, req.Delay, jobs, outcomes, exec, &wg)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	return outcomes
}

// worker executes units from jobs until the queue drains or ctx is cancelled.
func (d *Dispatcher) worker(ctx context.Context, id int, delay time.Duration, jobs <-chan string, outcomes chan<- requester.Outcome, exec Executor, wg *sync.WaitGroup) {
	defer wg.Done()
	processed := 0

	for url := range jobs {
		select {
		case <-ctx.Done():
			d.logger.Debug().
				Int("worker_id", id).
				Int("units_processed", processed).
				Msg("Worker stopping (context cancelled)")
			return
		default:
		}

		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				return
			}
		}

		unitsDispatchedTotal.Inc()
		unitsInFlight.Inc()
		outcome := exec.Execute(ctx, url)
		unitsInFlight.Dec()

		select {
		case outcomes <- outcome:
		case <-ctx.Done():
			d.logger.Debug().
				Int("worker_id", id).
				Int("units_processed", processed).
				Msg("Worker stopping (context cancelled after execute)")
			return
		}
		processed++

		// Pacing: the slot stays occupied for delay before recycling.
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}

	if processed > 0 {
		d.logger.Debug().
			Int("worker_id", id).
			Int("units_processed", processed).
			Msg("Worker completed")
	}
}
