// Package metrics documents the Prometheus metrics exported by the polite
// requester. All metrics are defined next to the code they instrument (in
// pkg/requester and pkg/batch) and registered automatically via promauto;
// this package is the single reference for their names and meaning.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registerer used by all packages.
var Registry = prometheus.DefaultRegisterer

// Request metrics (pkg/requester):
//   - polite_requests_total{status} (Counter): HTTP attempts by status;
//     "network_error" for attempts that failed before a response
//   - polite_request_duration_seconds (Histogram): duration of one unit of
//     work including retries and backoff
//
// Retry metrics (pkg/requester):
//   - polite_retries_total{reason} (Counter): retries by reason
//     (network, rate_limit, server)
//   - polite_retry_backoff_seconds{reason} (Histogram): backoff slept before retries
//   - polite_retry_exhausted_total (Counter): attempt loops ended without a
//     terminal response
//
// Dispatch metrics (pkg/batch):
//   - polite_units_in_flight (Gauge): units of work currently executing
//   - polite_units_dispatched_total (Counter): units handed to workers
//   - polite_batches_total{result} (Counter): batch runs by result (ok, rejected)
//   - polite_batch_duration_seconds (Histogram): end-to-end batch duration
//
// Example queries:
//
//   # Success rate
//   rate(polite_requests_total{status="200"}[5m]) /
//   sum(rate(polite_requests_total[5m]))
//
//   # Retry pressure by reason
//   rate(polite_retries_total[5m])
//
//   # P95 unit-of-work latency
//   histogram_quantile(0.95, rate(polite_request_duration_seconds_bucket[5m]))
