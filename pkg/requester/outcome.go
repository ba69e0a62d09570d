package requester

import (
	"fmt"
	"net/http"
)

// OutcomeKind classifies the terminal result of one dispatched request.
type OutcomeKind string

const (
	// KindSuccess is a 200 OK response.
	KindSuccess OutcomeKind = "success"

	// KindHTTPFailure is a terminal non-200 response.
	KindHTTPFailure OutcomeKind = "http_failure"

	// KindNetworkFailure is a connection or timeout error on the final attempt.
	KindNetworkFailure OutcomeKind = "network_failure"

	// KindRetriesExhausted means the attempt loop ended without a terminal response.
	KindRetriesExhausted OutcomeKind = "retries_exhausted"
)

// Outcome is the terminal result of one unit of work. Exactly one Outcome
// is produced per dispatched request; it is immutable once produced.
type Outcome struct {
	// URL is the fully expanded target URL.
	URL string

	// Kind classifies the outcome.
	Kind OutcomeKind

	// StatusCode is the final HTTP status, zero if no response was received.
	StatusCode int

	// BodyLength is the measured response body length in bytes.
	BodyLength int64

	// Err holds the error message for network failures.
	Err string
}

// OK reports whether the outcome is a 200 success.
func (o Outcome) OK() bool {
	return o.Kind == KindSuccess && o.StatusCode == http.StatusOK
}

// String renders the outcome in the line-oriented console format.
func (o Outcome) String() string {
	switch o.Kind {
	case KindSuccess:
		return fmt.Sprintf("[OK] %s %d len=%d", o.URL, o.StatusCode, o.BodyLength)
	case KindHTTPFailure:
		return fmt.Sprintf("[HTTP %d] %s", o.StatusCode, o.URL)
	case KindRetriesExhausted:
		return fmt.Sprintf("[ERR] %s -> max retries exhausted", o.URL)
	default:
		return fmt.Sprintf("[ERR] %s -> %s", o.URL, o.Err)
	}
}
