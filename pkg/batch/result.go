package batch

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/polite-requester/pkg/requester"
)

// Result summarizes a completed batch. Outcomes is an unordered multiset;
// OKCount + ErrorCount == Total == len(Outcomes) always holds. On a
// cancelled run Total reflects the units that actually completed.
type Result struct {
	Total      int
	OKCount    int
	ErrorCount int
	Outcomes   []requester.Outcome
}

// Summary renders the one-line batch summary.
func (r Result) Summary() string {
	return fmt.Sprintf("Total=%d OK=%d Errors=%d", r.Total, r.OKCount, r.ErrorCount)
}

// Aggregate reduces streamed outcomes into a Result. Outcomes with a 200
// status count as OK; HTTP failures, network failures, and exhausted retries
// all count as errors. observe, when non-nil, is invoked for each outcome as
// it arrives (the CLI uses this for line-oriented progress). requested is
// the submitted batch size; collecting fewer outcomes means the run was
// cancelled and the result is partial.
func Aggregate(requested int, outcomes <-chan requester.Outcome, observe func(requester.Outcome)) Result {
	var res Result

	for outcome := range outcomes {
		res.Outcomes = append(res.Outcomes, outcome)
		if outcome.OK() {
			res.OKCount++
		} else {
			res.ErrorCount++
		}
		if observe != nil {
			observe(outcome)
		}
	}

	res.Total = res.OKCount + res.ErrorCount
	if res.Total != requested {
		log.Warn().
			Int("requested", requested).
			Int("completed", res.Total).
			Msg("Batch ended early, returning partial result")
	}

	return res
}
