package batch

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/polite-requester/pkg/requester"
)

func TestRunner_ValidBatch(t *testing.T) {
	exec := &fakeExecutor{}
	runner := NewRunner(exec, DefaultLimits())

	result, err := runner.Run(context.Background(), Request{
		URLTemplate: "http://x.test/{n}",
		Total:       10,
		Concurrency: 3,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Total != 10 {
		t.Errorf("Total = %d, want 10", result.Total)
	}
	if result.OKCount != 10 {
		t.Errorf("OKCount = %d, want 10", result.OKCount)
	}
	if result.OKCount+result.ErrorCount != result.Total || len(result.Outcomes) != result.Total {
		t.Error("Result invariant violated")
	}
}

func TestRunner_MixedOutcomes(t *testing.T) {
	exec := &fakeExecutor{statusFor: func(url string) int {
		if url == "http://x.test/3" || url == "http://x.test/7" {
			return http.StatusNotFound
		}
		return http.StatusOK
	}}
	runner := NewRunner(exec, DefaultLimits())

	result, err := runner.Run(context.Background(), Request{
		URLTemplate: "http://x.test/{n}",
		Total:       10,
		Concurrency: 4,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.OKCount != 8 || result.ErrorCount != 2 {
		t.Errorf("OK/Errors = %d/%d, want 8/2", result.OKCount, result.ErrorCount)
	}
}

func TestRunner_RejectionBeforeNetworkIO(t *testing.T) {
	exec := &fakeExecutor{}
	runner := NewRunner(exec, DefaultLimits())

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"invalid url", Request{URLTemplate: "nope", Total: 5}, ErrInvalidURL},
		{"invalid total", Request{URLTemplate: "http://x.test/", Total: 0}, ErrInvalidTotal},
		{"total too large", Request{URLTemplate: "http://x.test/", Total: 100000}, ErrTotalTooLarge},
		{"negative delay", Request{URLTemplate: "http://x.test/", Total: 5, Delay: -time.Second}, ErrInvalidDelay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runner.Run(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Run() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if exec.Calls() != 0 {
		t.Errorf("Executor calls = %d, validation failures must not reach the network", exec.Calls())
	}
}

func TestRunner_ObserverStreamsOutcomes(t *testing.T) {
	exec := &fakeExecutor{}
	runner := NewRunner(exec, DefaultLimits())

	var lines []string
	result, err := runner.RunObserved(context.Background(), Request{
		URLTemplate: "http://x.test/{n}",
		Total:       6,
		Concurrency: 2,
	}, func(o requester.Outcome) {
		lines = append(lines, o.String())
	})
	if err != nil {
		t.Fatalf("RunObserved() error = %v", err)
	}

	if len(lines) != result.Total {
		t.Errorf("Observed %d lines, want %d", len(lines), result.Total)
	}
}

func TestRunner_CancelledRunReturnsPartialResult(t *testing.T) {
	exec := &fakeExecutor{latency: 20 * time.Millisecond}
	runner := NewRunner(exec, Limits{MaxTotal: 0, DefaultConcurrency: 2, MaxConcurrency: 10})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result, 1)
	go func() {
		result, err := runner.Run(ctx, Request{URLTemplate: "http://x.test/{n}", Total: 500, Concurrency: 2})
		if err != nil {
			t.Errorf("Run() error = %v, cancellation must not fail the batch", err)
		}
		done <- result
	}()

	time.Sleep(80 * time.Millisecond)
	cancel()

	select {
	case result := <-done:
		if result.Total >= 500 {
			t.Errorf("Total = %d, expected a partial result", result.Total)
		}
		if result.OKCount+result.ErrorCount != result.Total {
			t.Error("Partial result invariant violated")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestRunner_SetDispatcher(t *testing.T) {
	exec := &fakeExecutor{}
	runner := NewRunner(exec, DefaultLimits())
	runner.SetDispatcher(NewDispatcher(100))

	result, err := runner.Run(context.Background(), Request{
		URLTemplate: "http://x.test/",
		Total:       3,
		Concurrency: 3,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Total != 3 {
		t.Errorf("Total = %d, want 3", result.Total)
	}
}
