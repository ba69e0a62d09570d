package requester

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/polite-requester/internal/testutil"
)

// testClient creates a Client with millisecond backoffs so retry tests stay fast.
func testClient(t *testing.T, maxAttempts int) *Client {
	t.Helper()

	cfg := DefaultConfig("polite-requester-test/1.0")
	cfg.Timeout = 2 * time.Second
	cfg.Retry = RetryConfig{
		MaxAttempts:       maxAttempts,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        100 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return client
}

func TestNew_RequiresUserAgent(t *testing.T) {
	_, err := New(Config{})
	if err == nil {
		t.Fatal("Expected error for missing user-agent")
	}
}

func TestExecute_SuccessFirstAttempt(t *testing.T) {
	target := testutil.NewMockTarget()
	defer target.Close()
	target.SetBody("/", "hello world")

	client := testClient(t, 3)
	defer client.Close()

	start := time.Now()
	outcome := client.Execute(context.Background(), target.URL()+"/")
	elapsed := time.Since(start)

	if outcome.Kind != KindSuccess {
		t.Fatalf("Kind = %s, want success (outcome: %+v)", outcome.Kind, outcome)
	}
	if outcome.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", outcome.StatusCode)
	}
	if outcome.BodyLength != int64(len("hello world")) {
		t.Errorf("BodyLength = %d, want %d", outcome.BodyLength, len("hello world"))
	}
	if target.RequestCount() != 1 {
		t.Errorf("RequestCount = %d, want 1 (no retries on success)", target.RequestCount())
	}
	// No backoff sleep on first-attempt success.
	if elapsed > 500*time.Millisecond {
		t.Errorf("Execute took %v, expected no backoff sleep", elapsed)
	}
}

func TestExecute_RetriesTransientThenSucceeds(t *testing.T) {
	target := testutil.NewMockTarget()
	defer target.Close()
	target.Script("/flaky", 503, 503, 200)

	client := testClient(t, 3)
	defer client.Close()

	start := time.Now()
	outcome := client.Execute(context.Background(), target.URL()+"/flaky")
	elapsed := time.Since(start)

	if outcome.Kind != KindSuccess {
		t.Fatalf("Kind = %s, want success after retries (outcome: %+v)", outcome.Kind, outcome)
	}
	if target.RequestCount() != 3 {
		t.Errorf("RequestCount = %d, want 3", target.RequestCount())
	}
	// Two backoff sleeps: 10ms then 20ms.
	if elapsed < 30*time.Millisecond {
		t.Errorf("Execute took %v, expected at least 30ms of backoff", elapsed)
	}
}

func TestExecute_ClientErrorTerminalImmediately(t *testing.T) {
	target := testutil.NewMockTarget()
	defer target.Close()
	target.Script("/missing", 404)

	client := testClient(t, 3)
	defer client.Close()

	start := time.Now()
	outcome := client.Execute(context.Background(), target.URL()+"/missing")
	elapsed := time.Since(start)

	if outcome.Kind != KindHTTPFailure {
		t.Fatalf("Kind = %s, want http_failure", outcome.Kind)
	}
	if outcome.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", outcome.StatusCode)
	}
	if target.RequestCount() != 1 {
		t.Errorf("RequestCount = %d, want 1 (no retries for 404)", target.RequestCount())
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("Execute took %v, expected zero backoff sleeps", elapsed)
	}
}

func TestExecute_RetryableStatusOnFinalAttempt(t *testing.T) {
	target := testutil.NewMockTarget()
	defer target.Close()
	target.Script("/down", 503, 503, 503)

	client := testClient(t, 3)
	defer client.Close()

	outcome := client.Execute(context.Background(), target.URL()+"/down")

	if outcome.Kind != KindHTTPFailure {
		t.Fatalf("Kind = %s, want http_failure on final attempt", outcome.Kind)
	}
	if outcome.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", outcome.StatusCode)
	}
	if target.RequestCount() != 3 {
		t.Errorf("RequestCount = %d, want 3", target.RequestCount())
	}
}

func TestExecute_NetworkFailure(t *testing.T) {
	target := testutil.NewMockTarget()
	url := target.URL() + "/"
	target.Close() // nothing listens anymore

	client := testClient(t, 3)
	defer client.Close()

	outcome := client.Execute(context.Background(), url)

	if outcome.Kind != KindNetworkFailure {
		t.Fatalf("Kind = %s, want network_failure", outcome.Kind)
	}
	if !strings.HasPrefix(outcome.Err, "network error:") {
		t.Errorf("Err = %q, want network error prefix", outcome.Err)
	}
	if outcome.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0 for network failure", outcome.StatusCode)
	}
}

func TestExecute_SetsUserAgent(t *testing.T) {
	target := testutil.NewMockTarget()
	defer target.Close()

	client := testClient(t, 3)
	defer client.Close()

	client.Execute(context.Background(), target.URL()+"/")

	if got := target.LastUserAgent(); got != "polite-requester-test/1.0" {
		t.Errorf("User-Agent = %q, want polite-requester-test/1.0", got)
	}
}

func TestExecute_CancelledDuringBackoff(t *testing.T) {
	target := testutil.NewMockTarget()
	defer target.Close()
	target.Script("/slowfail", 503, 503, 503, 503)

	client := testClient(t, 4)
	client.config.Retry.InitialBackoff = 5 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	outcome := client.Execute(ctx, target.URL()+"/slowfail")
	elapsed := time.Since(start)

	// Cancellation during backoff ends the attempt loop with the last response.
	if outcome.Kind != KindHTTPFailure {
		t.Fatalf("Kind = %s, want http_failure", outcome.Kind)
	}
	if elapsed >= time.Second {
		t.Errorf("Execute took %v, cancellation should have cut the backoff short", elapsed)
	}
	if target.RequestCount() != 1 {
		t.Errorf("RequestCount = %d, want 1 (no attempts after cancellation)", target.RequestCount())
	}
}

func TestOutcome_String(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    string
	}{
		{
			Outcome{URL: "http://x.test/1", Kind: KindSuccess, StatusCode: 200, BodyLength: 42},
			"[OK] http://x.test/1 200 len=42",
		},
		{
			Outcome{URL: "http://x.test/2", Kind: KindHTTPFailure, StatusCode: 404},
			"[HTTP 404] http://x.test/2",
		},
		{
			Outcome{URL: "http://x.test/3", Kind: KindNetworkFailure, Err: "network error: refused"},
			"[ERR] http://x.test/3 -> network error: refused",
		},
		{
			Outcome{URL: "http://x.test/4", Kind: KindRetriesExhausted},
			"[ERR] http://x.test/4 -> max retries exhausted",
		},
	}

	for _, tt := range tests {
		if got := tt.outcome.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestOutcome_OK(t *testing.T) {
	ok := Outcome{Kind: KindSuccess, StatusCode: 200}
	if !ok.OK() {
		t.Error("Expected 200 success to be OK")
	}

	for _, o := range []Outcome{
		{Kind: KindHTTPFailure, StatusCode: 404},
		{Kind: KindNetworkFailure},
		{Kind: KindRetriesExhausted},
	} {
		if o.OK() {
			t.Errorf("Outcome %+v should not be OK", o)
		}
	}
}
