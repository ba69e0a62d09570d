// Command polite is the interactive command-line entry point for running
// polite GET request batches.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/polite-requester/internal/config"
	"github.com/Sternrassler/polite-requester/pkg/batch"
	"github.com/Sternrassler/polite-requester/pkg/logging"
	"github.com/Sternrassler/polite-requester/pkg/requester"
)

type cliOptions struct {
	url            string
	total          int
	concurrency    int
	delay          time.Duration
	timeout        time.Duration
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	rate           float64
	userAgent      string
	logLevel       string
	yes            bool
}

// defaultOptions seeds the flag defaults from the loaded configuration.
func defaultOptions(cfg config.Config) cliOptions {
	return cliOptions{
		delay:          cfg.DefaultDelay,
		timeout:        cfg.Timeout,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		rate:           cfg.RatePerSecond,
		userAgent:      cfg.UserAgent,
		logLevel:       cfg.LogLevel,
	}
}

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg, err := config.LoadFrom(config.InteractiveDefault(), os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	limits := cfg.Limits()
	opts := defaultOptions(cfg)

	root := &cobra.Command{
		Use:     "polite",
		Short:   "Send a batch of polite GET requests with retries and pacing",
		Long:    "Sends a batch of GET requests against a target URL, retrying transient\nfailures with exponential backoff. Use the {n} placeholder in the URL to\ninsert the request number. Missing parameters are prompted interactively.",
		Example: "  polite --url 'https://example.com/item/{n}' --total 100 --concurrency 10\n  polite",
		Version: getVersion(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, limits)
		},
		SilenceUsage: true,
	}

	flags := root.Flags()
	flags.StringVar(&opts.url, "url", "", "target URL, optionally containing the {n} placeholder")
	flags.IntVar(&opts.total, "total", 0, "number of requests to send")
	flags.IntVar(&opts.concurrency, "concurrency", 0, fmt.Sprintf("worker pool size (default %d)", limits.DefaultConcurrency))
	flags.DurationVar(&opts.delay, "delay", opts.delay, "per-worker pacing delay after each completed request")
	flags.DurationVar(&opts.timeout, "timeout", opts.timeout, "per-attempt request timeout")
	flags.IntVar(&opts.maxAttempts, "max-attempts", opts.maxAttempts, "attempts per request including the first")
	flags.DurationVar(&opts.maxBackoff, "max-backoff", opts.maxBackoff, "retry backoff ceiling")
	flags.Float64Var(&opts.rate, "rate", opts.rate, "global rate limit in requests/sec; 0 = unlimited")
	flags.StringVar(&opts.userAgent, "user-agent", opts.userAgent, "User-Agent header sent with every request")
	flags.StringVar(&opts.logLevel, "log-level", opts.logLevel, "log level (debug, info, warn, error)")
	flags.BoolVar(&opts.yes, "yes", false, "skip confirmation prompts")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts cliOptions, limits batch.Limits) error {
	lc := logging.DefaultConfig()
	lc.Level = logging.LogLevel(opts.logLevel)
	lc.Pretty = true
	logging.Setup(lc)

	fmt.Println("WARNING: Only use this on sites you own or have explicit permission to test.")
	fmt.Println()

	prompter := newPrompter(os.Stdin, os.Stdout)

	req, err := buildRequest(prompter, opts, limits)
	if err != nil {
		return err
	}

	fmt.Printf("\nWill send %d requests. Concurrency=%d, delay=%s per worker.\n",
		req.Total, effectiveConcurrency(req, limits), req.Delay)
	if !opts.yes {
		if !prompter.Confirm("Type 'go' to start or anything else to cancel: ", "go") {
			fmt.Println("Canceled.")
			return nil
		}
	}

	client, err := requester.New(requester.Config{
		UserAgent: opts.userAgent,
		Timeout:   opts.timeout,
		Retry: requester.RetryConfig{
			MaxAttempts:       opts.maxAttempts,
			InitialBackoff:    opts.initialBackoff,
			MaxBackoff:        opts.maxBackoff,
			BackoffMultiplier: 2.0,
		},
	})
	if err != nil {
		return err
	}
	defer client.Close()

	runner := batch.NewRunner(client, limits)
	if opts.rate > 0 {
		runner.SetDispatcher(batch.NewDispatcher(opts.rate))
	}

	result, err := runner.RunObserved(ctx, req, func(o requester.Outcome) {
		fmt.Println(o)
	})
	if err != nil {
		return err
	}

	if ctx.Err() != nil {
		fmt.Println("\nInterrupted. Partial summary:")
	} else {
		fmt.Println("\nDone. Summary:")
	}
	fmt.Println(result.Summary())
	return nil
}

// buildRequest fills missing parameters interactively and applies the
// cap-confirmation gate.
func buildRequest(p *prompter, opts cliOptions, limits batch.Limits) (batch.Request, error) {
	req := batch.Request{
		URLTemplate:          opts.url,
		Total:                opts.total,
		Concurrency:          opts.concurrency,
		Delay:                opts.delay,
		OverrideCapConfirmed: opts.yes,
	}

	// Concurrency is only prompted in fully interactive sessions; with flags
	// the configured default applies.
	interactive := req.URLTemplate == "" || req.Total <= 0

	if req.URLTemplate == "" {
		req.URLTemplate = p.PromptURL(`Enter URL (use "{n}" for a numeric placeholder): `)
	}
	if req.Total <= 0 {
		req.Total = p.PromptPositiveInt("How many requests do you want to send? ")
	}
	if interactive && req.Concurrency <= 0 {
		req.Concurrency = p.PromptOptionalInt(
			fmt.Sprintf("Concurrency (default %d): ", limits.DefaultConcurrency))
	}

	if limits.MaxTotal > 0 && req.Total > limits.MaxTotal && !req.OverrideCapConfirmed {
		fmt.Printf("\nRequested %d exceeds the safe cap (%d).\n", req.Total, limits.MaxTotal)
		if !p.Confirm("Type 'yes' to proceed anyway, anything else to cancel: ", "yes") {
			return batch.Request{}, errors.New("canceled: request exceeds the safe cap")
		}
		req.OverrideCapConfirmed = true
	}

	return req, nil
}

func effectiveConcurrency(req batch.Request, limits batch.Limits) int {
	c := req.Concurrency
	if c <= 0 {
		c = limits.DefaultConcurrency
	}
	if limits.MaxConcurrency > 0 && c > limits.MaxConcurrency {
		c = limits.MaxConcurrency
	}
	return c
}
