// Command polite-server serves the capped web form for running polite GET
// request batches.
package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Sternrassler/polite-requester/internal/config"
	"github.com/Sternrassler/polite-requester/internal/webui"
	"github.com/Sternrassler/polite-requester/pkg/batch"
	"github.com/Sternrassler/polite-requester/pkg/logging"
	"github.com/Sternrassler/polite-requester/pkg/requester"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LoggingConfig())

	client, err := requester.New(cfg.RequesterConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create request executor")
	}
	defer client.Close()

	runner := batch.NewRunner(client, cfg.Limits())
	if cfg.RatePerSecond > 0 {
		runner.SetDispatcher(batch.NewDispatcher(cfg.RatePerSecond))
	}

	http.HandleFunc("/", formHandler(runner, cfg))
	http.HandleFunc("/healthz", healthHandler)
	http.Handle("/metrics", promhttp.Handler())

	addr := ":" + cfg.Port
	logger.Info().
		Str("addr", addr).
		Str("user_agent", cfg.UserAgent).
		Int("max_total", cfg.MaxTotal).
		Msg("Starting polite-requester server")

	if err := http.ListenAndServe(addr, nil); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// formHandler renders the request form on GET and runs a batch on POST.
func formHandler(runner *batch.Runner, cfg config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		formData := webui.FormData{
			DefaultConcurrency: cfg.DefaultConcurrency,
			DefaultDelay:       cfg.DefaultDelay,
			MaxTotal:           cfg.MaxTotal,
		}

		if r.Method != http.MethodPost {
			webui.RenderForm(w, formData)
			return
		}

		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form submission", http.StatusBadRequest)
			return
		}

		req, err := webui.ParseRequest(r.PostForm, cfg.DefaultConcurrency, cfg.DefaultDelay)
		if err != nil {
			formData.Error = err.Error()
			w.WriteHeader(http.StatusBadRequest)
			webui.RenderForm(w, formData)
			return
		}

		result, err := runner.Run(r.Context(), req)
		if err != nil {
			formData.Error = rejectionMessage(err)
			w.WriteHeader(http.StatusBadRequest)
			webui.RenderForm(w, formData)
			return
		}

		webui.RenderResults(w, webui.ResultsData{Result: result})
	}
}

// rejectionMessage maps validation errors to user-facing text.
func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, batch.ErrInvalidURL):
		return "Invalid URL: use http:// or https:// with a host"
	case errors.Is(err, batch.ErrInvalidTotal):
		return "Invalid total: enter a positive number"
	case errors.Is(err, batch.ErrTotalTooLarge):
		return "Too many requests: " + err.Error()
	case errors.Is(err, batch.ErrInvalidDelay):
		return "Invalid delay: must not be negative"
	default:
		return err.Error()
	}
}
