// Package webui renders the batch request form and results pages and parses
// submitted form values into a batch request.
package webui

import (
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/polite-requester/pkg/batch"
)

// FormData feeds the request form template.
type FormData struct {
	DefaultConcurrency int
	DefaultDelay       time.Duration
	MaxTotal           int
	Error              string
}

// ResultsData feeds the results template.
type ResultsData struct {
	Result batch.Result
}

var (
	formTmpl    = template.Must(template.New("form").Parse(formHTML))
	resultsTmpl = template.Must(template.New("results").Parse(resultsHTML))
)

// RenderForm writes the request form page.
func RenderForm(w io.Writer, data FormData) error {
	return formTmpl.Execute(w, data)
}

// RenderResults writes the batch results page.
func RenderResults(w io.Writer, data ResultsData) error {
	return resultsTmpl.Execute(w, data)
}

// ParseRequest converts submitted form values into a batch request. The
// total is required; concurrency and delay fall back to the given defaults
// when absent. Range and cap enforcement stays with the orchestrator.
func ParseRequest(form url.Values, defaultConcurrency int, defaultDelay time.Duration) (batch.Request, error) {
	req := batch.Request{
		URLTemplate: strings.TrimSpace(form.Get("url")),
		Concurrency: defaultConcurrency,
		Delay:       defaultDelay,
	}

	total, err := strconv.Atoi(strings.TrimSpace(form.Get("total")))
	if err != nil {
		return batch.Request{}, fmt.Errorf("%w: %q", batch.ErrInvalidTotal, form.Get("total"))
	}
	req.Total = total

	if v := strings.TrimSpace(form.Get("concurrency")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.Concurrency = n
		}
	}

	if v := strings.TrimSpace(form.Get("delay")); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			req.Delay = time.Duration(secs * float64(time.Second))
		}
	}

	return req, nil
}

const formHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Polite Requester</title>
  <style>
    body { font-family: sans-serif; max-width: 40em; margin: 2em auto; }
    label { display: block; margin-top: 1em; }
    input { width: 100%; padding: 0.3em; }
    button { margin-top: 1.5em; padding: 0.5em 2em; }
    .error { color: #b00; margin-top: 1em; }
  </style>
</head>
<body>
  <h1>Polite Requester</h1>
  <p>Sends up to {{.MaxTotal}} GET requests against a target URL. Use the
  <code>{n}</code> placeholder to insert the request number.</p>
  {{if .Error}}<p class="error">{{.Error}}</p>{{end}}
  <form method="POST" action="/">
    <label>Target URL <input name="url" placeholder="https://example.com/item/{n}" required></label>
    <label>Total requests <input name="total" type="number" min="1" required></label>
    <label>Concurrency (default {{.DefaultConcurrency}}) <input name="concurrency" type="number" min="1"></label>
    <label>Per-worker delay in seconds (default {{.DefaultDelay.Seconds}}) <input name="delay"></label>
    <button type="submit">Run batch</button>
  </form>
</body>
</html>
`

const resultsHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Polite Requester: Results</title>
  <style>
    body { font-family: sans-serif; max-width: 50em; margin: 2em auto; }
    table { border-collapse: collapse; width: 100%; margin-top: 1em; }
    th, td { border: 1px solid #ccc; padding: 0.3em 0.6em; text-align: left; }
    .ok { color: #080; }
    .err { color: #b00; }
  </style>
</head>
<body>
  <h1>Results</h1>
  <p><strong>{{.Result.Summary}}</strong></p>
  <table>
    <tr><th>URL</th><th>Status</th><th>Length</th><th>Error</th></tr>
    {{range .Result.Outcomes}}
    <tr>
      <td>{{.URL}}</td>
      <td class="{{if .OK}}ok{{else}}err{{end}}">{{if .StatusCode}}{{.StatusCode}}{{else}}&mdash;{{end}}</td>
      <td>{{if .OK}}{{.BodyLength}}{{end}}</td>
      <td>{{.Err}}</td>
    </tr>
    {{end}}
  </table>
  <p><a href="/">New batch</a></p>
</body>
</html>
`
