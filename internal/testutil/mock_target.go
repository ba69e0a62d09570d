// Package testutil provides test doubles for batch request tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockTarget is a configurable target HTTP server for testing. Paths can be
// scripted with a sequence of status codes consumed one request at a time;
// the last status repeats once the script runs out. Unscripted paths answer
// 200 with a small body.
type MockTarget struct {
	server *httptest.Server

	mu        sync.Mutex
	scripts   map[string][]int
	bodies    map[string]string
	delay     time.Duration
	stopped   bool
	paths     []string
	userAgent string

	requestCount int
	inFlight     int
	peakInFlight int
}

// NewMockTarget starts a new mock target server.
func NewMockTarget() *MockTarget {
	m := &MockTarget{
		scripts: make(map[string][]int),
		bodies:  make(map[string]string),
	}

	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the mock server base URL.
func (m *MockTarget) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockTarget) Close() {
	m.server.Close()
}

// Script configures the sequence of status codes returned for path.
func (m *MockTarget) Script(path string, statuses ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[path] = statuses
}

// SetBody configures the response body returned for path.
func (m *MockTarget) SetBody(path, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodies[path] = body
}

// SetDelay makes every response wait before answering.
func (m *MockTarget) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// RequestCount returns the number of requests received.
func (m *MockTarget) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount
}

// PeakInFlight returns the maximum number of requests observed in flight at
// once, for verifying the dispatcher's concurrency bound.
func (m *MockTarget) PeakInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peakInFlight
}

// LastUserAgent returns the User-Agent header of the most recent request.
func (m *MockTarget) LastUserAgent() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userAgent
}

// Paths returns the request paths received, in arrival order.
func (m *MockTarget) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.paths...)
}

// Reset clears tracking counters and scripts.
func (m *MockTarget) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts = make(map[string][]int)
	m.bodies = make(map[string]string)
	m.requestCount = 0
	m.peakInFlight = 0
	m.paths = nil
	m.userAgent = ""
}

func (m *MockTarget) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requestCount++
	m.inFlight++
	if m.inFlight > m.peakInFlight {
		m.peakInFlight = m.inFlight
	}
	m.paths = append(m.paths, r.URL.Path)
	m.userAgent = r.Header.Get("User-Agent")

	status := http.StatusOK
	if script, ok := m.scripts[r.URL.Path]; ok && len(script) > 0 {
		status = script[0]
		if len(script) > 1 {
			m.scripts[r.URL.Path] = script[1:]
		}
	}

	body, ok := m.bodies[r.URL.Path]
	if !ok {
		body = `{"status":"ok"}`
	}
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	w.WriteHeader(status)
	if status == http.StatusOK {
		w.Write([]byte(body))
	}

	m.mu.Lock()
	m.inFlight--
	m.mu.Unlock()
}
