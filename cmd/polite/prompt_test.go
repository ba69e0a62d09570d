package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Sternrassler/polite-requester/pkg/batch"
)

func TestPromptURL_ReasksUntilValid(t *testing.T) {
	in := strings.NewReader("not a url\nftp://x.test/\nhttps://x.test/{n}\n")
	var out bytes.Buffer
	p := newPrompter(in, &out)

	got := p.PromptURL("URL: ")
	if got != "https://x.test/{n}" {
		t.Errorf("PromptURL = %q, want https://x.test/{n}", got)
	}
	if n := strings.Count(out.String(), "Invalid input"); n != 2 {
		t.Errorf("Expected 2 re-prompts, got %d", n)
	}
}

func TestPromptPositiveInt(t *testing.T) {
	in := strings.NewReader("zero\n-3\n0\n25\n")
	var out bytes.Buffer
	p := newPrompter(in, &out)

	if got := p.PromptPositiveInt("Total: "); got != 25 {
		t.Errorf("PromptPositiveInt = %d, want 25", got)
	}
}

func TestPromptOptionalInt_EmptyKeepsDefault(t *testing.T) {
	in := strings.NewReader("\n")
	var out bytes.Buffer
	p := newPrompter(in, &out)

	if got := p.PromptOptionalInt("Concurrency: "); got != 0 {
		t.Errorf("PromptOptionalInt = %d, want 0 for empty answer", got)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		want     bool
	}{
		{"yes\n", "yes", true},
		{"YES\n", "yes", true},
		{"no\n", "yes", false},
		{"\n", "yes", false},
		{"go\n", "go", true},
	}

	for _, tt := range tests {
		p := newPrompter(strings.NewReader(tt.input), &bytes.Buffer{})
		if got := p.Confirm("? ", tt.expected); got != tt.want {
			t.Errorf("Confirm(%q, %q) = %v, want %v", tt.input, tt.expected, got, tt.want)
		}
	}
}

func TestValidURL(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"https://x.test/", true},
		{"http://x.test/{n}", true},
		{"ftp://x.test/", false},
		{"x.test/path", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := validURL(tt.raw); got != tt.want {
			t.Errorf("validURL(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestBuildRequest_CapGate(t *testing.T) {
	limits := batch.InteractiveLimits()

	// Over the cap, user confirms.
	in := strings.NewReader("yes\n")
	p := newPrompter(in, &bytes.Buffer{})
	opts := cliOptions{url: "https://x.test/", total: limits.MaxTotal + 1}

	req, err := buildRequest(p, opts, limits)
	if err != nil {
		t.Fatalf("buildRequest() error = %v", err)
	}
	if !req.OverrideCapConfirmed {
		t.Error("Expected OverrideCapConfirmed after confirmation")
	}

	// Over the cap, user declines.
	p = newPrompter(strings.NewReader("no\n"), &bytes.Buffer{})
	if _, err := buildRequest(p, opts, limits); err == nil {
		t.Error("Expected error when the cap confirmation is declined")
	}

	// --yes skips the prompt entirely.
	p = newPrompter(strings.NewReader(""), &bytes.Buffer{})
	opts.yes = true
	req, err = buildRequest(p, opts, limits)
	if err != nil {
		t.Fatalf("buildRequest() with --yes error = %v", err)
	}
	if !req.OverrideCapConfirmed {
		t.Error("Expected --yes to confirm the cap override")
	}
}

func TestEffectiveConcurrency(t *testing.T) {
	limits := batch.InteractiveLimits()

	if got := effectiveConcurrency(batch.Request{}, limits); got != limits.DefaultConcurrency {
		t.Errorf("effectiveConcurrency = %d, want default %d", got, limits.DefaultConcurrency)
	}
	if got := effectiveConcurrency(batch.Request{Concurrency: limits.MaxConcurrency + 5}, limits); got != limits.MaxConcurrency {
		t.Errorf("effectiveConcurrency = %d, want clamped %d", got, limits.MaxConcurrency)
	}
}
