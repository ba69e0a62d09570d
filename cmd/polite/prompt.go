package main

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/polite-requester/pkg/template"
)

// prompter reads interactive parameters line by line, re-prompting until the
// input validates.
type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewScanner(in), out: out}
}

func (p *prompter) readLine(prompt string) (string, bool) {
	fmt.Fprint(p.out, prompt)
	if !p.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.in.Text()), true
}

// PromptURL asks for a target URL until it parses as http(s) with a host.
// The {n} placeholder is probed with "1" before validation.
func (p *prompter) PromptURL(prompt string) string {
	for {
		val, ok := p.readLine(prompt)
		if !ok {
			return ""
		}
		if validURL(val) {
			return val
		}
		fmt.Fprintln(p.out, "Invalid input, please try again.")
	}
}

// PromptPositiveInt asks until a positive integer is entered.
func (p *prompter) PromptPositiveInt(prompt string) int {
	for {
		val, ok := p.readLine(prompt)
		if !ok {
			return 0
		}
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
		fmt.Fprintln(p.out, "Invalid input, please try again.")
	}
}

// PromptOptionalInt asks for a positive integer; an empty answer returns
// zero, leaving the configured default in effect.
func (p *prompter) PromptOptionalInt(prompt string) int {
	for {
		val, ok := p.readLine(prompt)
		if !ok || val == "" {
			return 0
		}
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
		fmt.Fprintln(p.out, "Invalid input, please try again.")
	}
}

// Confirm asks once and reports whether the answer matches expected
// (case-insensitive).
func (p *prompter) Confirm(prompt, expected string) bool {
	val, ok := p.readLine(prompt)
	if !ok {
		return false
	}
	return strings.EqualFold(val, expected)
}

func validURL(raw string) bool {
	u, err := url.Parse(template.Probe(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
