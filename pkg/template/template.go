// Package template expands the numeric placeholder in target URL templates.
//
// A template may contain the token "{n}"; each unit of work substitutes its
// own 1-based sequence index for it. A template without the token is used
// verbatim for every request.
package template

import (
	"strconv"
	"strings"
)

// Placeholder is the token replaced by the per-request sequence index.
const Placeholder = "{n}"

// HasPlaceholder reports whether tmpl contains the numeric placeholder.
func HasPlaceholder(tmpl string) bool {
	return strings.Contains(tmpl, Placeholder)
}

// Expand substitutes index for every occurrence of the placeholder in tmpl.
// A template without the placeholder is returned unchanged. Expand is pure
// and never fails; malformed templates fail downstream URL validation.
func Expand(tmpl string, index int) string {
	if !HasPlaceholder(tmpl) {
		return tmpl
	}
	return strings.ReplaceAll(tmpl, Placeholder, strconv.Itoa(index))
}

// Probe returns the template with the placeholder substituted by "1",
// suitable for validating the URL shape before dispatching any work.
func Probe(tmpl string) string {
	return Expand(tmpl, 1)
}
