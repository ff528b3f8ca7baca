// Package plate normalizes license plate strings so OCR output and stored
// registry values compare equal.
package plate

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/tphakala/platewatch/internal/errors"
)

// foldAccents decomposes runes and drops combining marks, so "Ñ" becomes "N".
var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize returns the canonical form of a plate: accents folded,
// uppercased, and every rune outside A-Z and 0-9 removed. "abc-12 3" and
// "ABC123" normalize to the same value. An input with no alphanumerics
// yields "".
func Normalize(raw string) string {
	folded, _, err := transform.String(foldAccents, raw)
	if err != nil {
		folded = raw
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToUpper(folded) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Format checks normalized plates against an optional pattern. The zero
// value accepts any non-empty plate.
type Format struct {
	pattern *regexp.Regexp
}

// NewFormat compiles pattern. An empty pattern accepts every non-empty plate.
func NewFormat(pattern string) (*Format, error) {
	if pattern == "" {
		return &Format{}, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.New(err).
			Component("plate").
			Category(errors.CategoryConfiguration).
			Context("pattern", pattern).
			Build()
	}
	return &Format{pattern: re}, nil
}

// Match reports whether the normalized plate is acceptable.
func (f *Format) Match(normalized string) bool {
	if normalized == "" {
		return false
	}
	if f == nil || f.pattern == nil {
		return true
	}
	return f.pattern.MatchString(normalized)
}

// Parse normalizes raw and checks it against the format. It returns a
// CategoryPlate error when nothing usable remains.
func (f *Format) Parse(raw string) (string, error) {
	normalized := Normalize(raw)
	if !f.Match(normalized) {
		return "", errors.Newf("plate %q does not match expected format", raw).
			Component("plate").
			Category(errors.CategoryPlate).
			Context("plate", normalized).
			Build()
	}
	return normalized, nil
}
