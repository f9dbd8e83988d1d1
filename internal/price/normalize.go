// Package price turns scraped price text into numeric prices.
package price

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"sjsage522/pricewatch/pkg/errors"
)

// MaxPlausible is the largest price accepted from a scrape.
const MaxPlausible = 100000.0

var (
	symbols  = strings.NewReplacer("₱", "", "$", "", "€", "", "£", "", "¥", "", ",", "")
	spaces   = regexp.MustCompile(`\s+`)
	words    = regexp.MustCompile(`(?i)USD|PHP|per\s*pill|each|from`)
	numberRe = regexp.MustCompile(`\d+\.?\d*`)
)

// Normalize extracts the first decimal number from free-form price text such
// as "$1,234.56", "₱ 99.00 per pill" or "From $12". It reports false when the
// text contains no number.
func Normalize(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	s := symbols.Replace(raw)
	s = spaces.ReplaceAllString(s, "")
	s = words.ReplaceAllString(s, "")

	m := numberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(m, "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Plausible reports whether p is within (0, MaxPlausible].
func Plausible(p float64) bool {
	return p > 0 && p <= MaxPlausible
}

// Parse normalizes raw and rejects implausible values. Errors are parsing
// errors attributed to subject.
func Parse(subject, raw string) (float64, error) {
	p, ok := Normalize(raw)
	if !ok {
		return 0, errors.NewParsing(subject, fmt.Sprintf("Could not parse price from: %q", raw))
	}
	if !Plausible(p) {
		return 0, errors.NewParsing(subject, fmt.Sprintf("Invalid price value: %v", p))
	}
	return p, nil
}
