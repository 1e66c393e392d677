package service

import (
	"regexp"
	"strings"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	currencyRegex   = regexp.MustCompile(`^[A-Z]{3}$`)
)

// sanitizeString collapses whitespace and trims the result.
func sanitizeString(value string) string {
	value = whitespaceRegex.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

// normalizeCurrency uppercases and trims an ISO 4217 code.
func normalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func validCurrency(code string) bool {
	return currencyRegex.MatchString(code)
}

// normalizeTerms lowercases, trims and deduplicates a term list, preserving
// first-seen order. Desired items, excluded items and tags all go through
// this so matching comparisons are case-insensitive.
func normalizeTerms(terms []string) []string {
	if len(terms) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(sanitizeString(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
