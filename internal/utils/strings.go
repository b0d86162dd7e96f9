// Package utils holds small helpers shared by handlers and services.
package utils

import "strings"

// ParseCSV splits a comma-separated string and returns trimmed non-empty values.
// Returns nil for empty/whitespace-only input.
func ParseCSV(s string) []string {
	if s == "" {
		return nil
	}

	var result []string
	for _, v := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return nil
	}

	return result
}

// ParseTickerList parses "aapl, msft,AAPL" into uppercase, de-duplicated tickers
// in first-seen order.
func ParseTickerList(s string) []string {
	values := ParseCSV(s)
	if values == nil {
		return nil
	}

	seen := make(map[string]bool, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		ticker := strings.ToUpper(v)
		if seen[ticker] {
			continue
		}
		seen[ticker] = true
		result = append(result, ticker)
	}
	return result
}
