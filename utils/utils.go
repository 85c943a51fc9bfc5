package utils

import (
	"strings"
)

// NormalizeSymbol trims and uppercases a ticker symbol
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// SplitSymbols splits a comma separated symbol list, normalizing each symbol and
// dropping empty entries and duplicates. Order of first appearance is kept.
func SplitSymbols(list string) []string {
	return UniqueSymbols(strings.Split(list, ","))
}

// UniqueSymbols normalizes symbols, dropping empty entries and duplicates
func UniqueSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = NormalizeSymbol(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// IsProdEnv reports whether the loaded configuration is a production stage
func IsProdEnv() bool {
	return strings.Contains(strings.ToLower(config.Stage), "prod")
}

// IsTestEnv reports whether the loaded configuration is the test stage
func IsTestEnv() bool {
	return strings.Contains(strings.ToLower(config.Stage), "test")
}
