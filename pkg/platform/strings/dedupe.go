// Package strings provides string and slice helpers shared across modules.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
//
// Example:
//
//	DedupeAndTrim([]string{"  005 ", "006", "005", "", "  "})
//	// Returns: []string{"005", "006"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}
	return Dedupe(trimAll(values))
}

// DedupeAndNormalize is like DedupeAndTrim but maps each trimmed element
// through normalize first, dropping values it rejects.
// Used for RT numbers where "5" and "005" name the same block.
func DedupeAndNormalize(values []string, normalize func(string) (string, error)) []string {
	out := make([]string, 0, len(values))
	for _, v := range trimAll(values) {
		n, err := normalize(v)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return Dedupe(out)
}

// Dedupe removes repeated values, keeping the first occurrence.
func Dedupe[T comparable](values []T) []T {
	seen := make(map[T]struct{}, len(values))
	result := make([]T, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
