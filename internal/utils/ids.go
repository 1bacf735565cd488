// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strings"

// SplitIDList splits a comma-separated id list into its non-empty,
// trimmed elements. An empty or all-whitespace input yields nil.
//
// Example:
//
//	SplitIDList("a, b,,c") // returns []string{"a", "b", "c"}
//	SplitIDList("")        // returns nil
func SplitIDList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
