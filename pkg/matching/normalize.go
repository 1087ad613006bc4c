package matching

import "strings"

// Normalize lowercases s and collapses all runs of whitespace to one space.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
