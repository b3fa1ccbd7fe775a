// Package utils provides small, generic helpers independent of domain
// logic. The list handlers use AtoiDefault for page/page_size query params.
package utils

import "strconv"

// AtoiDefault parses s as an int, returning def when s is empty or does not
// parse. Query values arrive pre-trimmed from Gin, so no trimming happens
// here; " 42" is treated as unparseable.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
