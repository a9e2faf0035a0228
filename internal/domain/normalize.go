package domain

import "strings"

// NormalizeEmail trims surrounding whitespace. Case is preserved because the
// identity provider owns email matching semantics.
func NormalizeEmail(s string) string {
	return strings.TrimSpace(s)
}
