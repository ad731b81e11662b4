// pkg/apimount/namespace.go
package apimount

import (
	"strings"
	"unicode"
)

// DeriveNamespace converts a method or type identifier into its path segment:
// lower-cased, hyphen-separated at word boundaries. someMethodName ->
// some-method-name, HTTPServer -> http-server. Deterministic and stable under
// re-application (already-converted input comes back unchanged).
func DeriveNamespace(identifier string) string {
	rs := []rune(identifier)
	var b strings.Builder
	b.Grow(len(identifier) + 4)
	for i, r := range rs {
		if !unicode.IsUpper(r) {
			b.WriteRune(r)
			continue
		}
		// Boundary: upper after lower/digit, or last upper of an acronym run
		// followed by a lower (HTTPServer -> http-server).
		boundary := false
		if i > 0 {
			prev := rs[i-1]
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				boundary = true
			} else if unicode.IsUpper(prev) && i+1 < len(rs) && unicode.IsLower(rs[i+1]) {
				boundary = true
			}
		}
		if boundary {
			b.WriteByte('-')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
