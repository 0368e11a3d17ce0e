// Package string holds small text helpers shared by validation and logging.
package string

import (
	"strings"
	"unicode"
)

// ToSnakeCase converts a Go field name to its snake_case form, keeping
// acronyms together: "MinApprovers" -> "min_approvers", "ResultID" -> "result_id".
func ToSnakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 &&
			(unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
