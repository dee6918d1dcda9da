// Package quoting provides SQL string-literal escaping for generated clauses.
package quoting

import "strings"

// EscapeString escapes a value for use inside a single-quoted SQL literal by
// doubling single quotes and escaping backslashes. ClickHouse and MySQL both
// treat backslash as an escape character inside string literals.
func EscapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", "''")
}

// LikeContains renders a LIKE pattern literal matching s anywhere in a value:
// '%<s>%'. LIKE wildcards inside s are not escaped, so a '%' typed into a
// cell keeps acting as a wildcard.
func LikeContains(s string) string {
	return "'%" + EscapeString(s) + "%'"
}

// IsPlainIdentifier reports whether s can be used unquoted as a column or
// table name: a letter or underscore followed by letters, digits or
// underscores.
func IsPlainIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// EscapeLikePattern escapes LIKE wildcard characters (%, _) in a string
// so they are matched literally. The backslash is used as the escape character.
func EscapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
