package pipeline

import "strings"

// StripComments prepares a query for dispatch. Blank lines and lines that are
// comments as a whole (disabled stages and their continuation lines included)
// are dropped, and a trailing " -- " comment is cut from the remaining lines,
// which removes the provenance of generated filters. A " -- " inside a
// single-quoted literal is part of the literal.
func StripComments(query string) string {
	var kept []string
	for _, line := range splitLines(query) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		if idx := trailingCommentIndex(line); idx != -1 {
			line = line[:idx]
		}
		kept = append(kept, line)
	}
	return joinLines(kept)
}

// trailingCommentIndex returns the offset of the first " -- " outside
// single quotes, or -1. A doubled quote toggles twice and stays literal.
func trailingCommentIndex(line string) int {
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch {
		case line[i] == '\'':
			inQuote = !inQuote
		case !inQuote && strings.HasPrefix(line[i:], " -- "):
			return i
		}
	}
	return -1
}
