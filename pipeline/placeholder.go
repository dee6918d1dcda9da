package pipeline

import (
	"regexp"
	"strings"
)

// Placeholder names recognised in query source.
const (
	StartPlaceholder = "$start"
	EndPlaceholder   = "$end"
)

var (
	startRe = regexp.MustCompile(`\$start\b`)
	endRe   = regexp.MustCompile(`\$end\b`)
)

// ResolvePlaceholders replaces every whole-word $start and $end with the
// given timestamp expressions. "$starting" is left as is.
func ResolvePlaceholders(query, start, end string) string {
	q := startRe.ReplaceAllLiteralString(query, start)
	return endRe.ReplaceAllLiteralString(q, end)
}

// Placeholder is one placeholder occurrence in query source.
type Placeholder struct {
	Name   string
	Line   int // 1-based
	Column int // 1-based column right after the placeholder
}

// FindPlaceholders reports the first occurrence of each placeholder on every
// line, in line order with $start before $end on the same line.
func FindPlaceholders(query string) []Placeholder {
	var found []Placeholder
	for i, line := range splitLines(query) {
		for _, p := range []struct {
			name string
			re   *regexp.Regexp
		}{{StartPlaceholder, startRe}, {EndPlaceholder, endRe}} {
			loc := p.re.FindStringIndex(line)
			if loc == nil {
				continue
			}
			found = append(found, Placeholder{Name: p.name, Line: i + 1, Column: loc[1] + 1})
		}
	}
	return found
}

// HasTimeRange reports whether the query mentions either placeholder at all.
func HasTimeRange(query string) bool {
	return strings.Contains(query, StartPlaceholder) || strings.Contains(query, EndPlaceholder)
}
