// Package pipeline edits OQL pipe-query source as a sequence of lines.
//
// A query is a leading FROM clause followed by pipe stages. Each stage starts
// with a marker line ("|>" when enabled, "--|>" when disabled) and owns the
// continuation lines that follow it up to the next marker line. Every
// function in this package is pure: it takes the full query text plus any
// context it needs and returns a new query text. Functions that can refuse an
// edit return the input unchanged together with an error.
package pipeline

import "strings"

const (
	// EnabledMarker starts an active pipe stage.
	EnabledMarker = "|>"
	// DisabledMarker starts a pipe stage that has been switched off.
	DisabledMarker = "--|>"
	// CommentPrefix is a plain single-line comment written by the user.
	CommentPrefix = "-- "
	// ContinuationPrefix marks continuation lines of a disabled stage.
	ContinuationPrefix = `--\ `
)

// DefaultQuery is the starter query shown to a new session.
const DefaultQuery = `FROM apache_logs
|> WHERE timestamp BETWEEN $start AND $end
|> ORDER BY timestamp DESC
|> SELECT timestamp, severity, msg, client
|> WHERE client IS NOT NULL
|> AGGREGATE count(*) as client_count, any(msg) as sample_msg group by client
|> ORDER BY client_count DESC
|> LIMIT 100`

// lineKind classifies a single source line.
type lineKind int

const (
	kindBlank lineKind = iota
	kindEnabledMarker
	kindDisabledMarker
	kindContinuation
)

// classify looks only at the trimmed prefix of a line.
// The disabled marker is checked first since "--|>" is not an "|>" prefix
// but must never be mistaken for a plain comment.
func classify(line string) lineKind {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return kindBlank
	case strings.HasPrefix(trimmed, DisabledMarker):
		return kindDisabledMarker
	case strings.HasPrefix(trimmed, EnabledMarker):
		return kindEnabledMarker
	default:
		return kindContinuation
	}
}

func isMarker(k lineKind) bool {
	return k == kindEnabledMarker || k == kindDisabledMarker
}

// splitLines and joinLines are the only places that know the line separator.
func splitLines(query string) []string {
	return strings.Split(query, "\n")
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

// Lines splits a query into its source lines.
func Lines(query string) []string {
	return splitLines(query)
}
