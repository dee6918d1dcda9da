package pipeline

import (
	"fmt"
	"strings"
)

// Action is a quick edit offered for the whole query.
type Action string

const (
	AskAI        Action = "Ask AI"
	AddTimeRange Action = "Add time range"
	AddLimit     Action = "Add LIMIT"
)

// DefaultTimeColumn and DefaultLimit are used when the caller gives none.
const (
	DefaultTimeColumn = "timestamp"
	DefaultLimit      = 100
)

// Actions lists the quick edits that make sense for query. A time range is
// offered for multi-line queries that use no placeholder yet, a limit when
// no stage limits the result.
func Actions(query string) []Action {
	actions := []Action{AskAI}
	lines := splitLines(query)
	if len(lines) > 1 && !HasTimeRange(query) {
		actions = append(actions, AddTimeRange)
	}
	if !hasLimit(lines) {
		actions = append(actions, AddLimit)
	}
	return actions
}

func hasLimit(lines []string) bool {
	for _, line := range lines {
		if strings.Contains(strings.ToLower(line), "|> limit") {
			return true
		}
	}
	return false
}

// HasLimit reports whether any line carries a LIMIT stage.
func HasLimit(query string) bool {
	return hasLimit(splitLines(query))
}

// TimeRangeLine renders a WHERE stage bounding column by the placeholders.
func TimeRangeLine(column string) string {
	if column == "" {
		column = DefaultTimeColumn
	}
	return fmt.Sprintf("|> WHERE %s >= %s AND %s <= %s", column, StartPlaceholder, column, EndPlaceholder)
}

// LimitLine renders a LIMIT stage.
func LimitLine(n int) string {
	if n <= 0 {
		n = DefaultLimit
	}
	return fmt.Sprintf("|> LIMIT %d", n)
}

// AppendTimeRange appends a time range stage on column.
func AppendTimeRange(query, column string) string {
	return joinLines(append(splitLines(query), TimeRangeLine(column)))
}

// AppendLimit appends a LIMIT stage.
func AppendLimit(query string, n int) string {
	return joinLines(append(splitLines(query), LimitLine(n)))
}
