package pipeline

import "regexp"

// CompletionKind says what an editor should offer at the cursor.
type CompletionKind int

const (
	CompleteNothing CompletionKind = iota
	CompleteTables
	CompleteColumns
	CompleteKeywords
)

func (k CompletionKind) String() string {
	switch k {
	case CompleteTables:
		return "tables"
	case CompleteColumns:
		return "columns"
	case CompleteKeywords:
		return "keywords"
	}
	return "nothing"
}

// StageKeywords are offered right after a stage marker.
var StageKeywords = []string{"from", "limit", "select", "where", "order", "aggregate"}

// ColumnExtras are offered next to the current table's columns.
var ColumnExtras = []string{EndPlaceholder, StartPlaceholder, "*"}

var (
	completeFromRe    = regexp.MustCompile(`(?i)^from\s+`)
	completeColumnsRe = regexp.MustCompile(`(?i)^\|>\s+(where|select|aggregate|order)\s+.*`)
	completeStageRe   = regexp.MustCompile(`(?i)^\|>\s+`)
)

// CompletionAt classifies the text of a line up to the cursor.
func CompletionAt(linePrefix string) CompletionKind {
	switch {
	case completeFromRe.MatchString(linePrefix):
		return CompleteTables
	case completeColumnsRe.MatchString(linePrefix):
		return CompleteColumns
	case completeStageRe.MatchString(linePrefix):
		return CompleteKeywords
	}
	return CompleteNothing
}

// Candidates returns the completion words for kind. Columns come from the
// current table's definition; an unknown table has none.
func Candidates(kind CompletionKind, tables Tables, currentTable string) []string {
	switch kind {
	case CompleteTables:
		return tables.Names()
	case CompleteColumns:
		td, ok := tables.Lookup(currentTable)
		if !ok {
			return nil
		}
		out := append([]string{}, td.Columns...)
		return append(out, ColumnExtras...)
	case CompleteKeywords:
		return append([]string{}, StageKeywords...)
	}
	return nil
}
