package pipeline

import (
	"regexp"
	"strings"
)

var fromRe = regexp.MustCompile(`(?i)^from\s+(\w+)`)

// ExtractTable returns the table named by the query's leading FROM clause.
// Blank lines and comment lines are skipped, so the table name may sit on the
// line after the FROM keyword. It is a hint for schema lookups, not a
// validating parse: anything unexpected yields "".
func ExtractTable(query string) string {
	var significant []string
	for _, line := range splitLines(query) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		significant = append(significant, trimmed)
	}
	if m := fromRe.FindStringSubmatch(strings.Join(significant, "\n")); m != nil {
		return m[1]
	}
	return ""
}

// TableDefinition is the schema of one table as reported by discovery.
type TableDefinition struct {
	Table       string   `json:"table" yaml:"table"`
	Description string   `json:"description" yaml:"description"`
	Columns     []string `json:"columns" yaml:"columns"`
}

// HasColumn reports whether the table declares column.
func (td TableDefinition) HasColumn(column string) bool {
	for _, c := range td.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Tables is a snapshot of known table definitions.
type Tables []TableDefinition

// Lookup finds a table by exact name.
func (ts Tables) Lookup(name string) (TableDefinition, bool) {
	for _, t := range ts {
		if t.Table == name {
			return t, true
		}
	}
	return TableDefinition{}, false
}

// Names returns the table names in snapshot order.
func (ts Tables) Names() []string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.Table
	}
	return names
}
