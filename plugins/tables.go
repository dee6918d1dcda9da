package plugins

import "github.com/bawdo/oql/pipeline"

// TableSet restricts a plugin to some tables. The zero value applies to
// every table.
type TableSet map[string]bool

// NewTableSet builds a set from names. No names gives the zero value.
func NewTableSet(names ...string) TableSet {
	if len(names) == 0 {
		return nil
	}
	ts := make(TableSet, len(names))
	for _, n := range names {
		ts[n] = true
	}
	return ts
}

// Add puts name into the set, turning the zero value into a restriction.
func (ts *TableSet) Add(name string) {
	if *ts == nil {
		*ts = TableSet{}
	}
	(*ts)[name] = true
}

// Allows reports whether table is covered. The empty table name, a query
// whose FROM could not be found, is only covered by the zero value.
func (ts TableSet) Allows(table string) bool {
	if ts == nil {
		return true
	}
	return ts[table]
}

// TargetTable returns the table a pipe query reads from, or "".
func TargetTable(query string) string {
	return pipeline.ExtractTable(query)
}
