// Package oql edits and prepares pipe queries: line-oriented queries whose
// stages start with "|>" and can be switched off by commenting them out.
//
// This package re-exports commonly used types and functions from subpackages
// for convenience. Advanced users can import subpackages directly:
//   - github.com/bawdo/oql/pipeline (stage editing, filters, completion)
//   - github.com/bawdo/oql/timerange (date range boundaries)
//   - github.com/bawdo/oql/plugins (query transformers)
//   - github.com/bawdo/oql/backend (query backend client)
package oql

import (
	"fmt"
	"time"

	"github.com/bawdo/oql/pipeline"
	"github.com/bawdo/oql/plugins"
	"github.com/bawdo/oql/timerange"
)

// --- Query types ---

// Stage is one pipe stage of a query.
type Stage = pipeline.Stage

// Filter is an include/exclude gesture on a result cell.
type Filter = pipeline.Filter

// Operator is the direction of a Filter.
type Operator = pipeline.Operator

// Direction is the sort direction of a generated ORDER BY stage.
type Direction = pipeline.Direction

// Tables is a list of table definitions used for completion and filters.
type Tables = pipeline.Tables

// TableDefinition names a table and its columns.
type TableDefinition = pipeline.TableDefinition

// Range is a pair of date range boundaries.
type Range = timerange.Range

// Transformer rewrites a query before it is dispatched.
type Transformer = plugins.Transformer

// Filter operators and sort directions.
const (
	Include    = pipeline.Include
	Exclude    = pipeline.Exclude
	Ascending  = pipeline.Ascending
	Descending = pipeline.Descending
)

// DefaultQuery is the starter query of a new session.
const DefaultQuery = pipeline.DefaultQuery

// --- Editing ---

// Stages lists the pipe stages of query.
func Stages(query string) []Stage {
	return pipeline.Stages(query)
}

// ToggleStage switches the stage at lineNumber off when isPlay is true and
// back on when it is false.
func ToggleStage(query string, lineNumber int, isPlay bool) (string, error) {
	return pipeline.ToggleStage(query, lineNumber, isPlay)
}

// ApplyFilter adds or replaces the generated WHERE stage for f.Column.
func ApplyFilter(query string, f Filter, tables Tables, currentTable string) (string, error) {
	return pipeline.ApplyFilter(query, f, tables, currentTable)
}

// ApplyOrder sets the query's ORDER BY stage.
func ApplyOrder(query, column string, dir Direction) (string, error) {
	return pipeline.ApplyOrder(query, column, dir)
}

// ExtractTable returns the table of the query's FROM line.
func ExtractTable(query string) string {
	return pipeline.ExtractTable(query)
}

// --- Dispatch ---

// DefaultRange returns the range a new session starts with.
func DefaultRange() Range {
	return timerange.Default()
}

// Dispatch prepares query for the backend: transformers run in order, the
// $start and $end placeholders are resolved against rng at now, and comments
// and disabled stages are stripped. The query itself is never modified.
func Dispatch(query string, rng Range, now time.Time, transformers ...Transformer) (string, error) {
	q, err := plugins.Chain(transformers).TransformQuery(query)
	if err != nil {
		return "", fmt.Errorf("plugin: %w", err)
	}
	start, end, err := rng.Resolve(now)
	if err != nil {
		return "", fmt.Errorf("range: %w", err)
	}
	return pipeline.StripComments(pipeline.ResolvePlaceholders(q, start, end)), nil
}
