// Package timerange provides a Transformer that bounds queries by the
// session's date range, appending
//
//	|> WHERE timestamp >= $start AND timestamp <= $end
//
// to any query that does not use the $start or $end placeholders yet. The
// placeholders are substituted later, when the query is resolved for
// dispatch. Queries that already mention a placeholder are left alone.
//
// # Basic usage
//
//	tr := timerange.New()
//	q, _ := tr.TransformQuery("FROM apache_logs\n|> LIMIT 10")
//	// FROM apache_logs
//	// |> LIMIT 10
//	// |> WHERE timestamp >= $start AND timestamp <= $end
//
// # Custom column
//
//	tr := timerange.New(timerange.WithColumn("event_time"))
//
// # Restrict to specific tables
//
//	tr := timerange.New(timerange.WithTables("apache_logs", "linux_logs"))
//	// queries on other tables are unchanged
//
// # Per-table columns
//
//	tr := timerange.New(
//	    timerange.WithTableColumn("kibana_sample_data_logs", "utc_time"),
//	    timerange.WithTableColumn("device_logs", "epoch_time"),
//	)
//
// # REPL usage
//
//	oql> plugin timerange
//	oql> plugin timerange event_time
//	oql> plugin timerange event_time on apache_logs linux_logs
//	oql> plugin timerange device_logs.epoch_time, kibana_sample_data_logs.utc_time
//	oql> plugin off timerange
//	oql> plugins
package timerange

import (
	"fmt"

	"github.com/bawdo/oql/internal/quoting"
	"github.com/bawdo/oql/pipeline"
	"github.com/bawdo/oql/plugins"
)

// TimeRange is a Transformer that appends a placeholder-bounded WHERE stage
// on the time column of the queried table.
type TimeRange struct {
	Column  string
	Columns map[string]string // per-table column overrides (table name → column name)
	tables  plugins.TableSet
}

// Option configures a TimeRange transformer.
type Option func(*TimeRange)

// WithColumn sets the time column name. Default is "timestamp".
func WithColumn(name string) Option {
	return func(tr *TimeRange) { tr.Column = name }
}

// WithTables restricts the plugin to only the named tables.
// By default, the plugin applies to every table.
func WithTables(names ...string) Option {
	return func(tr *TimeRange) { tr.tables = plugins.NewTableSet(names...) }
}

// WithTableColumn sets a per-table column override. The table is
// automatically added to the whitelist, restricting the plugin's scope.
func WithTableColumn(table, column string) Option {
	return func(tr *TimeRange) {
		if tr.Columns == nil {
			tr.Columns = make(map[string]string)
		}
		tr.Columns[table] = column
		tr.tables.Add(table)
	}
}

// New creates a TimeRange transformer with the given options.
func New(opts ...Option) *TimeRange {
	tr := &TimeRange{Column: pipeline.DefaultTimeColumn}
	for _, o := range opts {
		o(tr)
	}
	return tr
}

// TransformQuery appends the time range stage when the queried table is in
// scope and the query has no placeholder yet.
func (tr *TimeRange) TransformQuery(query string) (string, error) {
	if pipeline.HasTimeRange(query) {
		return query, nil
	}
	table := plugins.TargetTable(query)
	if !tr.tables.Allows(table) {
		return query, nil
	}
	col := tr.columnFor(table)
	if !quoting.IsPlainIdentifier(col) {
		return query, fmt.Errorf("timerange: invalid column name %q", col)
	}
	return pipeline.AppendTimeRange(query, col), nil
}

// columnFor returns the column name to use for the given table.
// It checks Columns for a per-table override, falling back to Column.
func (tr *TimeRange) columnFor(table string) string {
	if col, ok := tr.Columns[table]; ok {
		return col
	}
	return tr.Column
}
