// Package limit provides a Transformer that caps result size by appending a
// LIMIT stage to queries that have none.
//
//	l := limit.New(limit.WithRows(500))
//	q, _ := l.TransformQuery("FROM apache_logs")
//	// FROM apache_logs
//	// |> LIMIT 500
package limit

import (
	"fmt"

	"github.com/bawdo/oql/pipeline"
	"github.com/bawdo/oql/plugins"
)

// Limit appends "|> LIMIT n" unless a LIMIT stage is present.
type Limit struct {
	Rows   int
	tables plugins.TableSet
}

// Option configures a Limit transformer.
type Option func(*Limit)

// WithRows sets the row cap. Default is 100.
func WithRows(n int) Option {
	return func(l *Limit) { l.Rows = n }
}

// WithTables restricts the plugin to the named tables.
func WithTables(names ...string) Option {
	return func(l *Limit) { l.tables = plugins.NewTableSet(names...) }
}

// New creates a Limit transformer.
func New(opts ...Option) *Limit {
	l := &Limit{Rows: pipeline.DefaultLimit}
	for _, o := range opts {
		o(l)
	}
	return l
}

// TransformQuery appends the LIMIT stage when needed. A disabled LIMIT stage
// counts as present, so pausing a limit is respected.
func (l *Limit) TransformQuery(query string) (string, error) {
	if l.Rows <= 0 {
		return query, fmt.Errorf("limit: row cap must be positive, got %d", l.Rows)
	}
	if pipeline.HasLimit(query) || !l.tables.Allows(plugins.TargetTable(query)) {
		return query, nil
	}
	return pipeline.AppendLimit(query, l.Rows), nil
}
