// Package schema supplies table definitions, the read-only reference data the
// filter composer and completion use. Definitions come from a live database,
// a schema file or the OQL backend, and are cached per database name.
package schema

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/bawdo/oql/pipeline"
)

// Source produces the table definitions of one database.
type Source interface {
	Discover(ctx context.Context, database string) (pipeline.Tables, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, database string) (pipeline.Tables, error)

func (f SourceFunc) Discover(ctx context.Context, database string) (pipeline.Tables, error) {
	return f(ctx, database)
}

// Static serves a fixed snapshot regardless of the database name.
func Static(tables pipeline.Tables) Source {
	return SourceFunc(func(context.Context, string) (pipeline.Tables, error) {
		return tables, nil
	})
}

// Discoverer reads table and column names from a database connection.
// Supported engines are "postgres", "mysql" and "sqlite".
type Discoverer struct {
	db     *sql.DB
	engine string
}

// NewDiscoverer wraps an open connection.
func NewDiscoverer(db *sql.DB, engine string) *Discoverer {
	return &Discoverer{db: db, engine: engine}
}

// Discover lists every table of database with its columns. For postgres the
// database name selects the schema (default "public"); for mysql an empty
// name means the connection's current database; sqlite ignores it. A table
// whose columns cannot be read is skipped and its error is reported in the
// returned multierror next to the tables that did load.
func (d *Discoverer) Discover(ctx context.Context, database string) (pipeline.Tables, error) {
	names, err := d.TableNames(ctx, database)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	var result *multierror.Error
	tables := make(pipeline.Tables, 0, len(names))
	for _, name := range names {
		cols, err := d.Columns(ctx, database, name)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("table %s: %w", name, err))
			continue
		}
		tables = append(tables, pipeline.TableDefinition{Table: name, Columns: cols})
	}
	return tables, result.ErrorOrNil()
}

// TableNames lists the tables of database in name order.
func (d *Discoverer) TableNames(ctx context.Context, database string) ([]string, error) {
	switch d.engine {
	case "postgres":
		return d.queryStringColumn(ctx,
			"SELECT table_name FROM information_schema.tables WHERE table_schema = $1 ORDER BY table_name",
			orDefault(database, "public"))
	case "mysql":
		if database == "" {
			return d.queryStringColumn(ctx,
				"SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() ORDER BY table_name")
		}
		return d.queryStringColumn(ctx,
			"SELECT table_name FROM information_schema.tables WHERE table_schema = ? ORDER BY table_name", database)
	case "sqlite":
		return d.queryStringColumn(ctx,
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	}
	return nil, fmt.Errorf("unsupported engine: %s", d.engine)
}

// Columns lists the columns of one table in declaration order.
func (d *Discoverer) Columns(ctx context.Context, database, table string) ([]string, error) {
	switch d.engine {
	case "postgres":
		return d.queryStringColumn(ctx,
			"SELECT column_name FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2 ORDER BY ordinal_position",
			orDefault(database, "public"), table)
	case "mysql":
		if database == "" {
			return d.queryStringColumn(ctx,
				"SELECT column_name FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ? ORDER BY ordinal_position",
				table)
		}
		return d.queryStringColumn(ctx,
			"SELECT column_name FROM information_schema.columns WHERE table_schema = ? AND table_name = ? ORDER BY ordinal_position",
			database, table)
	case "sqlite":
		return d.queryStringColumn(ctx, "SELECT name FROM pragma_table_info(?)", table)
	}
	return nil, fmt.Errorf("unsupported engine: %s", d.engine)
}

func (d *Discoverer) queryStringColumn(ctx context.Context, query string, params ...any) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var result []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
