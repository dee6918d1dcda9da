package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bawdo/oql/pipeline"
	"github.com/bawdo/oql/plugins"
	"github.com/bawdo/oql/plugins/timerange"
)

// configureTimerange parses timerange arguments, registers the plugin
// in the registry, and reruns the active query.
func configureTimerange(s *Session, args string) error {
	rest := strings.TrimSpace(args)
	var opts []timerange.Option
	var statusFn func() string

	switch {
	case strings.Contains(rest, "."):
		// Per-table columns: apache_logs.timestamp, device_logs.epoch_time
		pairs := strings.Split(rest, ",")
		columns := map[string]string{}
		for _, pair := range pairs {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			dot := strings.IndexByte(pair, '.')
			if dot < 0 || dot == 0 || dot == len(pair)-1 {
				return fmt.Errorf("invalid table.column pair: %q", pair)
			}
			table := pair[:dot]
			col := pair[dot+1:]
			opts = append(opts, timerange.WithTableColumn(table, col))
			columns[table] = col
		}
		statusFn = func() string {
			pairs := make([]string, 0, len(columns))
			for t, c := range columns {
				pairs = append(pairs, t+"."+c)
			}
			sort.Strings(pairs)
			return strings.Join(pairs, ", ")
		}
		_, _ = fmt.Fprintln(s.out, "  Time range enabled (per-table columns)")

	case strings.Contains(strings.ToLower(rest), " on "):
		// Single column on specific tables: event_time on apache_logs linux_logs
		idx := strings.Index(strings.ToLower(rest), " on ")
		col := strings.TrimSpace(rest[:idx])
		tableList := strings.Fields(rest[idx+4:])
		if col == "" || len(tableList) == 0 {
			return errors.New("usage: plugin timerange <column> on <table1> [table2 ...]")
		}
		opts = append(opts, timerange.WithColumn(col), timerange.WithTables(tableList...))
		statusFn = func() string {
			return fmt.Sprintf("column: %s, tables: %s", col, strings.Join(tableList, ", "))
		}
		_, _ = fmt.Fprintf(s.out, "  Time range enabled (column: %s, tables: %s)\n", col, strings.Join(tableList, ", "))

	case rest != "":
		// Single custom column for all tables
		col := strings.Fields(rest)[0]
		opts = append(opts, timerange.WithColumn(col))
		statusFn = func() string { return "column: " + col }
		_, _ = fmt.Fprintf(s.out, "  Time range enabled (column: %s)\n", col)

	default:
		// No args, default column for all tables
		statusFn = func() string { return "column: " + pipeline.DefaultTimeColumn }
		_, _ = fmt.Fprintf(s.out, "  Time range enabled (column: %s)\n", pipeline.DefaultTimeColumn)
	}

	s.plugins.register(pluginEntry{
		name:    "timerange",
		factory: func() plugins.Transformer { return timerange.New(opts...) },
		status:  statusFn,
	})
	return s.rerun()
}
