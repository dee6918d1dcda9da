package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bawdo/oql/pipeline"
	"github.com/bawdo/oql/plugins"
	"github.com/bawdo/oql/plugins/limit"
)

// configureLimit parses "[n] [on <table> ...]" and registers the limit plugin.
func configureLimit(s *Session, args string) error {
	rest := strings.TrimSpace(args)
	var tableList []string
	lower := strings.ToLower(rest)
	if idx := strings.Index(" "+lower, " on "); idx >= 0 {
		tableList = strings.Fields(rest[idx+3:])
		if len(tableList) == 0 {
			return errors.New("usage: plugin limit [n] on <table1> [table2 ...]")
		}
		rest = strings.TrimSpace(rest[:idx])
	}

	rows := pipeline.DefaultLimit
	if rest != "" {
		n, err := strconv.Atoi(rest)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid row cap %q", rest)
		}
		rows = n
	}

	opts := []limit.Option{limit.WithRows(rows)}
	status := fmt.Sprintf("rows: %d", rows)
	if len(tableList) > 0 {
		opts = append(opts, limit.WithTables(tableList...))
		status += ", tables: " + strings.Join(tableList, ", ")
	}

	s.plugins.register(pluginEntry{
		name:    "limit",
		factory: func() plugins.Transformer { return limit.New(opts...) },
		status:  func() string { return status },
	})
	_, _ = fmt.Fprintf(s.out, "  Limit enabled (%s)\n", status)
	return s.rerun()
}
