package main

import (
	"strconv"
	"strings"

	"github.com/bawdo/oql/pipeline"
	"github.com/bawdo/oql/timerange"
)

// completionContext describes what kind of completion is appropriate.
type completionContext int

const (
	contextCommand      completionContext = iota // start of line or partial command
	contextNone                                  // nothing to offer
	contextTableName                             // after FROM, columns, opa explain
	contextColumn                                // a column of the FROM table
	contextQueryColumn                           // inside a where/select/aggregate/order stage
	contextStageKeyword                          // right after a stage marker
	contextLineNumber                            // any line of the query
	contextStageLine                             // a stage marker line
	contextOperator                              // filter operator
	contextResultColumn                          // a column of the last result
	contextOrderDir                              // after the column of order
	contextRangePreset                           // range boundaries
	contextOnOff                                 // after autorun
	contextSchemaAction                          // after schema
	contextEngine                                // after engine
	contextPlugin                                // after plugin
	contextPluginOff                             // after plugin off
)

var engineNames = []string{"mysql", "postgres", "sqlite"}
var orderDirs = []string{"asc", "desc"}
var filterOperators = []string{string(pipeline.Include), string(pipeline.Exclude)}
var onOff = []string{"off", "on"}
var schemaActions = []string{"load", "off", "refresh"}

// replCompleter implements readline's AutoCompleter interface.
type replCompleter struct {
	sess *Session
}

// Do returns completion candidates for the current line/cursor position.
// length is the number of chars from end of line[:pos] that form the prefix being completed.
// newLine contains the suffixes to append for each candidate.
func (c *replCompleter) Do(line []rune, pos int) (newLine [][]rune, length int) {
	lineStr := string(line[:pos])
	ctx, prefix := c.parseContext(lineStr)

	var candidates []string
	switch ctx {
	case contextCommand:
		candidates = c.completeCommands(prefix)
	case contextTableName:
		candidates = filterPrefix(c.sess.knownTables().Names(), prefix)
	case contextColumn:
		candidates = filterPrefix(c.tableColumns(), prefix)
	case contextQueryColumn:
		candidates = filterPrefix(pipeline.Candidates(pipeline.CompleteColumns, c.sess.knownTables(), c.sess.currentTable()), prefix)
	case contextStageKeyword:
		candidates = filterPrefix(pipeline.StageKeywords, prefix)
	case contextLineNumber:
		candidates = filterPrefix(c.lineNumbers(), prefix)
	case contextStageLine:
		candidates = filterPrefix(c.stageLines(), prefix)
	case contextOperator:
		candidates = filterPrefix(filterOperators, prefix)
	case contextResultColumn:
		candidates = filterPrefix(c.resultColumns(), prefix)
	case contextOrderDir:
		candidates = filterPrefix(orderDirs, prefix)
	case contextRangePreset:
		candidates = filterPrefix(timerange.Presets, prefix)
	case contextOnOff:
		candidates = filterPrefix(onOff, prefix)
	case contextSchemaAction:
		candidates = filterPrefix(schemaActions, prefix)
	case contextEngine:
		candidates = filterPrefix(engineNames, prefix)
	case contextPlugin:
		candidates = filterPrefix(append([]string{"off"}, c.sess.pluginNames()...), prefix)
	case contextPluginOff:
		candidates = filterPrefix(c.sess.plugins.names(), prefix)
	}

	for _, cand := range candidates {
		suffix := cand[len(prefix):]
		// Add trailing space for convenience.
		newLine = append(newLine, []rune(suffix+" "))
	}
	length = len([]rune(prefix))
	return
}

// parseContext examines the line up to cursor and determines what kind of
// completion is needed and the current prefix being typed.
func (c *replCompleter) parseContext(line string) (completionContext, string) {
	lower := strings.ToLower(line)

	for _, cmd := range c.sess.commands {
		if !strings.HasSuffix(cmd.prefix, " ") {
			continue // exact-match commands have no arg completion
		}
		if strings.HasPrefix(lower, cmd.prefix) && cmd.completer != nil {
			return cmd.completer(line[len(cmd.prefix):])
		}
	}

	// Default: command completion.
	return contextCommand, strings.TrimSpace(line)
}

// completeCommands returns command names matching the prefix.
func (c *replCompleter) completeCommands(prefix string) []string {
	return filterPrefix(c.sess.commandNames(), prefix)
}

// tableColumns returns the columns of the FROM table, if its schema is known.
func (c *replCompleter) tableColumns() []string {
	td, ok := c.sess.knownTables().Lookup(c.sess.currentTable())
	if !ok {
		return nil
	}
	return td.Columns
}

func (c *replCompleter) lineNumbers() []string {
	n := len(pipeline.Lines(c.sess.query))
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i + 1)
	}
	return out
}

func (c *replCompleter) stageLines() []string {
	var out []string
	for _, st := range pipeline.Stages(c.sess.query) {
		out = append(out, strconv.Itoa(st.Line))
	}
	return out
}

func (c *replCompleter) resultColumns() []string {
	if c.sess.last == nil {
		return nil
	}
	return c.sess.last.Table.Names
}

// filterPrefix returns items that start with prefix (case-insensitive).
func filterPrefix(items []string, prefix string) []string {
	if prefix == "" {
		result := make([]string, len(items))
		copy(result, items)
		return result
	}
	lowerPrefix := strings.ToLower(prefix)
	var result []string
	for _, item := range items {
		if strings.HasPrefix(strings.ToLower(item), lowerPrefix) {
			result = append(result, item)
		}
	}
	return result
}

// lastToken returns the last whitespace-separated token, handling commas.
func lastToken(s string) string {
	// Find the last comma or space.
	lastSep := -1
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ' ' || s[i] == ',' || s[i] == '\t' {
			lastSep = i
			break
		}
	}
	if lastSep >= 0 {
		return s[lastSep+1:]
	}
	return s
}
