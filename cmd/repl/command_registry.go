package main

import (
	"errors"
	"sort"
	"strings"

	"github.com/bawdo/oql/pipeline"
)

// commandEntry maps a REPL prefix to its handler and optional tab-completer.
type commandEntry struct {
	prefix    string
	handler   func(args string) error
	completer func(args string) (completionContext, string) // nil = no arg completion
	hidden    bool                                          // excluded from commandNames()
}

// initCommands builds the command registry and sorts by prefix length descending.
func (s *Session) initCommands() {
	s.commands = []commandEntry{
		// --- display ---
		{prefix: "show", handler: func(_ string) error { s.cmdShow(); return nil }},
		{prefix: "stages", handler: func(_ string) error { s.cmdStages(); return nil }},
		{prefix: "table", handler: func(_ string) error { s.cmdTable(); return nil }},
		{prefix: "actions", handler: func(_ string) error { s.cmdActions(); return nil }},
		{prefix: "resolved", handler: func(_ string) error { return s.cmdResolved() }},
		{prefix: "sql", handler: func(_ string) error { return s.cmdSQL() }},
		{prefix: "help", handler: func(_ string) error { s.cmdHelp(); return nil }},

		// --- editing ---
		{prefix: "set ", handler: func(a string) error { return s.cmdSet(a) }, completer: completeQueryText},
		{prefix: "append ", handler: func(a string) error { return s.cmdAppend(a) }, completer: completeQueryText},
		{prefix: "line ", handler: func(a string) error { return s.cmdLine(a) }, completer: completeLineArgs},
		{prefix: "delete ", handler: func(a string) error { return s.cmdDelete(a) }, completer: completeLineNumber},
		{prefix: "load ", handler: func(a string) error { return s.cmdLoad(a) }},
		{prefix: "save ", handler: func(a string) error { return s.cmdSave(a) }},
		{prefix: "default", handler: func(_ string) error { return s.cmdDefault() }},
		{prefix: "clear", handler: func(_ string) error { return s.cmdClear() }},
		{prefix: "undo", handler: func(_ string) error { return s.cmdUndo() }},

		// --- transforms ---
		{prefix: "toggle ", handler: func(a string) error { return s.cmdToggle(a, "toggle") }, completer: completeStageLine},
		{prefix: "pause ", handler: func(a string) error { return s.cmdToggle(a, "pause") }, completer: completeStageLine},
		{prefix: "play ", handler: func(a string) error { return s.cmdToggle(a, "play") }, completer: completeStageLine},
		{prefix: "filter ", handler: func(a string) error { return s.cmdFilter(a) }, completer: completeFilterArgs},
		{prefix: "pick ", handler: func(a string) error { return s.cmdPick(a) }, completer: completePickArgs},
		{prefix: "order ", handler: func(a string) error { return s.cmdOrder(a) }, completer: completeOrderArgs},
		{prefix: "timerange ", handler: func(a string) error { return s.cmdTimeRange(a) }, completer: completeColumnArg},
		{prefix: "timerange", handler: func(_ string) error { return s.cmdTimeRange("") }},
		{prefix: "limit ", handler: func(a string) error { return s.cmdLimit(a) }},
		{prefix: "limit", handler: func(_ string) error { return s.cmdLimit("") }},

		// --- range ---
		{prefix: "range ", handler: func(a string) error { return s.cmdRange(a) }, completer: completeRangeArgs},
		{prefix: "range", handler: func(_ string) error { return s.cmdRange("") }},

		// --- execution ---
		{prefix: "run", handler: func(_ string) error { return s.cmdRun() }},
		{prefix: "exec", handler: func(_ string) error { return s.cmdRun() }, hidden: true},
		{prefix: "autorun ", handler: func(a string) error { return s.cmdAutorun(a) }, completer: completeOnOff},
		{prefix: "autorun", handler: func(_ string) error { return s.cmdAutorun("") }},
		{prefix: "histogram", handler: func(_ string) error { return s.cmdHistogram() }},
		{prefix: "enrich ", handler: func(a string) error { return s.cmdEnrich(a) }},
		{prefix: "enrich", handler: func(_ string) error { return errors.New("usage: enrich <ip>") }},
		{prefix: "ask ", handler: func(a string) error { return s.cmdAsk(a) }},
		{prefix: "accept ", handler: func(a string) error { return s.cmdAccept(a) }},
		{prefix: "backend ", handler: func(a string) error { return s.cmdBackend(a) }},
		{prefix: "backend", handler: func(_ string) error { return s.cmdBackend("") }},

		// --- schema ---
		{prefix: "tables", handler: func(_ string) error { return s.cmdTables() }},
		{prefix: "columns ", handler: func(a string) error { return s.cmdColumns(a) }, completer: completeTableArg},
		{prefix: "columns", handler: func(_ string) error { return s.cmdColumns("") }},
		{prefix: "schema ", handler: func(a string) error { return s.cmdSchema(a) }, completer: completeSchemaArgs},
		{prefix: "schema", handler: func(_ string) error { return s.cmdSchema("") }},

		// --- database connectivity ---
		{prefix: "engine ", handler: func(a string) error { return s.cmdEngine(a) }, completer: completeEngineArgs},
		{prefix: "connect ", handler: func(a string) error { return s.cmdConnect(a) }},
		{prefix: "connect", handler: func(_ string) error { return s.cmdConnect("") }},
		{prefix: "disconnect", handler: func(_ string) error { return s.cmdDisconnect() }},

		// --- OPA commands ---
		{prefix: "opa conditions", handler: func(_ string) error { return s.cmdOPAConditions() }},
		{prefix: "opa explain ", handler: func(a string) error { return s.cmdOPAExplain(strings.TrimSpace(a)) }, completer: completeTableArg},
		{prefix: "opa explain", handler: func(_ string) error { return s.cmdOPAExplain("") }},
		{prefix: "opa inputs", handler: func(_ string) error { return s.cmdOPAInputs() }},
		{prefix: "opa input ", handler: func(a string) error { return s.cmdOPAInput(strings.TrimSpace(a)) }},
		{prefix: "opa input", handler: func(_ string) error { return s.cmdOPAInput("") }},
		{prefix: "opa policy ", handler: func(a string) error { return s.cmdOPAPolicy(strings.TrimSpace(a)) }},
		{prefix: "opa policy", handler: func(_ string) error { return s.cmdOPAPolicy("") }},
		{prefix: "opa status", handler: func(_ string) error { s.cmdOPAStatus(); return nil }},
		{prefix: "opa url ", handler: func(a string) error { return s.cmdOPAURL(strings.TrimSpace(a)) }},
		{prefix: "opa url", handler: func(_ string) error { return s.cmdOPAURL("") }},
		{prefix: "opa off", handler: func(_ string) error { return s.cmdOPAOff() }},
		{prefix: "opa", handler: func(_ string) error { return s.cmdOPASetup() }},

		// --- plugins ---
		{prefix: "plugin ", handler: func(a string) error { return s.cmdPlugin(a) }, completer: completePluginArgs},
		{prefix: "plugins", handler: func(_ string) error { s.cmdPlugins(); return nil }},
	}

	// Sort by prefix length descending so longest prefixes match first.
	sort.SliceStable(s.commands, func(i, j int) bool {
		return len(s.commands[i].prefix) > len(s.commands[j].prefix)
	})
}

// commandNames derives the command name list from the registry for tab completion.
func (s *Session) commandNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, cmd := range s.commands {
		if cmd.hidden {
			continue
		}
		name := strings.TrimRight(cmd.prefix, " ")
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	// exit/quit are handled by the REPL loop, not Execute().
	for _, extra := range []string{"exit", "quit"} {
		if !seen[extra] {
			names = append(names, extra)
		}
	}
	sort.Strings(names)
	return names
}

// --- Shared completion helpers ---

// completeQueryText completes the query text typed after set or append,
// looking only at the last line when set carries \n escapes.
func completeQueryText(args string) (completionContext, string) {
	if i := strings.LastIndex(args, `\n`); i >= 0 {
		args = args[i+2:]
	}
	return queryLineContext(args)
}

// completeLineArgs handles "line <n> <text>": a line number first, then the
// replacement text.
func completeLineArgs(args string) (completionContext, string) {
	trimmed := strings.TrimLeft(args, " ")
	num, text, found := strings.Cut(trimmed, " ")
	if !found {
		return contextLineNumber, num
	}
	return queryLineContext(text)
}

// queryLineContext maps the pipe-query completion rules onto shell contexts.
func queryLineContext(line string) (completionContext, string) {
	prefix := lastToken(line)
	switch pipeline.CompletionAt(line) {
	case pipeline.CompleteTables:
		return contextTableName, prefix
	case pipeline.CompleteColumns:
		return contextQueryColumn, prefix
	case pipeline.CompleteKeywords:
		return contextStageKeyword, prefix
	}
	return contextNone, ""
}

// completeLineNumber completes line numbers of the current query.
func completeLineNumber(args string) (completionContext, string) {
	return contextLineNumber, strings.TrimSpace(args)
}

// completeStageLine completes the line numbers of stage markers.
func completeStageLine(args string) (completionContext, string) {
	return contextStageLine, strings.TrimSpace(args)
}

// argIndex returns the 1-based position of the argument being typed.
func argIndex(args string) int {
	n := len(strings.Fields(args))
	if n == 0 || strings.HasSuffix(args, " ") {
		n++
	}
	return n
}

// completeFilterArgs handles "filter <col> +|- <value>".
func completeFilterArgs(args string) (completionContext, string) {
	switch argIndex(args) {
	case 1:
		return contextColumn, lastToken(args)
	case 2:
		return contextOperator, lastToken(args)
	}
	return contextNone, ""
}

// completePickArgs handles "pick <row> <col> +|-".
func completePickArgs(args string) (completionContext, string) {
	switch argIndex(args) {
	case 2:
		return contextResultColumn, lastToken(args)
	case 3:
		return contextOperator, lastToken(args)
	}
	return contextNone, ""
}

// completeOrderArgs handles completion for the order command:
// a column, then the direction.
func completeOrderArgs(args string) (completionContext, string) {
	switch argIndex(args) {
	case 1:
		return contextColumn, lastToken(args)
	case 2:
		return contextOrderDir, lastToken(args)
	}
	return contextNone, ""
}

// completeColumnArg completes a single column of the FROM table.
func completeColumnArg(args string) (completionContext, string) {
	if strings.Contains(strings.TrimSpace(args), " ") {
		return contextNone, ""
	}
	return contextColumn, strings.TrimSpace(args)
}

// completeTableArg completes a single table name.
func completeTableArg(args string) (completionContext, string) {
	if strings.Contains(strings.TrimSpace(args), " ") {
		return contextNone, ""
	}
	return contextTableName, strings.TrimSpace(args)
}

// completeRangeArgs offers the presets for both boundaries.
func completeRangeArgs(args string) (completionContext, string) {
	if argIndex(args) > 2 {
		return contextNone, ""
	}
	return contextRangePreset, lastToken(args)
}

func completeOnOff(args string) (completionContext, string) {
	return contextOnOff, strings.TrimSpace(args)
}

func completeSchemaArgs(args string) (completionContext, string) {
	arg := strings.TrimLeft(args, " ")
	if strings.Contains(arg, " ") {
		return contextNone, ""
	}
	return contextSchemaAction, arg
}

// completeEngineArgs handles completion for the engine command.
func completeEngineArgs(args string) (completionContext, string) {
	return contextEngine, strings.TrimSpace(args)
}

// completePluginArgs handles completion for the plugin command:
// plugin names, or after "off" the names of enabled plugins.
func completePluginArgs(args string) (completionContext, string) {
	if strings.HasPrefix(strings.ToLower(args), "off ") {
		partial := strings.TrimSpace(args[4:])
		return contextPluginOff, partial
	}
	arg := strings.TrimSpace(args)
	if !strings.Contains(arg, " ") {
		return contextPlugin, arg
	}
	return contextNone, ""
}
