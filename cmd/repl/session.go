package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ergochat/readline"

	"github.com/bawdo/oql"
	"github.com/bawdo/oql/backend"
	"github.com/bawdo/oql/internal/config"
	"github.com/bawdo/oql/pipeline"
	"github.com/bawdo/oql/plugins/opa"
	"github.com/bawdo/oql/schema"
	"github.com/bawdo/oql/timerange"
)

var (
	errNoQuery   = errors.New("query is empty (use 'set', 'load' or 'default' first)")
	errNoBackend = errors.New("no backend configured (use 'backend <url>' first)")
	errNoResult  = errors.New("no result yet (use 'run' first)")
)

// maxUndo bounds the undo history.
const maxUndo = 100

// Session holds the REPL state: the editable query and the query last
// promoted for execution, the date range, the schema source and any
// enabled plugins.
type Session struct {
	query         string   // editable query
	active        string   // query last promoted for execution
	history       []string // previous editable queries, newest last
	rng           timerange.Range
	now           func() time.Time
	engine        string
	database      string        // database name sent with backend schema discovery
	schemaFile    string        // overrides discovery when set
	schemaTTL     time.Duration // schema cache lifetime
	schema        *schema.Cache // nil when no schema source is available
	backend       *backend.Client
	timeout       time.Duration
	autorun       bool
	last          *backend.ExecResult // last successful result, for pick and ask
	suggestions   []string            // last answer of ask
	plugins       pluginRegistry      // enabled plugins
	configurers   []pluginConfigurer  // all known plugins
	policy        *opaSettings        // OPA policy (nil when not set up)
	opaDefaultURL string              // offered by 'opa' setup
	commands      []commandEntry      // command registry (sorted by prefix length desc)
	conn          *dbConn             // nil when disconnected
	lastDSN       string              // remembers the previous DSN for reconnect
	rl            *readline.Instance
	out           io.Writer // destination for REPL output (default os.Stdout)
	logger        *slog.Logger
}

// NewSession creates a session from cfg. rl may be nil for scripted use, in
// which case interactive prompts fall back to their defaults.
func NewSession(cfg *config.Config, rl *readline.Instance) *Session {
	s := &Session{
		query:      pipeline.DefaultQuery,
		active:     pipeline.DefaultQuery,
		rng:        cfg.TimeRange(),
		now:        time.Now,
		engine:     cfg.Engine,
		database:   cfg.Database.Name,
		schemaFile: cfg.Schema.File,
		schemaTTL:  cfg.Schema.TTL,
		timeout:    cfg.Backend.Timeout,
		autorun:    cfg.Autorun,
		rl:         rl,
		out:        os.Stdout,
		logger:     slog.Default(),
	}
	s.configurers = []pluginConfigurer{
		{name: "timerange", configure: configureTimerange},
		{name: "limit", configure: configureLimit},
		{name: "opa", configure: configureOPA},
	}
	s.opaDefaultURL = cfg.OPA.URL
	if s.opaDefaultURL == "" {
		s.opaDefaultURL = opa.DefaultURL
	}
	if cfg.OPA.Policy != "" {
		s.enableOPA(&opaSettings{url: s.opaDefaultURL, path: cfg.OPA.Policy, input: opa.Input(cfg.OPA.Input)})
	}
	if cfg.Backend.URL != "" {
		s.setBackend(cfg.Backend.URL)
	}
	s.resetSchema()
	s.initCommands()
	return s
}

// close releases the database connection, if any.
func (s *Session) close() {
	if s.conn != nil {
		_ = s.conn.close()
		s.conn = nil
	}
}

// pluginNames returns the names of all known plugins (for tab completion).
func (s *Session) pluginNames() []string {
	names := make([]string, len(s.configurers))
	for i, c := range s.configurers {
		names[i] = c.name
	}
	return names
}

// context returns a context bounded by the backend timeout.
func (s *Session) context() (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *Session) setBackend(url string) {
	s.backend = backend.NewClient(url,
		backend.WithTimeout(s.timeout),
		backend.WithLogger(s.logger))
}

// resetSchema rebuilds the schema cache from the most specific source
// available: a schema file, then a direct connection, then the backend.
func (s *Session) resetSchema() {
	var src schema.Source
	switch {
	case s.schemaFile != "":
		src = schema.FileSource(s.schemaFile)
	case s.conn != nil:
		src = schema.NewDiscoverer(s.conn.db, s.conn.engine)
	case s.backend != nil:
		src = s.backend
	default:
		s.schema = nil
		return
	}
	s.schema = schema.NewCache(src, s.schemaTTL)
}

func (s *Session) schemaSourceName() string {
	switch {
	case s.schemaFile != "":
		return "file " + s.schemaFile
	case s.conn != nil:
		return fmt.Sprintf("database %s (%s)", sanitizeDSN(s.conn.dsn), s.conn.engine)
	case s.backend != nil:
		return "backend " + s.backend.BaseURL()
	}
	return "none"
}

// knownTables returns the table definitions of the current schema source.
// Discovery failures are logged; whatever loaded is still returned.
func (s *Session) knownTables() pipeline.Tables {
	if s.schema == nil {
		return nil
	}
	ctx, cancel := s.context()
	defer cancel()
	tables, err := s.schema.Tables(ctx, s.database)
	if err != nil {
		s.logger.Warn("schema discovery failed",
			slog.String("source", s.schemaSourceName()),
			slog.Any("error", err))
	}
	return tables
}

func (s *Session) currentTable() string {
	return pipeline.ExtractTable(s.query)
}

// setQuery replaces the editable query and records the previous one for undo.
func (s *Session) setQuery(q string) {
	if q == s.query {
		return
	}
	s.history = append(s.history, s.query)
	if len(s.history) > maxUndo {
		s.history = s.history[len(s.history)-maxUndo:]
	}
	s.query = q
}

// apply makes q both the editable and the active query, the way every
// transform does, and reruns it when autorun is on.
func (s *Session) apply(q string) error {
	s.setQuery(q)
	s.active = q
	s.printQuery()
	return s.rerun()
}

// rerun executes the active query again if autorun is on and a backend is
// configured.
func (s *Session) rerun() error {
	if !s.autorun || s.backend == nil || strings.TrimSpace(s.active) == "" {
		return nil
	}
	return s.execute(s.active)
}

// dispatchText is what gets sent to the backend for query: plugins applied,
// placeholders resolved against the session range and comments stripped.
func (s *Session) dispatchText(query string) (string, error) {
	return oql.Dispatch(query, s.rng, s.now(), s.plugins.chain()...)
}

// execute dispatches query to the backend and prints the result table.
func (s *Session) execute(query string) error {
	if s.backend == nil {
		return errNoBackend
	}
	text, err := s.dispatchText(query)
	if err != nil {
		return err
	}
	if text == "" {
		return errNoQuery
	}

	ctx, cancel := s.context()
	defer cancel()
	res, err := s.backend.Exec(ctx, text)
	if err != nil {
		var execErr *backend.ExecError
		if errors.As(err, &execErr) && execErr.TranspiledSQL != "" {
			_, _ = fmt.Fprintf(s.out, "  Transpiled: %s\n", execErr.TranspiledSQL)
		}
		return err
	}
	s.last = &res
	if res.TranspiledSQL != "" {
		s.logger.Debug("query transpiled", slog.String("sql", res.TranspiledSQL))
	}
	_, _ = fmt.Fprint(s.out, formatResult(res.Table))
	return nil
}

// Execute parses and runs a single REPL command.
func (s *Session) Execute(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	lower := strings.ToLower(line)

	for _, cmd := range s.commands {
		if strings.HasSuffix(cmd.prefix, " ") {
			if strings.HasPrefix(lower, cmd.prefix) {
				return cmd.handler(line[len(cmd.prefix):])
			}
		} else {
			if lower == cmd.prefix {
				return cmd.handler("")
			}
		}
	}

	word := strings.Fields(line)[0]
	return fmt.Errorf("unknown command: %s (type 'help' for commands)", word)
}

// --- Query display ---

func (s *Session) cmdShow() {
	if s.query == "" {
		_, _ = fmt.Fprintln(s.out, "  (empty query)")
		return
	}
	_, _ = fmt.Fprint(s.out, numberedQuery(s.query))
}

func (s *Session) printQuery() {
	s.cmdShow()
}

func (s *Session) cmdStages() {
	stages := pipeline.Stages(s.query)
	if len(stages) == 0 {
		_, _ = fmt.Fprintln(s.out, "  No pipe stages")
		return
	}
	for _, st := range stages {
		state := "on "
		if !st.Enabled {
			state = "off"
		}
		span := strconv.Itoa(st.Line)
		if st.End > st.Line {
			span = fmt.Sprintf("%d-%d", st.Line, st.End)
		}
		_, _ = fmt.Fprintf(s.out, "  %-7s %s  %s\n", span, state, strings.TrimSpace(st.Text))
	}
}

func (s *Session) cmdTable() {
	table := s.currentTable()
	if table == "" {
		_, _ = fmt.Fprintln(s.out, "  No FROM table")
		return
	}
	_, _ = fmt.Fprintf(s.out, "  %s\n", table)
}

func (s *Session) cmdResolved() error {
	start, end, err := s.rng.Resolve(s.now())
	if err != nil {
		return err
	}
	_, _ = fmt.Fprint(s.out, numberedQuery(pipeline.ResolvePlaceholders(s.query, start, end)))
	return nil
}

func (s *Session) cmdSQL() error {
	text, err := s.dispatchText(s.query)
	if err != nil {
		return err
	}
	if text == "" {
		return errNoQuery
	}
	for _, line := range pipeline.Lines(text) {
		_, _ = fmt.Fprintf(s.out, "  %s\n", line)
	}
	return nil
}

func (s *Session) cmdActions() {
	for i, a := range pipeline.Actions(s.query) {
		_, _ = fmt.Fprintf(s.out, "  %d. %s\n", i+1, a)
	}
}

// --- Editing ---

func (s *Session) cmdSet(args string) error {
	q := strings.ReplaceAll(args, `\n`, "\n")
	s.setQuery(q)
	s.printQuery()
	return nil
}

func (s *Session) cmdLoad(args string) error {
	path := strings.TrimSpace(args)
	if path == "" {
		return errors.New("usage: load <file>")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	s.setQuery(strings.TrimRight(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n"))
	_, _ = fmt.Fprintf(s.out, "  Loaded %s\n", path)
	s.printQuery()
	return nil
}

func (s *Session) cmdSave(args string) error {
	path := strings.TrimSpace(args)
	if path == "" {
		return errors.New("usage: save <file>")
	}
	if err := os.WriteFile(path, []byte(s.query+"\n"), 0o600); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	_, _ = fmt.Fprintf(s.out, "  Saved to %s\n", path)
	return nil
}

func (s *Session) cmdAppend(args string) error {
	if strings.TrimSpace(args) == "" {
		return errors.New("usage: append <line>")
	}
	if s.query == "" {
		s.setQuery(args)
	} else {
		s.setQuery(s.query + "\n" + args)
	}
	s.printQuery()
	return nil
}

// parseLineArg reads a 1-based line number of the current query.
func (s *Session) parseLineArg(arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, fmt.Errorf("invalid line number %q", arg)
	}
	if n < 1 || n > len(pipeline.Lines(s.query)) {
		return 0, fmt.Errorf("line %d is out of range (query has %d lines)", n, len(pipeline.Lines(s.query)))
	}
	return n, nil
}

func (s *Session) cmdLine(args string) error {
	num, text, _ := strings.Cut(strings.TrimLeft(args, " "), " ")
	n, err := s.parseLineArg(num)
	if err != nil {
		return fmt.Errorf("usage: line <n> <text>: %w", err)
	}
	lines := pipeline.Lines(s.query)
	lines[n-1] = text
	s.setQuery(strings.Join(lines, "\n"))
	s.printQuery()
	return nil
}

func (s *Session) cmdDelete(args string) error {
	n, err := s.parseLineArg(args)
	if err != nil {
		return fmt.Errorf("usage: delete <n>: %w", err)
	}
	lines := pipeline.Lines(s.query)
	lines = append(lines[:n-1], lines[n:]...)
	s.setQuery(strings.Join(lines, "\n"))
	s.printQuery()
	return nil
}

func (s *Session) cmdDefault() error {
	s.setQuery(pipeline.DefaultQuery)
	s.printQuery()
	return nil
}

func (s *Session) cmdClear() error {
	s.setQuery("")
	_, _ = fmt.Fprintln(s.out, "  Query cleared")
	return nil
}

func (s *Session) cmdUndo() error {
	if len(s.history) == 0 {
		return errors.New("nothing to undo")
	}
	s.query = s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	s.printQuery()
	return nil
}

// --- Transforms ---

// cmdToggle flips the stage at line n. With play set the stage is enabled,
// with pause it is disabled; toggle infers the direction from the marker.
func (s *Session) cmdToggle(args string, mode string) error {
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil {
		return fmt.Errorf("usage: %s <line>", mode)
	}
	var q string
	switch mode {
	case "pause":
		q, err = pipeline.ToggleStage(s.query, n, true)
	case "play":
		q, err = pipeline.ToggleStage(s.query, n, false)
	default:
		q, err = pipeline.ToggleAt(s.query, n)
	}
	if errors.Is(err, pipeline.ErrStageMismatch) {
		s.logger.Warn("stage toggle skipped", slog.Int("line", n), slog.String("mode", mode), slog.Any("error", err))
		_, _ = fmt.Fprintf(s.out, "  No stage to %s at line %d\n", mode, n)
		return nil
	}
	if err != nil {
		return err
	}
	return s.apply(q)
}

// parseFilterArgs splits "<column> <+|-> [value]". The value keeps inner
// spaces; an empty value is allowed.
func parseFilterArgs(args string) (pipeline.Filter, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return pipeline.Filter{}, errors.New("usage: filter <column> +|- <value>")
	}
	rest := strings.TrimSpace(args)
	rest = strings.TrimSpace(rest[len(fields[0]):])
	rest = strings.TrimSpace(rest[len(fields[1]):])
	return pipeline.Filter{
		Column:   fields[0],
		Operator: pipeline.Operator(fields[1]),
		Value:    rest,
	}, nil
}

func (s *Session) cmdFilter(args string) error {
	f, err := parseFilterArgs(args)
	if err != nil {
		return err
	}
	return s.applyFilter(f)
}

func (s *Session) applyFilter(f pipeline.Filter) error {
	q, err := pipeline.ApplyFilter(s.query, f, s.knownTables(), s.currentTable())
	if errors.Is(err, pipeline.ErrUnsupportedFilter) {
		s.logger.Warn("filter skipped",
			slog.String("column", f.Column),
			slog.String("operator", string(f.Operator)),
			slog.Any("error", err))
		_, _ = fmt.Fprintf(s.out, "  Filter not applied: %v\n", err)
		return nil
	}
	if err != nil {
		return err
	}
	return s.apply(q)
}

// cmdPick filters on a cell of the last result: pick <row> <column> +|-.
func (s *Session) cmdPick(args string) error {
	parts := strings.Fields(args)
	if len(parts) != 3 {
		return errors.New("usage: pick <row> <column> +|-")
	}
	if s.last == nil {
		return errNoResult
	}
	row, err := strconv.Atoi(parts[0])
	if err != nil || row < 1 || row > len(s.last.Table.Rows) {
		return fmt.Errorf("row %s is out of range (result has %d rows)", parts[0], len(s.last.Table.Rows))
	}
	col := -1
	for i, name := range s.last.Table.Names {
		if strings.EqualFold(name, parts[1]) {
			col = i
			break
		}
	}
	if col < 0 {
		return fmt.Errorf("result has no column %q", parts[1])
	}
	cells := s.last.Table.Rows[row-1]
	if col >= len(cells) {
		return fmt.Errorf("row %d has no value for %q", row, parts[1])
	}
	return s.applyFilter(pipeline.Filter{
		Column:   s.last.Table.Names[col],
		Value:    cells[col],
		Operator: pipeline.Operator(parts[2]),
	})
}

func (s *Session) cmdOrder(args string) error {
	parts := strings.Fields(args)
	if len(parts) == 0 || len(parts) > 2 {
		return errors.New("usage: order <column> [asc|desc]")
	}
	dir := pipeline.Ascending
	if len(parts) == 2 {
		d, err := pipeline.ParseDirection(parts[1])
		if err != nil {
			return err
		}
		dir = d
	}
	q, err := pipeline.ApplyOrder(s.query, parts[0], dir)
	if err != nil {
		return err
	}
	return s.apply(q)
}

func (s *Session) cmdTimeRange(args string) error {
	if s.query == "" {
		return errNoQuery
	}
	if pipeline.HasTimeRange(s.query) {
		return errors.New("query already uses $start or $end")
	}
	column := strings.TrimSpace(args)
	if column == "" {
		column = pipeline.DefaultTimeColumn
	}
	return s.apply(pipeline.AppendTimeRange(s.query, column))
}

func (s *Session) cmdLimit(args string) error {
	if s.query == "" {
		return errNoQuery
	}
	if pipeline.HasLimit(s.query) {
		return errors.New("query already has a LIMIT stage")
	}
	n := pipeline.DefaultLimit
	if arg := strings.TrimSpace(args); arg != "" {
		v, err := strconv.Atoi(arg)
		if err != nil || v <= 0 {
			return fmt.Errorf("invalid limit %q", arg)
		}
		n = v
	}
	return s.apply(pipeline.AppendLimit(s.query, n))
}

// --- Range ---

func (s *Session) cmdRange(args string) error {
	parts := strings.Fields(args)
	switch len(parts) {
	case 0:
		start, end, err := s.rng.Resolve(s.now())
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(s.out, "  Range: %s\n", s.rng)
		_, _ = fmt.Fprintf(s.out, "    $start = %s\n", start)
		_, _ = fmt.Fprintf(s.out, "    $end   = %s\n", end)
		if found := pipeline.FindPlaceholders(s.query); len(found) > 0 {
			refs := make([]string, len(found))
			for i, p := range found {
				refs[i] = fmt.Sprintf("%s %d:%d", p.Name, p.Line, p.Column)
			}
			_, _ = fmt.Fprintf(s.out, "    Used at: %s\n", strings.Join(refs, ", "))
		}
		return nil
	case 2:
	default:
		return fmt.Errorf("usage: range <start> <end> (presets: %s)", strings.Join(timerange.Presets, ", "))
	}
	rng := timerange.Range{Start: parts[0], End: parts[1]}
	if _, _, err := rng.Resolve(s.now()); err != nil {
		return err
	}
	s.rng = rng
	_, _ = fmt.Fprintf(s.out, "  Range set to %s\n", rng)
	return s.rerun()
}

// --- Execution ---

func (s *Session) cmdRun() error {
	if strings.TrimSpace(s.query) == "" {
		return errNoQuery
	}
	s.active = s.query
	return s.execute(s.active)
}

func (s *Session) cmdAutorun(args string) error {
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "":
	case "on":
		s.autorun = true
	case "off":
		s.autorun = false
	default:
		return errors.New("usage: autorun [on|off]")
	}
	state := "off"
	if s.autorun {
		state = "on"
	}
	_, _ = fmt.Fprintf(s.out, "  Autorun %s\n", state)
	return nil
}

func (s *Session) cmdBackend(args string) error {
	u := strings.TrimSpace(args)
	if u == "" {
		if s.backend == nil {
			_, _ = fmt.Fprintln(s.out, "  Backend: none")
		} else {
			_, _ = fmt.Fprintf(s.out, "  Backend: %s\n", s.backend.BaseURL())
		}
		return nil
	}
	if u == "off" {
		s.backend = nil
		s.resetSchema()
		_, _ = fmt.Fprintln(s.out, "  Backend disabled")
		return nil
	}
	s.setBackend(u)
	s.resetSchema()
	_, _ = fmt.Fprintf(s.out, "  Backend set to %s\n", s.backend.BaseURL())
	return nil
}

func (s *Session) cmdHistogram() error {
	if s.backend == nil {
		return errNoBackend
	}
	table := s.currentTable()
	if table == "" {
		return errors.New("query has no FROM table")
	}
	start, end, err := s.rng.Bounds(s.now())
	if err != nil {
		return err
	}
	ctx, cancel := s.context()
	defer cancel()
	points, err := s.backend.TimeSeries(ctx, backend.TimeSeriesRequest{
		StartDate: start,
		EndDate:   end,
		TableName: table,
	})
	if err != nil {
		return err
	}
	if len(points) == 0 {
		_, _ = fmt.Fprintf(s.out, "  No rows in %s for %s\n", table, s.rng)
		return nil
	}
	_, _ = fmt.Fprint(s.out, renderHistogram(points, histogramWidth))
	return nil
}

func (s *Session) cmdEnrich(args string) error {
	ip := strings.TrimSpace(args)
	if ip == "" {
		return errors.New("usage: enrich <ip>")
	}
	if s.backend == nil {
		return errNoBackend
	}
	ctx, cancel := s.context()
	defer cancel()
	info, err := s.backend.EnrichIP(ctx, ip)
	if err != nil {
		return err
	}
	fields := info.Fields()
	if len(fields) == 0 {
		_, _ = fmt.Fprintf(s.out, "  No information for %s\n", ip)
		return nil
	}
	for _, f := range fields {
		_, _ = fmt.Fprintf(s.out, "  %-16s %s\n", f.Label+":", f.Value)
	}
	return nil
}

// cmdAsk asks the backend assistant for rewritten queries.
func (s *Session) cmdAsk(args string) error {
	text := strings.TrimSpace(args)
	if text == "" {
		return errors.New("usage: ask <prompt>")
	}
	if s.backend == nil {
		return errNoBackend
	}
	req := backend.SuggestRequest{Prompt: text, Query: s.query}
	if s.last != nil {
		req.Results = s.last.Table
	}
	ctx, cancel := s.context()
	defer cancel()
	suggestions, err := s.backend.Suggest(ctx, req)
	if err != nil {
		return err
	}
	s.suggestions = suggestions
	if len(suggestions) == 0 {
		_, _ = fmt.Fprintln(s.out, "  No suggestions")
		return nil
	}
	for i, sg := range suggestions {
		_, _ = fmt.Fprintf(s.out, "  [%d]\n", i+1)
		for _, line := range pipeline.Lines(sg) {
			_, _ = fmt.Fprintf(s.out, "    %s\n", line)
		}
	}
	_, _ = fmt.Fprintln(s.out, "  Use 'accept <n>' to take a suggestion")
	return nil
}

func (s *Session) cmdAccept(args string) error {
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil {
		return errors.New("usage: accept <n>")
	}
	if n < 1 || n > len(s.suggestions) {
		return fmt.Errorf("no suggestion %d (have %d)", n, len(s.suggestions))
	}
	s.setQuery(s.suggestions[n-1])
	s.printQuery()
	return nil
}

// --- Schema ---

func (s *Session) cmdTables() error {
	tables := s.knownTables()
	if len(tables) == 0 {
		_, _ = fmt.Fprintln(s.out, "  No tables known (use 'schema load <file>' or 'connect <dsn>')")
		return nil
	}
	for _, t := range tables {
		if t.Description != "" {
			_, _ = fmt.Fprintf(s.out, "  %-24s %s\n", t.Table, t.Description)
		} else {
			_, _ = fmt.Fprintf(s.out, "  %s\n", t.Table)
		}
	}
	return nil
}

func (s *Session) cmdColumns(args string) error {
	name := strings.TrimSpace(args)
	if name == "" {
		name = s.currentTable()
	}
	if name == "" {
		return errors.New("usage: columns <table>")
	}
	td, ok := s.knownTables().Lookup(name)
	if !ok {
		return fmt.Errorf("unknown table %q", name)
	}
	_, _ = fmt.Fprintf(s.out, "  %s: %s\n", td.Table, strings.Join(td.Columns, ", "))
	return nil
}

func (s *Session) cmdSchema(args string) error {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		_, _ = fmt.Fprintf(s.out, "  Schema source: %s\n", s.schemaSourceName())
		return nil
	}
	switch strings.ToLower(parts[0]) {
	case "load":
		if len(parts) != 2 {
			return errors.New("usage: schema load <file>")
		}
		tables, err := schema.LoadFile(parts[1])
		if err != nil {
			return fmt.Errorf("schema load: %w", err)
		}
		s.schemaFile = parts[1]
		s.resetSchema()
		s.schema.Set(s.database, tables)
		_, _ = fmt.Fprintf(s.out, "  Loaded %d table(s) from %s\n", len(tables), parts[1])
	case "refresh":
		if s.schema == nil {
			return errors.New("no schema source")
		}
		s.schema.Invalidate()
		_, _ = fmt.Fprintf(s.out, "  %d table(s) from %s\n", len(s.knownTables()), s.schemaSourceName())
	case "off":
		s.schemaFile = ""
		s.resetSchema()
		_, _ = fmt.Fprintf(s.out, "  Schema source: %s\n", s.schemaSourceName())
	default:
		return errors.New("usage: schema [load <file>|refresh|off]")
	}
	return nil
}

// --- Engine / plugins ---

func (s *Session) cmdEngine(args string) error {
	engine := strings.ToLower(strings.TrimSpace(args))
	if !isValidEngine(engine) {
		return fmt.Errorf("unknown engine: %s (use postgres, mysql, or sqlite)", engine)
	}
	s.engine = engine
	_, _ = fmt.Fprintf(s.out, "  Engine set to %s\n", engine)
	if s.conn != nil && s.conn.engine != engine {
		_, _ = fmt.Fprintf(s.out, "  Warning: still connected to %s, reconnect to switch\n", s.conn.engine)
	}
	return nil
}

func (s *Session) cmdPlugin(args string) error {
	parts := strings.Fields(strings.TrimSpace(args))
	if len(parts) == 0 {
		return errors.New("usage: plugin <name> [args] | plugin off [name]")
	}
	name := strings.ToLower(parts[0])
	if name == "off" {
		return s.cmdPluginOff(parts[1:])
	}
	for _, c := range s.configurers {
		if c.name == name {
			return c.configure(s, strings.TrimSpace(strings.TrimSpace(args)[len(parts[0]):]))
		}
	}
	return fmt.Errorf("unknown plugin: %s", name)
}

func (s *Session) cmdPluginOff(parts []string) error {
	if len(parts) == 0 {
		s.plugins.deregisterAll()
		s.policy = nil
		_, _ = fmt.Fprintln(s.out, "  All plugins disabled")
	} else {
		name := strings.ToLower(parts[0])
		if !s.plugins.deregister(name) {
			return fmt.Errorf("plugin %q is not enabled", name)
		}
		if name == "opa" {
			s.policy = nil
		}
		_, _ = fmt.Fprintf(s.out, "  %s disabled\n", name)
	}
	return s.rerun()
}

func (s *Session) cmdPlugins() {
	_, _ = fmt.Fprintln(s.out, "  Available plugins:")
	for _, c := range s.configurers {
		if entry, ok := s.plugins.get(c.name); ok {
			_, _ = fmt.Fprintf(s.out, "    %-14s on   (%s)\n", c.name, entry.status())
		} else {
			_, _ = fmt.Fprintf(s.out, "    %-14s off\n", c.name)
		}
	}
}

// --- Database connectivity ---

func (s *Session) cmdConnect(args string) error {
	dsn := strings.TrimSpace(args)

	if s.conn != nil {
		return fmt.Errorf("already connected to %s (use 'disconnect' first)", sanitizeDSN(s.conn.dsn))
	}

	// Direct DSN provided, connect immediately.
	if dsn != "" {
		return s.connectWithDSN(dsn)
	}

	// Interactive: offer reconnect if we have a previous DSN, otherwise wizard.
	if s.lastDSN != "" {
		choice := prompt(s.rl, fmt.Sprintf("Reconnect to %s? (y/n/setup)", sanitizeDSN(s.lastDSN)), "y")
		switch strings.ToLower(choice) {
		case "y", "yes":
			return s.connectWithDSN(s.lastDSN)
		case "s", "setup":
			return s.connectViaWizard()
		default:
			_, _ = fmt.Fprintln(s.out, "  Connect cancelled")
			return nil
		}
	}

	return s.connectViaWizard()
}

func (s *Session) connectWithDSN(dsn string) error {
	ctx, cancel := s.context()
	defer cancel()
	conn, err := connect(ctx, s.engine, dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	s.conn = conn
	s.lastDSN = dsn
	s.resetSchema()
	_, _ = fmt.Fprintf(s.out, "  Connected to %s (%s)\n", sanitizeDSN(dsn), s.engine)
	if s.schemaFile != "" {
		_, _ = fmt.Fprintf(s.out, "  Note: schema file %s still takes precedence\n", s.schemaFile)
	}
	return nil
}

func (s *Session) connectViaWizard() error {
	if s.rl == nil {
		return errors.New("usage: connect <dsn>")
	}
	dsn := buildDSN(s.rl, s.engine)
	if dsn == "" {
		_, _ = fmt.Fprintln(s.out, "  No connection configured")
		return nil
	}

	_, _ = fmt.Fprintf(s.out, "  DSN: %s\n", sanitizeDSN(dsn))
	return s.connectWithDSN(dsn)
}

func (s *Session) cmdDisconnect() error {
	if s.conn == nil {
		return errors.New("not connected")
	}
	dsn := sanitizeDSN(s.conn.dsn)
	if err := s.conn.close(); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	s.conn = nil
	s.resetSchema()
	_, _ = fmt.Fprintf(s.out, "  Disconnected from %s\n", dsn)
	return nil
}

func (s *Session) cmdHelp() {
	_, _ = fmt.Fprintln(s.out, `
  Query:
    show                      Show the query with line numbers and stage glyphs
    stages                    List pipe stages and whether they are on
    set <text>                Replace the query (\n starts a new line)
    append <line>             Append a line
    line <n> <text>           Replace line n
    delete <n>                Delete line n
    load <file>               Read the query from a file
    save <file>               Write the query to a file
    default                   Restore the starter query
    clear                     Empty the query
    undo                      Restore the previous query
    table                     Show the FROM table

  Transforms (each one also runs the query when autorun is on):
    toggle <n>                Switch the stage at line n on or off
    pause <n>                 Switch the stage at line n off
    play <n>                  Switch the stage at line n on
    filter <col> +|- <value>  Include or exclude rows matching a value ([null] for NULL)
    pick <row> <col> +|-      Filter on a cell of the last result
    order <col> [asc|desc]    Set the ORDER BY stage
    timerange [col]           Append a $start/$end time range stage
    limit [n]                 Append a LIMIT stage (default 100)
    actions                   List the quick edits that apply to the query

  Time range:
    range                     Show the range and the $start/$end expressions
    range <start> <end>       Set the range (now, 1h, 24h, 3d, 7d, 30d, 6m or a date)
    resolved                  Show the query with placeholders resolved

  Execution:
    sql                       Show the text that would be dispatched
    run                       Run the query through the backend
    exec                      Alias for run
    autorun [on|off]          Run after every transform
    histogram                 Hourly row counts of the FROM table over the range
    enrich <ip>               Look up an IP address
    ask <prompt>              Ask the backend assistant for query suggestions
    accept <n>                Make suggestion n the editable query
    backend [url|off]         Show or set the backend resource URL

  Schema:
    tables                    List known tables
    columns [table]           List the columns of a table (default: FROM table)
    schema                    Show the schema source
    schema load <file>        Use table definitions from a YAML or JSON file
    schema refresh            Discard cached table definitions
    schema off                Stop using the schema file
    engine <name>             Set the engine (postgres, mysql, sqlite)
    connect [dsn]             Connect to a database for schema discovery
    disconnect                Close the database connection

  Plugins (applied to the dispatched text only):
    plugin timerange [col]    Add a $start/$end range on col (default timestamp)
    plugin timerange <col> on <t1> [t2 ...]
    plugin timerange <t.col>, ...
    plugin limit [n] [on <t1> ...]  Cap results at n rows unless the query limits them
    plugin opa                Enforce an OPA policy (same as 'opa')
    plugin off [name]         Disable one or all plugins
    plugins                   List plugins and their status

  OPA:
    opa                       Set up an OPA server policy
    opa status                Show the server, policy and inputs
    opa url <url>             Change the OPA server URL
    opa policy <path>         Change the policy path
    opa input <path> [value]  Set or remove an input value
    opa inputs                Discover the policy's inputs for the known tables
    opa conditions            Show the conditions for the FROM table
    opa explain [table] [verbose]  Trace how the policy becomes a WHERE stage
    opa off                   Disable OPA

  Other:
    help                      Show this help
    exit / quit               Leave the shell`)
}
