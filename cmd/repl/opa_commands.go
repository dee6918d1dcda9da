package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bawdo/oql/plugins"
	"github.com/bawdo/oql/plugins/opa"
)

var errNoPolicy = errors.New("OPA is not enabled, run 'opa' first")

// opaSettings is the policy the opa plugin enforces. The plugin reads it at
// every dispatch, so edits apply to the next run.
type opaSettings struct {
	url   string
	path  string
	input opa.Input
}

func (s *Session) opaClient() *opa.Client {
	return opa.NewClient(s.policy.url, s.policy.path,
		opa.WithInput(s.policy.input),
		opa.WithTimeout(s.timeout),
		opa.WithLogger(s.logger))
}

// enableOPA installs p and registers the plugin that enforces it.
func (s *Session) enableOPA(p *opaSettings) {
	if p.input == nil {
		p.input = opa.Input{}
	}
	s.policy = p
	s.plugins.register(pluginEntry{
		name:    "opa",
		factory: func() plugins.Transformer { return opa.NewFromClient(s.opaClient()) },
		status:  func() string { return "policy: " + s.opaClient().PolicyPath() },
	})
}

// configureOPA re-enables the plugin for the policy set up with 'opa'.
func configureOPA(s *Session, _ string) error {
	if s.policy == nil {
		return errNoPolicy
	}
	s.enableOPA(s.policy)
	_, _ = fmt.Fprintf(s.out, "  OPA enabled, policy: %s\n", s.opaClient().PolicyPath())
	return s.rerun()
}

// opaTables lists the tables whose rows the policy is asked about during
// input discovery: every known table, or the FROM table without a schema.
func (s *Session) opaTables() []string {
	if names := s.knownTables().Names(); len(names) > 0 {
		return names
	}
	if t := s.currentTable(); t != "" {
		return []string{t}
	}
	return nil
}

// promptInputs discovers the inputs the policy reads and prompts for each,
// offering the value in current as the default.
func (s *Session) promptInputs(client *opa.Client, current opa.Input) (opa.Input, error) {
	ctx, cancel := s.context()
	defer cancel()
	paths, err := client.DiscoverInputs(ctx, s.opaTables()...)
	if err != nil {
		return nil, fmt.Errorf("OPA: cannot reach server at %s: %w", client.BaseURL(), err)
	}
	input := opa.Input{}
	if len(paths) == 0 {
		_, _ = fmt.Fprintln(s.out, "  No inputs required by policy")
		return input, nil
	}
	_, _ = fmt.Fprintf(s.out, "  Policy reads %d input(s):\n", len(paths))
	for _, path := range paths {
		def := ""
		if v := current.Get(path); v != nil {
			def = fmt.Sprint(v)
		}
		if val := prompt(s.rl, path, def); val != "" {
			input.Set(path, opa.ParseValue(val))
		}
	}
	return input, nil
}

// cmdOPASetup asks for the server and policy, discovers the policy's inputs
// and enables the plugin.
func (s *Session) cmdOPASetup() error {
	if s.rl == nil {
		return errors.New("opa setup requires an interactive session")
	}
	url, path, current := s.opaDefaultURL, "", opa.Input{}
	if s.policy != nil {
		url, path, current = s.policy.url, s.policy.path, s.policy.input
	}

	_, _ = fmt.Fprintln(s.out, "  OPA setup:")
	url = prompt(s.rl, "OPA server URL", url)
	path = prompt(s.rl, "Policy path (e.g. authz.allow)", path)
	if path == "" {
		return errors.New("policy path is required")
	}
	input, err := s.promptInputs(opa.NewClient(url, path, opa.WithTimeout(s.timeout)), current)
	if err != nil {
		return err
	}
	s.enableOPA(&opaSettings{url: url, path: path, input: input})
	_, _ = fmt.Fprintf(s.out, "  OPA enabled, policy: %s\n", s.opaClient().PolicyPath())
	return s.rerun()
}

func (s *Session) cmdOPAInputs() error {
	if s.policy == nil {
		return errNoPolicy
	}
	if s.rl == nil {
		return errors.New("opa inputs requires an interactive session")
	}
	input, err := s.promptInputs(s.opaClient(), s.policy.input)
	if err != nil {
		return err
	}
	s.policy.input = input
	_, _ = fmt.Fprintln(s.out, "  OPA inputs updated")
	return s.rerun()
}

func (s *Session) cmdOPAOff() error {
	if s.policy == nil {
		return errNoPolicy
	}
	s.plugins.deregister("opa")
	s.policy = nil
	_, _ = fmt.Fprintln(s.out, "  OPA disabled")
	return s.rerun()
}

func (s *Session) cmdOPAStatus() {
	if s.policy == nil {
		_, _ = fmt.Fprintln(s.out, "  OPA: off")
		return
	}
	_, _ = fmt.Fprintln(s.out, "  OPA: on")
	_, _ = fmt.Fprintf(s.out, "    Server: %s\n", s.policy.url)
	_, _ = fmt.Fprintf(s.out, "    Policy: %s\n", s.opaClient().PolicyPath())
	paths := s.policy.input.Paths()
	if len(paths) == 0 {
		_, _ = fmt.Fprintln(s.out, "    Inputs: (none)")
		return
	}
	_, _ = fmt.Fprintln(s.out, "    Inputs:")
	for _, p := range paths {
		_, _ = fmt.Fprintf(s.out, "      %s = %v\n", p, s.policy.input.Get(p))
	}
}

func (s *Session) cmdOPAURL(args string) error {
	if s.policy == nil {
		return errNoPolicy
	}
	if args == "" {
		return errors.New("usage: opa url <url>")
	}
	s.policy.url = args
	_, _ = fmt.Fprintf(s.out, "  OPA server set to %s\n", args)
	return s.rerun()
}

func (s *Session) cmdOPAPolicy(args string) error {
	if s.policy == nil {
		return errNoPolicy
	}
	if args == "" {
		return errors.New("usage: opa policy <path>")
	}
	s.policy.path = args
	_, _ = fmt.Fprintf(s.out, "  OPA policy set to %s\n", s.opaClient().PolicyPath())
	return s.rerun()
}

// cmdOPAInput sets "<path> <value>" or, given only a path, removes it.
func (s *Session) cmdOPAInput(args string) error {
	if s.policy == nil {
		return errNoPolicy
	}
	path, value, hasValue := strings.Cut(args, " ")
	if path == "" {
		return errors.New("usage: opa input <path> [value]")
	}
	value = strings.TrimSpace(value)
	if !hasValue || value == "" {
		s.policy.input.Delete(path)
		_, _ = fmt.Fprintf(s.out, "  Removed input %s\n", path)
	} else {
		v := opa.ParseValue(value)
		s.policy.input.Set(path, v)
		_, _ = fmt.Fprintf(s.out, "  Set input %s = %v\n", path, v)
	}
	return s.rerun()
}

// cmdOPAConditions shows the conditions the policy puts on the FROM table of
// the current query.
func (s *Session) cmdOPAConditions() error {
	if s.policy == nil {
		return errNoPolicy
	}
	table := s.currentTable()
	if table == "" {
		_, _ = fmt.Fprintln(s.out, "  No FROM table in query")
		return nil
	}
	ctx, cancel := s.context()
	defer cancel()
	conditions, err := s.opaClient().Compile(ctx, table)
	switch {
	case err != nil:
		_, _ = fmt.Fprintf(s.out, "  %s: %v\n", table, err)
	case len(conditions) == 0:
		_, _ = fmt.Fprintf(s.out, "  %s: (unconditional allow)\n", table)
	default:
		_, _ = fmt.Fprintf(s.out, "  %s: %s\n", table, strings.Join(conditions, " AND "))
	}
	return nil
}

// cmdOPAExplain traces how the residual policy for a table, by default the
// FROM table, turns into the appended stage.
func (s *Session) cmdOPAExplain(args string) error {
	if s.policy == nil {
		return errNoPolicy
	}
	parts := strings.Fields(args)
	verbose := len(parts) > 0 && strings.EqualFold(parts[len(parts)-1], "verbose")
	if verbose {
		parts = parts[:len(parts)-1]
	}
	table := s.currentTable()
	if len(parts) > 0 {
		table = parts[0]
	}
	if table == "" {
		return errors.New("usage: opa explain [table] [verbose]")
	}

	ctx, cancel := s.context()
	defer cancel()
	ex, err := s.opaClient().Explain(ctx, table)
	if err != nil {
		return fmt.Errorf("OPA explain: %w", err)
	}

	_, _ = fmt.Fprintf(s.out, "  %s: %s, %d query(ies), %d expression(s)\n",
		table, ex.Decision, ex.Queries, ex.Expressions)
	if verbose {
		_, _ = fmt.Fprintf(s.out, "    Request:  %s\n", ex.Request)
		_, _ = fmt.Fprintf(s.out, "    Response: %s\n", ex.Response)
	}
	for _, st := range ex.Steps {
		result := st.SQL
		if st.Err != nil {
			result = "error: " + st.Err.Error()
		}
		_, _ = fmt.Fprintf(s.out, "    [%d] %s(%s, %s) -> %s\n", st.Query, st.Operator, st.Column, st.Value, result)
	}
	switch {
	case ex.Err != nil:
		_, _ = fmt.Fprintf(s.out, "    Not enforceable: %v\n", ex.Err)
	case ex.Decision == opa.Conditional:
		_, _ = fmt.Fprintf(s.out, "    Stage: %s\n", opa.Stage(ex.Conditions))
	case ex.Decision == opa.Denied && !verbose:
		_, _ = fmt.Fprintln(s.out, "    (use 'opa explain <table> verbose' to see request and response)")
	}
	return nil
}
