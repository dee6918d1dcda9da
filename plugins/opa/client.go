package opa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultURL is where a local OPA server listens.
const DefaultURL = "http://localhost:8181"

// DefaultTimeout bounds a single Compile request.
const DefaultTimeout = 5 * time.Second

// Client asks an OPA server's Compile API for the residual of one policy.
type Client struct {
	baseURL    string
	policyPath string
	input      Input
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithInput sets the input document sent with Compile and Explain.
func WithInput(in Input) Option {
	return func(c *Client) { c.input = in }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger requests are traced to at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client for the policy at policyPath, for example
// "authz.allow" or "data.authz.allow"; the "data." prefix is added when
// missing.
//
// SECURITY: input values are sent as-is. Use HTTPS outside local development.
func NewClient(baseURL, policyPath string, opts ...Option) *Client {
	if !strings.HasPrefix(policyPath, "data.") {
		policyPath = "data." + policyPath
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		policyPath: policyPath,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PolicyPath returns the normalized policy path.
func (c *Client) PolicyPath() string { return c.policyPath }

// BaseURL returns the server root the client was created with.
func (c *Client) BaseURL() string { return c.baseURL }

type compileRequest struct {
	Query    string   `json:"query"`
	Input    Input    `json:"input,omitempty"`
	Unknowns []string `json:"unknowns"`
}

// compile posts one Compile request and returns the encoded request, the
// raw response body and the decoded residual.
func (c *Client) compile(ctx context.Context, unknowns []string, input Input) ([]byte, []byte, *compileResponse, error) {
	reqBody, err := json.Marshal(compileRequest{
		Query:    c.policyPath + " == true",
		Input:    input,
		Unknowns: unknowns,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opa: marshal compile request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/compile", bytes.NewReader(reqBody))
	if err != nil {
		return reqBody, nil, nil, err
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return reqBody, nil, nil, fmt.Errorf("opa: compile request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return reqBody, nil, nil, fmt.Errorf("opa: read compile response: %w", err)
	}
	c.logger.Debug("opa compile",
		slog.String("policy", c.policyPath),
		slog.Any("unknowns", unknowns),
		slog.String("request_id", requestID),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return reqBody, body, nil, fmt.Errorf("opa: compile request failed: status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var parsed compileResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return reqBody, body, nil, fmt.Errorf("opa: parse compile response: %w", err)
	}
	return reqBody, body, &parsed, nil
}

func dataUnknowns(tables []string) []string {
	unknowns := make([]string, len(tables))
	for i, t := range tables {
		unknowns[i] = "data." + t
	}
	return unknowns
}

// Compile returns the WHERE conditions the policy puts on rows of table.
// It fails with ErrAccessDenied when no row can be allowed.
func (c *Client) Compile(ctx context.Context, table string) ([]string, error) {
	_, _, parsed, err := c.compile(ctx, dataUnknowns([]string{table}), c.input)
	if err != nil {
		return nil, err
	}
	return translateQueries(parsed.Result.Queries)
}

// DiscoverInputs reports the input paths the policy reads, sorted, by
// compiling with the whole input unknown. Rules that only fire for rows of
// the given tables need those tables unknown too to expose their inputs.
func (c *Client) DiscoverInputs(ctx context.Context, tables ...string) ([]string, error) {
	unknowns := append([]string{"input"}, dataUnknowns(tables)...)
	_, _, parsed, err := c.compile(ctx, unknowns, Input{})
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, query := range parsed.Result.Queries {
		for _, expr := range query {
			for _, t := range expr.Terms {
				if !t.refersTo("input") {
					continue
				}
				if p, ok := t.path(); ok && !slices.Contains(paths, p) {
					paths = append(paths, p)
				}
			}
		}
	}
	slices.Sort(paths)
	return paths, nil
}

// Decision summarises a residual policy.
type Decision int

const (
	Denied Decision = iota
	Allowed
	Conditional
)

func (d Decision) String() string {
	switch d {
	case Denied:
		return "access denied"
	case Allowed:
		return "unconditional allow"
	}
	return "conditional"
}

// Step records how one residual expression was translated.
type Step struct {
	Query    int    // 1-based alternative the expression belongs to
	Operator string // eq, neq, startswith, ...
	Column   string
	Value    string // the operand as a SQL literal
	SQL      string // the condition, empty when Err is set
	Err      error
}

// Explanation is a trace of one Compile round trip for a table.
type Explanation struct {
	Table       string
	Request     string
	Response    string
	Decision    Decision
	Queries     int
	Expressions int
	Steps       []Step
	Conditions  []string
	Err         error // translation failure; Conditions is empty
}

// Explain compiles the policy for table and traces how every residual
// expression becomes SQL. Only transport and decoding problems are returned
// as errors; an untranslatable residual is reported in the Explanation.
func (c *Client) Explain(ctx context.Context, table string) (*Explanation, error) {
	reqBody, respBody, parsed, err := c.compile(ctx, dataUnknowns([]string{table}), c.input)
	if err != nil {
		return nil, err
	}
	queries := parsed.Result.Queries
	ex := &Explanation{
		Table:    table,
		Request:  string(reqBody),
		Response: strings.TrimSpace(string(respBody)),
		Queries:  len(queries),
		Decision: Conditional,
	}
	for i, query := range queries {
		ex.Expressions += len(query)
		if len(query) == 0 {
			ex.Decision = Allowed
		}
		for _, expr := range query {
			ex.Steps = append(ex.Steps, explainStep(i+1, expr))
		}
	}
	if len(queries) == 0 {
		ex.Decision = Denied
		return ex, nil
	}
	if ex.Decision == Allowed {
		return ex, nil
	}
	ex.Conditions, ex.Err = translateQueries(queries)
	return ex, nil
}

func explainStep(query int, expr expression) Step {
	st := Step{Query: query}
	op, col, val, err := operands(expr)
	st.Operator = op
	if err == nil {
		st.Column, _ = col.column()
		st.Value, _ = val.literal()
	}
	st.SQL, st.Err = translateExpression(expr)
	return st
}
