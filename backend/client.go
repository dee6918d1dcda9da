// Package backend is a client for the OQL backend resource API, which
// transpiles pipe-SQL and runs it against the log database.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bawdo/oql/pipeline"
)

// DefaultTimeout bounds a single backend request.
const DefaultTimeout = 30 * time.Second

// ErrInvalidResult is returned when the backend reports success but the
// payload has no table or no rows.
var ErrInvalidResult = errors.New("invalid result returned from the backend")

// Client talks to one backend instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

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

// NewClient creates a Client for the backend rooted at baseURL, for example
// http://localhost:3000/api/plugins/quesma-oql-app/resources.
//
// SECURITY: queries are sent as-is. Use HTTPS outside local development.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the endpoint root the client was created with.
func (c *Client) BaseURL() string { return c.baseURL }

// statusError is a non-200 response whose body could not be interpreted.
type statusError struct {
	status int
	body   []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.status, strings.TrimSpace(string(e.body)))
}

// postJSON sends v as a JSON POST to path and returns the response body.
// Non-200 responses come back as *statusError together with the body.
func (c *Client) postJSON(ctx context.Context, path string, v any) ([]byte, error) {
	reqBody, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	c.logger.Debug("backend request",
		slog.String("path", path),
		slog.String("request_id", requestID),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return body, &statusError{status: resp.StatusCode, body: body}
	}
	return body, nil
}

// errorBody is the shape of every error payload the backend writes.
type errorBody struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	TranspiledSQL string `json:"transpiledSQL"`
}

// backendError turns a failed postJSON into the most specific error.
func backendError(path string, body []byte, err error) error {
	var se *statusError
	if !errors.As(err, &se) {
		return err
	}
	var eb errorBody
	if json.Unmarshal(body, &eb) != nil || (eb.Error == "" && eb.Message == "") {
		return fmt.Errorf("%s: %w", path, err)
	}
	return &ExecError{
		Message:       strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(eb.Message), ":")),
		Detail:        eb.Error,
		TranspiledSQL: eb.TranspiledSQL,
		Status:        se.status,
	}
}

// DiscoverSchema asks the backend for the tables of database.
func (c *Client) DiscoverSchema(ctx context.Context, database string) (pipeline.Tables, error) {
	body, err := c.postJSON(ctx, "/schema_discovery", struct {
		DatabaseName string `json:"databaseName"`
	}{database})
	if err != nil {
		return nil, backendError("schema discovery", body, err)
	}
	var resp struct {
		Tables pipeline.Tables `json:"tables"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse schema discovery response: %w", err)
	}
	return resp.Tables, nil
}

// Discover implements schema.Source.
func (c *Client) Discover(ctx context.Context, database string) (pipeline.Tables, error) {
	return c.DiscoverSchema(ctx, database)
}
