package backend

import (
	"context"
	"encoding/json"
	"fmt"
)

// Table is a result set as the backend renders it: every cell is text.
type Table struct {
	Names []string   `json:"Names"`
	Rows  [][]string `json:"Rows"`
}

// ExecResult is a successful execution.
type ExecResult struct {
	Table         Table
	TranspiledSQL string
}

// ExecError is a failed execution. The backend still reports whatever SQL it
// managed to transpile, which is usually the fastest way to see what went wrong.
type ExecError struct {
	Message       string
	Detail        string
	TranspiledSQL string
	Status        int
}

func (e *ExecError) Error() string {
	switch {
	case e.Message == "":
		return e.Detail
	case e.Detail == "":
		return e.Message
	}
	return e.Message + ": " + e.Detail
}

// Exec runs a pipe query. The query should already be resolved: no
// placeholders left and comments stripped (see pipeline.StripComments).
// A failure reported by the backend comes back as *ExecError.
func (c *Client) Exec(ctx context.Context, query string) (ExecResult, error) {
	body, err := c.postJSON(ctx, "/exec", struct {
		Query string `json:"query"`
	}{query})
	if err != nil {
		return ExecResult{}, backendError("exec", body, err)
	}

	var resp struct {
		Table         *Table `json:"table"`
		TranspiledSQL string `json:"transpiledSQL"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return ExecResult{}, fmt.Errorf("parse exec response: %w", err)
	}
	if resp.Table == nil || resp.Table.Rows == nil {
		return ExecResult{TranspiledSQL: resp.TranspiledSQL}, ErrInvalidResult
	}
	return ExecResult{Table: *resp.Table, TranspiledSQL: resp.TranspiledSQL}, nil
}
