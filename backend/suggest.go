package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// SuggestRequest asks the backend's assistant for rewritten queries.
// Results is the last result set the user saw, if any.
type SuggestRequest struct {
	Prompt  string `json:"prompt"`
	Query   string `json:"query"`
	Results Table  `json:"results"`
}

// Suggest returns candidate queries for req.Prompt.
func (c *Client) Suggest(ctx context.Context, req SuggestRequest) ([]string, error) {
	body, err := c.postJSON(ctx, "/suggest", req)
	var resp struct {
		Error       string   `json:"error"`
		Suggestions []string `json:"suggestions"`
	}
	if jsonErr := json.Unmarshal(body, &resp); jsonErr != nil {
		if err != nil {
			return nil, backendError("suggest", body, err)
		}
		return nil, fmt.Errorf("parse suggest response: %w", jsonErr)
	}
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}
	if err != nil {
		return nil, backendError("suggest", body, err)
	}
	return resp.Suggestions, nil
}
