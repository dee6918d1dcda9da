package backend

import (
	"context"
	"encoding/json"
	"fmt"
)

// TimeSeriesRequest asks for hourly row counts of a table over a range.
// StartDate and EndDate are unix seconds.
type TimeSeriesRequest struct {
	Query     string `json:"query"`
	StartDate int64  `json:"startDate"`
	EndDate   int64  `json:"endDate"`
	TableName string `json:"tableName"`
}

// TimeSeriesPoint is one histogram bucket.
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// TimeSeries fetches the histogram for req.
func (c *Client) TimeSeries(ctx context.Context, req TimeSeriesRequest) ([]TimeSeriesPoint, error) {
	body, err := c.postJSON(ctx, "/timeseries", req)
	if err != nil {
		return nil, backendError("timeseries", body, err)
	}
	var resp struct {
		Data []TimeSeriesPoint `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse timeseries response: %w", err)
	}
	return resp.Data, nil
}
