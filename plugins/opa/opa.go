// Package opa provides a Transformer that enforces Open Policy Agent
// policies on pipe queries by appending a policy-derived WHERE stage.
//
// You supply a [PolicyFunc] that is called with the table the query reads
// from. The function returns zero or more SQL conditions; they are joined
// with AND into a single stage:
//
//	|> WHERE tenant_id = 42 AND severity != 'debug' -- policy
//
// If the function returns an error the query is rejected entirely, which
// is how hard "access denied" rules are expressed.
//
// # Basic usage
//
//	policy := func(table string) ([]string, error) {
//	    if table == "secrets" {
//	        return nil, errors.New("access denied")
//	    }
//	    if table == "apache_logs" {
//	        return []string{"tenant_id = 42"}, nil
//	    }
//	    return nil, nil // no extra conditions
//	}
//	o := opa.New(policy)
//
// # Server mode
//
// [NewFromClient] asks an OPA server's Compile API for the residual policy
// with data.<table> unknown and translates the residual into conditions:
//
//	c := opa.NewClient(opa.DefaultURL, "authz.allow",
//	    opa.WithInput(opa.Input{"subject": map[string]any{"tenant": 42}}))
//	o := opa.NewFromClient(c)
//
// # Combining with other plugins
//
// OPA composes with any other Transformer through plugins.Chain. The policy
// stage is appended after the user's stages, so it needs the filtered
// columns to survive any SELECT or AGGREGATE stage before it.
package opa

import (
	"context"
	"errors"
	"strings"

	"github.com/bawdo/oql/pipeline"
)

// ErrAccessDenied is returned when the policy yields no way to allow rows.
var ErrAccessDenied = errors.New("opa: access denied")

// StageComment marks the stages this plugin writes.
const StageComment = "-- policy"

// PolicyFunc evaluates a policy for the given table name and returns
// conditions for the query's WHERE stage. Returning a non-nil error rejects
// the query entirely (e.g., "access denied").
type PolicyFunc func(tableName string) ([]string, error)

// OPA is a Transformer that evaluates a policy against the queried table
// and appends the resulting conditions. It supports two modes:
//   - PolicyFunc mode (via [New]): calls a Go function to evaluate policy
//   - Server mode (via [NewFromClient]): calls an OPA server's Compile API
type OPA struct {
	evalPolicy PolicyFunc
	client     *Client
}

// New creates an OPA transformer with the given policy function.
func New(policy PolicyFunc) *OPA {
	return &OPA{evalPolicy: policy}
}

// NewFromClient creates an OPA transformer that evaluates policies through
// c, one Compile request per dispatched query.
func NewFromClient(c *Client) *OPA {
	return &OPA{client: c}
}

// Client returns the server client, or nil in PolicyFunc mode.
func (o *OPA) Client() *Client { return o.client }

// TransformQuery evaluates the policy for the queried table and appends a
// WHERE stage carrying the conditions. A query without a recognisable FROM
// is rejected, since the policy cannot be evaluated for it.
func (o *OPA) TransformQuery(query string) (string, error) {
	table := pipeline.ExtractTable(query)
	if table == "" {
		return query, errors.New("opa: cannot determine the queried table")
	}

	var conditions []string
	var err error
	if o.client != nil {
		conditions, err = o.client.Compile(context.Background(), table)
	} else {
		conditions, err = o.evalPolicy(table)
	}
	if err != nil {
		return query, err
	}
	if len(conditions) == 0 {
		return query, nil
	}
	return query + "\n" + Stage(conditions), nil
}

// Stage renders the stage appended for conditions.
func Stage(conditions []string) string {
	return pipeline.EnabledMarker + " WHERE " + strings.Join(conditions, " AND ") + " " + StageComment
}
