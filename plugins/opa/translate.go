package opa

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bawdo/oql/internal/quoting"
)

var comparisons = map[string]string{
	"eq":    "=",
	"equal": "=",
	"neq":   "!=",
	"lt":    "<",
	"lte":   "<=",
	"gt":    ">",
	"gte":   ">=",
}

// likePatterns wrap an escaped string operand for the string builtins.
var likePatterns = map[string]string{
	"startswith": "%s%%",
	"endswith":   "%%%s",
	"contains":   "%%%s%%",
}

func quoteString(s string) string {
	return "'" + quoting.EscapeString(s) + "'"
}

// operands splits an expression into its operator, the data ref and the
// value term. OPA does not guarantee operand order, so the data ref is found
// by type rather than position.
func operands(expr expression) (op string, col, val term, err error) {
	if len(expr.Terms) < 3 {
		return "", term{}, term{}, fmt.Errorf("opa: expression has %d terms, need at least 3", len(expr.Terms))
	}
	op, ok := expr.Terms[0].head()
	if !ok {
		return "", term{}, term{}, errors.New("opa: expression does not start with an operator")
	}
	switch {
	case expr.Terms[1].refersTo("data"):
		return op, expr.Terms[1], expr.Terms[2], nil
	case expr.Terms[2].refersTo("data"):
		return op, expr.Terms[2], expr.Terms[1], nil
	}
	return op, term{}, term{}, errors.New("opa: expression has no data ref term")
}

// translateExpression renders one residual expression as a SQL condition
// on the queried table.
func translateExpression(expr expression) (string, error) {
	op, colTerm, valTerm, err := operands(expr)
	if err != nil {
		return "", err
	}
	col, ok := colTerm.column()
	if !ok {
		return "", errors.New("opa: data ref names no column")
	}
	if !quoting.IsPlainIdentifier(col) {
		return "", fmt.Errorf("opa: unsupported column name %q", col)
	}

	if sqlOp, ok := comparisons[op]; ok {
		lit, err := valTerm.literal()
		if err != nil {
			return "", err
		}
		return col + " " + sqlOp + " " + lit, nil
	}
	if format, ok := likePatterns[op]; ok {
		if valTerm.Type != "string" {
			return "", fmt.Errorf("opa: %s requires a string value, got %s", op, valTerm.Type)
		}
		pattern := fmt.Sprintf(format, quoting.EscapeLikePattern(valTerm.str))
		return col + " LIKE " + quoteString(pattern), nil
	}
	return "", fmt.Errorf("opa: unsupported operator %q", op)
}

// translateQueries turns a residual query set into WHERE conditions that the
// caller joins with AND.
//
//   - no queries: access denied
//   - an empty query: unconditional allow, no conditions
//   - one query: one condition per expression
//   - several queries: a single parenthesised OR of AND groups
func translateQueries(queries [][]expression) ([]string, error) {
	if len(queries) == 0 {
		return nil, ErrAccessDenied
	}
	groups := make([][]string, len(queries))
	for i, query := range queries {
		if len(query) == 0 {
			return nil, nil
		}
		for _, expr := range query {
			cond, err := translateExpression(expr)
			if err != nil {
				return nil, err
			}
			groups[i] = append(groups[i], cond)
		}
	}
	if len(groups) == 1 {
		return groups[0], nil
	}

	alternatives := make([]string, len(groups))
	for i, g := range groups {
		if len(g) == 1 {
			alternatives[i] = g[0]
		} else {
			alternatives[i] = "(" + strings.Join(g, " AND ") + ")"
		}
	}
	return []string{"(" + strings.Join(alternatives, " OR ") + ")"}, nil
}
