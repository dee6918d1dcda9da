package opa

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// compileResponse is the body of a /v1/compile answer. Each query is one
// alternative (OR), each expression inside it a conjunct (AND).
type compileResponse struct {
	Result struct {
		Queries [][]expression `json:"queries"`
	} `json:"result"`
}

type expression struct {
	Index int    `json:"index"`
	Terms []term `json:"terms"`
}

// term is one operand of a residual expression. Only the field matching
// Type is set.
type term struct {
	Type string
	str  string  // string, var
	num  float64 // number
	flag bool    // boolean
	ref  []term  // ref
}

func (t *term) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.Type = raw.Type

	var dst any
	switch raw.Type {
	case "string", "var":
		dst = &t.str
	case "number":
		dst = &t.num
	case "boolean":
		dst = &t.flag
	case "ref":
		dst = &t.ref
	default:
		return fmt.Errorf("opa: unknown term type %q", raw.Type)
	}
	if err := json.Unmarshal(raw.Value, dst); err != nil {
		return fmt.Errorf("opa: decode %s term: %w", raw.Type, err)
	}
	return nil
}

// head returns the variable a ref starts with: "data", "input" or an
// operator name such as "eq".
func (t term) head() (string, bool) {
	if t.Type != "ref" || len(t.ref) == 0 || t.ref[0].Type != "var" {
		return "", false
	}
	return t.ref[0].str, true
}

func (t term) refersTo(root string) bool {
	h, ok := t.head()
	return ok && h == root
}

// path joins the string segments after the head of a ref, as in
// input.subject.role. It fails when a segment is not a plain string.
func (t term) path() (string, bool) {
	if t.Type != "ref" || len(t.ref) < 2 {
		return "", false
	}
	segments := make([]string, 0, len(t.ref)-1)
	for _, p := range t.ref[1:] {
		if p.Type != "string" {
			return "", false
		}
		segments = append(segments, p.str)
	}
	return strings.Join(segments, "."), true
}

// column returns the last string segment of a data ref: for
// data.apache_logs[$0].tenant_id that is tenant_id.
func (t term) column() (string, bool) {
	for i := len(t.ref) - 1; i > 0; i-- {
		if t.ref[i].Type == "string" {
			return t.ref[i].str, true
		}
	}
	return "", false
}

// literal renders a scalar term as a SQL literal.
func (t term) literal() (string, error) {
	switch t.Type {
	case "string":
		return quoteString(t.str), nil
	case "number":
		return strconv.FormatFloat(t.num, 'f', -1, 64), nil
	case "boolean":
		if t.flag {
			return "TRUE", nil
		}
		return "FALSE", nil
	}
	return "", fmt.Errorf("opa: %s term has no SQL literal", t.Type)
}
