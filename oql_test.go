package oql_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bawdo/oql"
	"github.com/bawdo/oql/plugins"
)

var now = time.Unix(1700000000, 0).UTC()

// TestEditingRoundTrip demonstrates the editing helpers on the starter query.
func TestEditingRoundTrip(t *testing.T) {
	q := oql.DefaultQuery
	if got := oql.ExtractTable(q); got != "apache_logs" {
		t.Fatalf("expected apache_logs, got %q", got)
	}

	paused, err := oql.ToggleStage(q, 2, true)
	if err != nil {
		t.Fatalf("ToggleStage failed: %v", err)
	}
	stages := oql.Stages(paused)
	if stages[0].Line != 2 || stages[0].Enabled {
		t.Errorf("expected stage at line 2 to be off, got %+v", stages[0])
	}

	resumed, err := oql.ToggleStage(paused, 2, false)
	if err != nil {
		t.Fatalf("ToggleStage failed: %v", err)
	}
	if resumed != q {
		t.Errorf("expected round trip, got:\n%s", resumed)
	}
}

func TestFilterAndOrder(t *testing.T) {
	q, err := oql.ApplyFilter("FROM t", oql.Filter{Column: "code", Value: "7", Operator: oql.Exclude}, nil, "t")
	if err != nil {
		t.Fatalf("ApplyFilter failed: %v", err)
	}
	q, err = oql.ApplyOrder(q, "code", oql.Descending)
	if err != nil {
		t.Fatalf("ApplyOrder failed: %v", err)
	}
	expected := "FROM t\n|> WHERE code <> 7 -- filter from - click on 7\n|> ORDER BY code DESC"
	if q != expected {
		t.Errorf("Expected:\n%s\nGot:\n%s", expected, q)
	}
}

func TestDispatchResolvesAndStrips(t *testing.T) {
	q := "FROM t\n--|> LIMIT 1\n|> WHERE ts BETWEEN $start AND $end -- last 3 days"
	got, err := oql.Dispatch(q, oql.DefaultRange(), now)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	expected := "FROM t\n|> WHERE ts BETWEEN FROM_UNIXTIME(1699740800) AND FROM_UNIXTIME(1700000000)"
	if got != expected {
		t.Errorf("Expected:\n%s\nGot:\n%s", expected, got)
	}
}

func TestDispatchKeepsFilterValueWithDashes(t *testing.T) {
	q, err := oql.ApplyFilter("FROM t", oql.Filter{Column: "msg", Value: "a -- b", Operator: oql.Include}, nil, "t")
	if err != nil {
		t.Fatalf("ApplyFilter failed: %v", err)
	}
	got, err := oql.Dispatch(q, oql.DefaultRange(), now)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	expected := "FROM t\n|> WHERE msg LIKE '%a -- b%'"
	if got != expected {
		t.Errorf("Expected:\n%s\nGot:\n%s", expected, got)
	}
}

func TestDispatchRunsTransformersFirst(t *testing.T) {
	appendRange := plugins.TransformerFunc(func(q string) (string, error) {
		return q + "\n|> WHERE ts >= $start", nil
	})
	got, err := oql.Dispatch("FROM t", oql.Range{Start: "1h", End: "now"}, now, appendRange)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if !strings.HasSuffix(got, "|> WHERE ts >= FROM_UNIXTIME(1699996400)") {
		t.Errorf("expected resolved transformer output, got:\n%s", got)
	}
}

func TestDispatchErrors(t *testing.T) {
	denied := errors.New("denied")
	reject := plugins.TransformerFunc(func(q string) (string, error) { return q, denied })
	if _, err := oql.Dispatch("FROM t", oql.DefaultRange(), now, reject); !errors.Is(err, denied) {
		t.Errorf("expected transformer error, got %v", err)
	}
	if _, err := oql.Dispatch("FROM t", oql.Range{Start: "soon", End: "now"}, now); err == nil {
		t.Error("expected range error")
	}
}
