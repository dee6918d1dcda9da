package pipeline

import (
	"slices"
	"testing"

	"github.com/bawdo/oql/internal/testutil"
)

func TestActions(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want []Action
	}{
		{"default query", DefaultQuery, []Action{AskAI}},
		{"single line", "FROM t", []Action{AskAI, AddLimit}},
		{"no range no limit", "FROM t\n|> SELECT a", []Action{AskAI, AddTimeRange, AddLimit}},
		{"lowercase limit", "FROM t\n|> limit 3", []Action{AskAI, AddTimeRange}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Actions(tt.in)
			if !slices.Equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestAppendTimeRangeAndLimit(t *testing.T) {
	t.Parallel()
	got := AppendTimeRange("FROM t", "")
	testutil.AssertQuery(t, got, "FROM t\n|> WHERE timestamp >= $start AND timestamp <= $end")
	testutil.AssertEqual(t, HasTimeRange(got), true)

	got = AppendTimeRange("FROM t", "ts")
	testutil.AssertQuery(t, got, "FROM t\n|> WHERE ts >= $start AND ts <= $end")

	got = AppendLimit("FROM t", 0)
	testutil.AssertQuery(t, got, "FROM t\n|> LIMIT 100")
	testutil.AssertEqual(t, HasLimit(got), true)

	testutil.AssertEqual(t, LimitLine(7), "|> LIMIT 7")
}

func TestCompletionAt(t *testing.T) {
	t.Parallel()
	tests := []struct {
		prefix string
		want   CompletionKind
	}{
		{"from ", CompleteTables},
		{"FROM apa", CompleteTables},
		{"|> where ", CompleteColumns},
		{"|> SELECT a, cl", CompleteColumns},
		{"|> ORDER ", CompleteColumns},
		{"|> ", CompleteKeywords},
		{"|> wh", CompleteKeywords},
		{"from", CompleteNothing},
		{"SELECT", CompleteNothing},
	}
	for _, tt := range tests {
		if got := CompletionAt(tt.prefix); got != tt.want {
			t.Errorf("CompletionAt(%q) = %s, want %s", tt.prefix, got, tt.want)
		}
	}
}

func TestCandidates(t *testing.T) {
	t.Parallel()
	got := Candidates(CompleteColumns, apacheTables, "linux_logs")
	want := []string{"timestamp", "host", "msg", "$end", "$start", "*"}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if got := Candidates(CompleteColumns, apacheTables, "missing"); got != nil {
		t.Errorf("expected no columns for unknown table, got %v", got)
	}
	if got := Candidates(CompleteTables, apacheTables, ""); !slices.Equal(got, []string{"apache_logs", "linux_logs"}) {
		t.Errorf("unexpected tables %v", got)
	}
	if got := Candidates(CompleteKeywords, nil, ""); !slices.Equal(got, StageKeywords) {
		t.Errorf("unexpected keywords %v", got)
	}
	if got := Candidates(CompleteNothing, apacheTables, "apache_logs"); got != nil {
		t.Errorf("expected nothing, got %v", got)
	}
}
