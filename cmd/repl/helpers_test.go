package main

import (
	"strings"
	"testing"

	"github.com/bawdo/oql/backend"
)

func TestNumberedQueryGlyphs(t *testing.T) {
	t.Parallel()
	got := numberedQuery("FROM t\n|> SELECT a,\n  b\n--|> LIMIT 5")
	want := "  1    FROM t\n" +
		"  2 || |> SELECT a,\n" +
		"  3      b\n" +
		"  4 |> --|> LIMIT 5\n"
	if got != want {
		t.Errorf("expected:\n%s\ngot:\n%s", want, got)
	}
}

func TestNumberedQueryWidensLineNumbers(t *testing.T) {
	t.Parallel()
	lines := make([]string, 12)
	for i := range lines {
		lines[i] = "x"
	}
	got := numberedQuery(strings.Join(lines, "\n"))
	if !strings.HasPrefix(got, "   1    x\n") || !strings.Contains(got, "  12    x\n") {
		t.Errorf("expected right-aligned numbers, got:\n%s", got)
	}
}

func TestRenderHistogramScales(t *testing.T) {
	t.Parallel()
	points := []backend.TimeSeriesPoint{
		{Date: "10:00", Count: 100},
		{Date: "11:00", Count: 1},
		{Date: "12:00", Count: 0},
	}
	got := renderHistogram(points, 10)
	want := "  10:00 100 ##########\n" +
		"  11:00   1 #\n" +
		"  12:00   0 \n" +
		"  (101 rows in 3 buckets)\n"
	if got != want {
		t.Errorf("expected:\n%q\ngot:\n%q", want, got)
	}
}

func TestRenderHistogramAllZero(t *testing.T) {
	t.Parallel()
	got := renderHistogram([]backend.TimeSeriesPoint{{Date: "d", Count: 0}}, 10)
	if got != "  d 0 \n  (0 rows in 1 buckets)\n" {
		t.Errorf("unexpected output %q", got)
	}
}
