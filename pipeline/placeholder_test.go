package pipeline

import (
	"testing"

	"github.com/bawdo/oql/internal/testutil"
)

func TestResolvePlaceholders(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"word boundary", "WHERE x > $starting AND y < $start", "WHERE x > $starting AND y < FROM_UNIXTIME(100)"},
		{"both", "ts BETWEEN $start AND $end", "ts BETWEEN FROM_UNIXTIME(100) AND FROM_UNIXTIME(200)"},
		{"repeated", "$start,$start)", "FROM_UNIXTIME(100),FROM_UNIXTIME(100))"},
		{"endpoint untouched", "$endpoint = $end", "$endpoint = FROM_UNIXTIME(200)"},
		{"none", "FROM t\n|> LIMIT 1", "FROM t\n|> LIMIT 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolvePlaceholders(tt.in, "FROM_UNIXTIME(100)", "FROM_UNIXTIME(200)")
			testutil.AssertEqual(t, got, tt.want)
		})
	}
}

func TestResolvePlaceholdersLiteralExpression(t *testing.T) {
	t.Parallel()
	// "$1" must not be read as a regexp group reference.
	got := ResolvePlaceholders("a < $end", "x", "toDateTime($1)")
	testutil.AssertEqual(t, got, "a < toDateTime($1)")
}

func TestFindPlaceholders(t *testing.T) {
	t.Parallel()
	got := FindPlaceholders("FROM t\n|> WHERE ts BETWEEN $start AND $end\n|> WHERE $startup")
	want := []Placeholder{
		{Name: StartPlaceholder, Line: 2, Column: 27},
		{Name: EndPlaceholder, Line: 2, Column: 36},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		testutil.AssertEqual(t, got[i], want[i])
	}
}

func TestHasTimeRange(t *testing.T) {
	t.Parallel()
	testutil.AssertEqual(t, HasTimeRange(DefaultQuery), true)
	testutil.AssertEqual(t, HasTimeRange("FROM t\n|> WHERE ts > $end"), true)
	testutil.AssertEqual(t, HasTimeRange("FROM t"), false)
}
