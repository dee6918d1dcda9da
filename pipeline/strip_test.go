package pipeline

import (
	"testing"

	"github.com/bawdo/oql/internal/testutil"
)

func TestStripComments(t *testing.T) {
	t.Parallel()
	in := q(
		"FROM apache_logs",
		"|> WHERE severity LIKE '%error%' -- filter from + click on error",
		"--|> LIMIT 5",
		`--\ extra`,
		"",
		"   -- note to self",
		"|> SELECT msg",
	)
	testutil.AssertQuery(t, StripComments(in), q(
		"FROM apache_logs",
		"|> WHERE severity LIKE '%error%'",
		"|> SELECT msg",
	))
}

func TestStripCommentsKeepsDashesInsideText(t *testing.T) {
	t.Parallel()
	in := "FROM t\n|> WHERE msg LIKE '%--x%'"
	testutil.AssertQuery(t, StripComments(in), in)
}

func TestStripCommentsKeepsQuotedCommentMarker(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"inside literal", "|> WHERE msg = 'a -- b' -- note", "|> WHERE msg = 'a -- b'"},
		{"doubled quote", "|> WHERE msg = 'it''s -- x' -- note", "|> WHERE msg = 'it''s -- x'"},
		{"unterminated literal", "|> WHERE msg = 'a -- b", "|> WHERE msg = 'a -- b"},
		{"no comment", "|> WHERE n = 1", "|> WHERE n = 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertEqual(t, StripComments(tt.in), tt.want)
		})
	}
}

func TestStripCommentsAfterGeneratedFilter(t *testing.T) {
	t.Parallel()
	query, err := ApplyFilter("FROM t\n|> LIMIT 1", Filter{Column: "msg", Value: "a -- b", Operator: Include}, nil, "t")
	testutil.AssertNoError(t, err)
	testutil.AssertQuery(t, StripComments(query), q(
		"FROM t",
		"|> LIMIT 1",
		"|> WHERE msg LIKE '%a -- b%'",
	))
}
