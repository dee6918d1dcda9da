package pipeline

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bawdo/oql/internal/quoting"
)

var (
	// ErrUnsupportedFilter is returned for a value/operator combination that
	// has no comparison. The query is returned unchanged.
	ErrUnsupportedFilter = errors.New("unsupported filter")
	// ErrEmptyColumn is returned when a gesture names no column.
	ErrEmptyColumn = errors.New("column name is empty")
)

// Operator is the direction of a filter gesture on a result cell.
type Operator string

const (
	Include Operator = "+"
	Exclude Operator = "-"
)

// NullValue is the cell text the result table shows for NULL.
const NullValue = "[null]"

// filterProvenance marks a WHERE line as generated by a filter gesture.
const filterProvenance = "-- filter from "

// Filter is one include/exclude gesture on a result cell.
type Filter struct {
	Column   string
	Value    string
	Operator Operator
}

// Comparison resolves the right-hand side of the generated WHERE clause:
//
//	[null]   +  IS NULL
//	[null]   -  IS NOT NULL
//	numeric  +  = <value>
//	numeric  -  <> <value>
//	other    +  LIKE '%<value>%'
//	other    -  NOT LIKE '%<value>%'
func Comparison(value string, op Operator) (string, error) {
	switch {
	case value == NullValue && op == Include:
		return "IS NULL", nil
	case value == NullValue && op == Exclude:
		return "IS NOT NULL", nil
	case isNumeric(value) && op == Include:
		return "= " + value, nil
	case isNumeric(value) && op == Exclude:
		return "<> " + value, nil
	case op == Include:
		return "LIKE " + quoting.LikeContains(value), nil
	case op == Exclude:
		return "NOT LIKE " + quoting.LikeContains(value), nil
	}
	return "", fmt.Errorf("%w: operator %q on value %q", ErrUnsupportedFilter, op, value)
}

var (
	decimalRe  = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
	infinityRe = regexp.MustCompile(`^[+-]?Infinity$`)
	radixRe    = regexp.MustCompile(`^0([xX][0-9a-fA-F]+|[oO][0-7]+|[bB][01]+)$`)
)

// isNumeric accepts signed decimal and exponent forms, a signed "Infinity"
// and unsigned 0x/0o/0b integers. Digit separators, hex floats, other
// infinity spellings and NaN are text. Empty or blank text is not a number.
func isNumeric(value string) bool {
	s := strings.TrimSpace(value)
	if s == "" {
		return false
	}
	return decimalRe.MatchString(s) || infinityRe.MatchString(s) || radixRe.MatchString(s)
}

// FilterLine renders the generated stage line for f, including the trailing
// provenance comment that later gestures on the same column look for.
func FilterLine(f Filter) (string, error) {
	if strings.TrimSpace(f.Column) == "" {
		return "", ErrEmptyColumn
	}
	if strings.ContainsAny(f.Value, "\r\n") {
		return "", fmt.Errorf("%w: value for %s spans several lines", ErrUnsupportedFilter, f.Column)
	}
	cmp, err := Comparison(f.Value, f.Operator)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("|> WHERE %s %s %s%s click on %s", f.Column, cmp, filterProvenance, f.Operator, f.Value), nil
}

// ApplyFilter adds or replaces the generated WHERE stage for f.Column.
//
// A previous generated filter on the same column is overwritten in place.
// Otherwise the line goes right after the FROM line when currentTable is a
// known table that declares the column, so it runs before unrelated stages,
// and at the end of the query in every other case.
func ApplyFilter(query string, f Filter, tables Tables, currentTable string) (string, error) {
	where, err := FilterLine(f)
	if err != nil {
		return query, err
	}

	lines := splitLines(query)
	if i := generatedFilterIndex(lines, f.Column); i >= 0 {
		lines[i] = where
		return joinLines(lines), nil
	}

	early := false
	if td, ok := tables.Lookup(currentTable); ok && td.HasColumn(f.Column) {
		early = true
	}

	if early && len(lines) >= 2 {
		lines = append(lines[:1], append([]string{where}, lines[1:]...)...)
	} else {
		lines = append(lines, where)
	}
	return joinLines(lines), nil
}

func generatedFilterIndex(lines []string, column string) int {
	prefix := "|> WHERE " + column + " "
	for i, line := range lines {
		if strings.HasPrefix(line, prefix) && strings.Contains(line, filterProvenance) {
			return i
		}
	}
	return -1
}
