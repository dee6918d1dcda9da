package pipeline

import (
	"fmt"
	"strings"
)

// Direction is the sort direction written into a generated ORDER BY stage.
type Direction string

const (
	Ascending  Direction = "ASC"
	Descending Direction = "DESC"
)

// ParseDirection accepts "asc" or "desc" in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc":
		return Ascending, nil
	case "desc":
		return Descending, nil
	}
	return "", fmt.Errorf("invalid sort direction %q (want asc or desc)", s)
}

// ApplyOrder sets the query's sort stage to "|> ORDER BY <column> <dir>".
// The last existing ORDER BY stage is overwritten so the sort keeps its place
// in the pipeline; earlier ones stay as they are. With none present the stage
// is appended.
func ApplyOrder(query, column string, dir Direction) (string, error) {
	if strings.TrimSpace(column) == "" {
		return query, ErrEmptyColumn
	}
	orderBy := fmt.Sprintf("|> ORDER BY %s %s", column, dir)

	lines := splitLines(query)
	last := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(line), "|> order by") {
			last = i
		}
	}
	if last >= 0 {
		lines[last] = orderBy
	} else {
		lines = append(lines, orderBy)
	}
	return joinLines(lines), nil
}
