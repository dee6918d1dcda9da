package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStageMismatch is returned when the line handed to ToggleStage does not
// carry the marker the caller expected. The query is returned unchanged.
var ErrStageMismatch = errors.New("no pipe stage in the expected state at line")

// ToggleStage flips the pipe stage whose marker sits on the 1-based
// lineNumber. isPlay reports the stage's current state as the caller sees it:
// true means the stage is enabled and is switched off, false means it is
// disabled and is switched back on.
//
// Disabling rewrites "|>" to "--|>" and prefixes every continuation line with
// ContinuationPrefix unless it is already commented. Enabling reverses the
// marker and strips ContinuationPrefix from continuation lines; lines commented
// by other means are left alone. Blank lines are never touched and the walk
// stops at the next marker line.
func ToggleStage(query string, lineNumber int, isPlay bool) (string, error) {
	from, to := EnabledMarker, DisabledMarker
	if !isPlay {
		from, to = DisabledMarker, EnabledMarker
	}

	lines := splitLines(query)
	idx := lineNumber - 1
	if idx < 0 || idx >= len(lines) || !hasMarker(lines[idx], from) {
		return query, fmt.Errorf("%w %d (want %q)", ErrStageMismatch, lineNumber, from)
	}

	owned := ownedLines(lines, idx)
	lines[idx] = strings.Replace(lines[idx], from, to, 1)

	for _, i := range owned {
		if isPlay {
			lines[i] = commentOut(lines[i])
		} else {
			lines[i] = uncomment(lines[i])
		}
	}
	return joinLines(lines), nil
}

// ToggleAt flips the stage at lineNumber in whichever direction its current
// marker calls for, the way a click on the stage glyph does.
func ToggleAt(query string, lineNumber int) (string, error) {
	lines := splitLines(query)
	idx := lineNumber - 1
	if idx < 0 || idx >= len(lines) {
		return query, fmt.Errorf("%w %d (out of range)", ErrStageMismatch, lineNumber)
	}
	switch classify(lines[idx]) {
	case kindEnabledMarker:
		return ToggleStage(query, lineNumber, true)
	case kindDisabledMarker:
		return ToggleStage(query, lineNumber, false)
	default:
		return query, fmt.Errorf("%w %d (not a stage marker)", ErrStageMismatch, lineNumber)
	}
}

// hasMarker reports whether the trimmed line starts with marker. "|>" must not
// match a disabled "--|>" line, which classify already guarantees.
func hasMarker(line, marker string) bool {
	switch marker {
	case EnabledMarker:
		return classify(line) == kindEnabledMarker
	case DisabledMarker:
		return classify(line) == kindDisabledMarker
	}
	return false
}

func isCommented(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, ContinuationPrefix) || strings.HasPrefix(trimmed, CommentPrefix)
}

func commentOut(line string) string {
	if isCommented(line) {
		return line
	}
	return ContinuationPrefix + line
}

// uncomment removes the first ContinuationPrefix from a commented line.
// A user comment ("-- ") carries no such prefix and comes back unchanged.
func uncomment(line string) string {
	if !isCommented(line) {
		return line
	}
	return strings.Replace(line, ContinuationPrefix, "", 1)
}
