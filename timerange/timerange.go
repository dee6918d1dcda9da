// Package timerange turns date-range boundaries into the timestamp
// expressions that replace the $start and $end placeholders.
//
// A boundary is either a preset relative to now ("1h", "24h", "3d", "7d",
// "30d", "6m", "now") or an absolute date. Expressions are rendered as
// FROM_UNIXTIME(<seconds>).
package timerange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidBoundary is returned for a boundary that is neither a preset nor
// a recognised date.
var ErrInvalidBoundary = errors.New("invalid time range boundary")

// Default boundaries for a new session.
const (
	DefaultStart = "3d"
	DefaultEnd   = "now"
)

const day = 24 * time.Hour

var presets = map[string]time.Duration{
	"1h":  time.Hour,
	"24h": day,
	"3d":  3 * day,
	"7d":  7 * day,
	"30d": 30 * day,
	"6m":  6 * 30 * day,
	"now": 0,
}

// Presets lists the relative boundaries in increasing distance from now.
var Presets = []string{"now", "1h", "24h", "3d", "7d", "30d", "6m"}

var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Parse resolves a boundary against now.
func Parse(value string, now time.Time) (time.Time, error) {
	v := strings.TrimSpace(value)
	if d, ok := presets[strings.ToLower(v)]; ok {
		return now.Add(-d), nil
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidBoundary, value)
}

// Expression renders t as the expression substituted for a placeholder.
func Expression(t time.Time) string {
	return fmt.Sprintf("FROM_UNIXTIME(%d)", t.Unix())
}

// Range is a pair of boundaries as the user chose them.
type Range struct {
	Start string
	End   string
}

// Default returns the range a new session starts with.
func Default() Range {
	return Range{Start: DefaultStart, End: DefaultEnd}
}

// Resolve returns the start and end expressions for r.
func (r Range) Resolve(now time.Time) (start, end string, err error) {
	s, err := Parse(r.Start, now)
	if err != nil {
		return "", "", fmt.Errorf("start: %w", err)
	}
	e, err := Parse(r.End, now)
	if err != nil {
		return "", "", fmt.Errorf("end: %w", err)
	}
	return Expression(s), Expression(e), nil
}

// Bounds returns the range as unix seconds, for callers that send numbers.
func (r Range) Bounds(now time.Time) (start, end int64, err error) {
	s, err := Parse(r.Start, now)
	if err != nil {
		return 0, 0, fmt.Errorf("start: %w", err)
	}
	e, err := Parse(r.End, now)
	if err != nil {
		return 0, 0, fmt.Errorf("end: %w", err)
	}
	return s.Unix(), e.Unix(), nil
}

func (r Range) String() string {
	return r.Start + " .. " + r.End
}
