package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bawdo/oql/backend"
	"github.com/bawdo/oql/pipeline"
)

// histogramWidth is the bar length of the busiest bucket.
const histogramWidth = 40

// Glyph columns of numberedQuery.
const (
	glyphPause = "||"
	glyphPlay  = "|>"
)

// numberedQuery renders query with 1-based line numbers and a glyph column:
// "||" next to an enabled stage (pause it), "|>" next to a disabled one
// (play it).
func numberedQuery(query string) string {
	glyphs := map[int]string{}
	for _, st := range pipeline.Stages(query) {
		if st.Glyph() == "pause" {
			glyphs[st.Line] = glyphPause
		} else {
			glyphs[st.Line] = glyphPlay
		}
	}

	lines := pipeline.Lines(query)
	width := len(strconv.Itoa(len(lines)))
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "  %*d %-2s %s\n", width, i+1, glyphs[i+1], line)
	}
	return b.String()
}

// renderHistogram draws one bar per bucket, scaled so the largest count
// spans width characters. Non-zero counts always get at least one mark.
func renderHistogram(points []backend.TimeSeriesPoint, width int) string {
	maxCount, dateWidth, total := 0, 0, 0
	for _, p := range points {
		if p.Count > maxCount {
			maxCount = p.Count
		}
		if len(p.Date) > dateWidth {
			dateWidth = len(p.Date)
		}
		total += p.Count
	}
	countWidth := len(strconv.Itoa(maxCount))

	var b strings.Builder
	for _, p := range points {
		n := 0
		if maxCount > 0 {
			n = p.Count * width / maxCount
		}
		if n == 0 && p.Count > 0 {
			n = 1
		}
		fmt.Fprintf(&b, "  %-*s %*d %s\n", dateWidth, p.Date, countWidth, p.Count, strings.Repeat("#", n))
	}
	fmt.Fprintf(&b, "  (%d rows in %d buckets)\n", total, len(points))
	return b.String()
}
