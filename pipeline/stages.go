package pipeline

// scanState is the state of the stage scanner.
type scanState int

const (
	seekingNextStage scanState = iota
	insideStage
)

// stageScanner walks query lines one at a time and tracks which stage, if
// any, owns the current line. Lines before the first marker (the FROM clause
// and anything the user wrote above it) belong to no stage.
type stageScanner struct {
	lines  []string
	pos    int
	state  scanState
	marker int // index of the owning stage's marker line, -1 while seeking
}

// scannedLine is one step of the scanner.
type scannedLine struct {
	index  int
	kind   lineKind
	marker int
}

func newStageScanner(lines []string, from int) *stageScanner {
	return &stageScanner{lines: lines, pos: from, state: seekingNextStage, marker: -1}
}

// next returns the next line and false once the input is exhausted.
func (s *stageScanner) next() (scannedLine, bool) {
	if s.pos >= len(s.lines) {
		return scannedLine{}, false
	}
	i := s.pos
	s.pos++
	k := classify(s.lines[i])

	switch s.state {
	case seekingNextStage:
		if isMarker(k) {
			s.state = insideStage
			s.marker = i
		}
	case insideStage:
		if isMarker(k) {
			s.marker = i
		}
	}
	return scannedLine{index: i, kind: k, marker: s.marker}, true
}

// Stage describes one pipe stage of a query.
type Stage struct {
	Line    int    // 1-based line number of the marker line
	End     int    // 1-based line number of the last non-blank line the stage owns
	Enabled bool   // false when the marker is "--|>"
	Text    string // marker line as written
}

// Glyph names the action offered for the stage: "pause" for an enabled stage,
// "play" for a disabled one.
func (st Stage) Glyph() string {
	if st.Enabled {
		return "pause"
	}
	return "play"
}

// Stages lists the pipe stages of query in source order.
func Stages(query string) []Stage {
	lines := splitLines(query)
	sc := newStageScanner(lines, 0)

	var stages []Stage
	for {
		ln, ok := sc.next()
		if !ok {
			break
		}
		switch {
		case isMarker(ln.kind):
			stages = append(stages, Stage{
				Line:    ln.index + 1,
				End:     ln.index + 1,
				Enabled: ln.kind == kindEnabledMarker,
				Text:    lines[ln.index],
			})
		case ln.kind == kindContinuation && ln.marker >= 0:
			stages[len(stages)-1].End = ln.index + 1
		}
	}
	return stages
}

// ownedLines returns the indexes of the non-blank continuation lines owned by
// the stage whose marker line sits at index marker.
func ownedLines(lines []string, marker int) []int {
	sc := newStageScanner(lines, marker)
	var owned []int
	for {
		ln, ok := sc.next()
		if !ok || ln.marker != marker {
			return owned
		}
		if ln.kind == kindContinuation {
			owned = append(owned, ln.index)
		}
	}
}
