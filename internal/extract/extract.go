// internal/extract/extract.go
//
// Word extraction: every candidate word implied by this turn's placement.
//
// Algorithm:
//   1. The touched positions must share a row or a column; otherwise the
//      placement is illegal and nothing is extracted. A single touched cell
//      lies on both axes and both are explored.
//   2. Take the bounding run of the touched cells on that axis (it must be
//      gap-free) and extend it outward while neighbouring cells hold letters.
//   3. Enumerate every contiguous slice of that run of length >= 2 which
//      covers all touched cells and includes at least one Permanent letter.
//      On an empty board (first move of a match) the Permanent rule is waived.
//   4. Deduplicate by spelling and sort longest first, ties alphabetical.
//
// Extraction is a pure function of (grid, touched); it never mutates the grid.

package extract

import (
	"cmp"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/robalobadob/wordgames/internal/board"
)

// MinWordLength is the shortest run considered a word.
const MinWordLength = 2

// Candidate is one reading of the placement: its spelling and the cells it
// spans, in reading order.
type Candidate struct {
	Word      string           `json:"word"`
	Positions []board.Position `json:"positions"`
}

type axis struct{ dr, dc int }

var (
	horizontal = axis{0, 1}
	vertical   = axis{1, 0}
)

// Extract returns the candidates for touched on g.
func Extract(g *board.Grid, touched []board.Position) []Candidate {
	if len(touched) == 0 {
		return nil
	}
	sameRow := lo.EveryBy(touched, func(p board.Position) bool { return p.Row == touched[0].Row })
	sameCol := lo.EveryBy(touched, func(p board.Position) bool { return p.Col == touched[0].Col })

	var axes []axis
	switch {
	case sameRow && sameCol:
		axes = []axis{horizontal, vertical}
	case sameRow:
		axes = []axis{horizontal}
	case sameCol:
		axes = []axis{vertical}
	default:
		return nil
	}
	for _, p := range touched {
		if !g.InBounds(p) || g.At(p).IsEmpty() {
			return nil
		}
	}

	firstMove := g.CountPermanent() == 0
	seen := make(map[string]struct{})
	var out []Candidate
	for _, ax := range axes {
		run, first, last := runAlong(g, touched, ax)
		if run == nil {
			continue
		}
		for start := 0; start <= first; start++ {
			for end := max(last, start+MinWordLength-1); end < len(run); end++ {
				span := run[start : end+1]
				if !firstMove && !hasPermanent(g, span) {
					continue
				}
				w := spell(g, span)
				if _, dup := seen[w]; dup {
					continue
				}
				seen[w] = struct{}{}
				out = append(out, Candidate{Word: w, Positions: slices.Clone(span)})
			}
		}
	}

	slices.SortStableFunc(out, func(a, b Candidate) int {
		if n := cmp.Compare(len(b.Word), len(a.Word)); n != 0 {
			return n
		}
		return strings.Compare(a.Word, b.Word)
	})
	return out
}

// Words returns only the spellings of Extract, longest first.
func Words(g *board.Grid, touched []board.Position) []string {
	return lo.Map(Extract(g, touched), func(c Candidate, _ int) string { return c.Word })
}

// runAlong returns the maximal letter run through touched on ax, plus the
// indexes of the first and last touched cell inside it. A gap inside the
// bounding run yields a nil run.
func runAlong(g *board.Grid, touched []board.Position, ax axis) (run []board.Position, first, last int) {
	key := func(p board.Position) int { return p.Row*ax.dr + p.Col*ax.dc }
	minP := lo.MinBy(touched, func(a, b board.Position) bool { return key(a) < key(b) })
	maxP := lo.MaxBy(touched, func(a, b board.Position) bool { return key(a) > key(b) })

	for p := minP; key(p) <= key(maxP); p = step(p, ax, 1) {
		if g.At(p).IsEmpty() {
			return nil, 0, 0
		}
	}

	start := minP
	for prev := step(start, ax, -1); g.InBounds(prev) && !g.At(prev).IsEmpty(); prev = step(prev, ax, -1) {
		start = prev
	}
	end := maxP
	for next := step(end, ax, 1); g.InBounds(next) && !g.At(next).IsEmpty(); next = step(next, ax, 1) {
		end = next
	}

	for p := start; key(p) <= key(end); p = step(p, ax, 1) {
		run = append(run, p)
	}
	return run, key(minP) - key(start), key(maxP) - key(start)
}

func step(p board.Position, ax axis, dir int) board.Position {
	return board.Position{Row: p.Row + dir*ax.dr, Col: p.Col + dir*ax.dc}
}

func hasPermanent(g *board.Grid, span []board.Position) bool {
	return lo.SomeBy(span, func(p board.Position) bool { return g.At(p).IsPermanent() })
}

func spell(g *board.Grid, span []board.Position) string {
	var sb strings.Builder
	for _, p := range span {
		sb.WriteString(g.At(p).Letter)
	}
	return sb.String()
}
