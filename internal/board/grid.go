// internal/board/grid.go
//
// Rectangular grid of cells shared by the Scrabble and word chain variants.
// Responsibilities:
//   - Construct empty grids, optionally seeded with a centered starter word.
//   - Bounds-checked cell access (out of bounds is a programming error → panic).
//   - Growth between rounds, preserving every letter's relative position.
//
// Notes:
//   - The grid never shrinks.
//   - Multipliers are assigned once (ApplyStandardLayout) and never rewritten;
//     the setters below only touch occupancy and letter.

package board

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Grid is a rows x cols array of cells stored row-major.
type Grid struct {
	rows  int
	cols  int
	cells []Cell
}

// New returns an all-empty rows x cols grid.
func New(rows, cols int) *Grid {
	if rows <= 0 || cols <= 0 {
		panic(fmt.Sprintf("board: invalid dimensions %dx%d", rows, cols))
	}
	return &Grid{rows: rows, cols: cols, cells: make([]Cell, rows*cols)}
}

// NewSquare returns an all-empty size x size grid.
func NewSquare(size int) *Grid { return New(size, size) }

// NewSeeded returns a square grid with word placed Permanent on the center row,
// horizontally centered. The second return value is the cell just after the
// word (clamped to the grid), a natural starting focus for the first player.
func NewSeeded(size int, word string) (*Grid, Position) {
	g := NewSquare(size)
	letters := []rune(strings.ToUpper(strings.TrimSpace(word)))
	row := size / 2
	if len(letters) == 0 || len(letters) > size {
		return g, Position{Row: row, Col: size / 2}
	}
	start := (size - len(letters)) / 2
	for i, r := range letters {
		g.cells[g.index(Position{Row: row, Col: start + i})] = Cell{State: Permanent, Letter: string(r)}
	}
	next := Position{Row: row, Col: min(start+len(letters), size-1)}
	return g, next
}

func (g *Grid) Rows() int { return g.rows }
func (g *Grid) Cols() int { return g.cols }

// InBounds reports whether p addresses a cell of the grid.
func (g *Grid) InBounds(p Position) bool {
	return p.Row >= 0 && p.Row < g.rows && p.Col >= 0 && p.Col < g.cols
}

func (g *Grid) index(p Position) int {
	if !g.InBounds(p) {
		panic(fmt.Sprintf("board: position %v out of bounds for %dx%d grid", p, g.rows, g.cols))
	}
	return p.Row*g.cols + p.Col
}

// At returns a copy of the cell at p.
func (g *Grid) At(p Position) Cell { return g.cells[g.index(p)] }

// Set overwrites the cell at p. Intended for board construction and decoding;
// gameplay goes through PlaceTemporary / Clear / Commit.
func (g *Grid) Set(p Position, c Cell) { g.cells[g.index(p)] = c }

// PlaceTemporary writes letter at p as a Temporary cell, keeping the multiplier.
// It refuses (returns false) when the cell holds a Permanent letter.
func (g *Grid) PlaceTemporary(p Position, letter string, blank bool) bool {
	c := &g.cells[g.index(p)]
	if c.State == Permanent {
		return false
	}
	c.State = Temporary
	c.Letter = strings.ToUpper(letter)
	c.Blank = blank
	return true
}

// Clear empties a Temporary cell. Permanent and empty cells are left alone;
// the return value reports whether a letter was removed.
func (g *Grid) Clear(p Position) bool {
	c := &g.cells[g.index(p)]
	if c.State != Temporary {
		return false
	}
	c.State = Empty
	c.Letter = ""
	c.Blank = false
	return true
}

// Commit reclassifies a Temporary cell as Permanent.
func (g *Grid) Commit(p Position) bool {
	c := &g.cells[g.index(p)]
	if c.State != Temporary {
		return false
	}
	c.State = Permanent
	return true
}

// IsEmpty reports whether no cell holds a letter.
func (g *Grid) IsEmpty() bool {
	for _, c := range g.cells {
		if c.State != Empty {
			return false
		}
	}
	return true
}

// CountPermanent returns the number of committed letters.
func (g *Grid) CountPermanent() int {
	n := 0
	for _, c := range g.cells {
		if c.State == Permanent {
			n++
		}
	}
	return n
}

// TemporaryPositions returns every Temporary cell in row-major order.
func (g *Grid) TemporaryPositions() []Position {
	var out []Position
	for i, c := range g.cells {
		if c.State == Temporary {
			out = append(out, Position{Row: i / g.cols, Col: i % g.cols})
		}
	}
	return out
}

// Permanents returns a snapshot of all committed letters keyed by position.
func (g *Grid) Permanents() map[Position]Cell {
	out := make(map[Position]Cell)
	for i, c := range g.cells {
		if c.State == Permanent {
			out[Position{Row: i / g.cols, Col: i % g.cols}] = c
		}
	}
	return out
}

// GrowBy appends delta rows at the bottom and delta columns at the right.
// Existing cells keep their coordinates.
func (g *Grid) GrowBy(delta int) {
	g.grow(delta, 0)
}

// GrowAround adds delta rows/columns on every side, shifting existing content
// by (delta, delta). Callers holding positions must offset them likewise.
func (g *Grid) GrowAround(delta int) {
	g.grow(2*delta, delta)
}

func (g *Grid) grow(extra, offset int) {
	if extra <= 0 {
		return
	}
	rows, cols := g.rows+extra, g.cols+extra
	cells := make([]Cell, rows*cols)
	for r := 0; r < g.rows; r++ {
		copy(cells[(r+offset)*cols+offset:], g.cells[r*g.cols:(r+1)*g.cols])
	}
	g.rows, g.cols, g.cells = rows, cols, cells
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	cp := &Grid{rows: g.rows, cols: g.cols, cells: make([]Cell, len(g.cells))}
	copy(cp.cells, g.cells)
	return cp
}

// String renders the grid with '.' for empty, lower case for temporary letters.
func (g *Grid) String() string {
	var sb strings.Builder
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			cell := g.cells[r*g.cols+c]
			switch cell.State {
			case Empty:
				sb.WriteByte('.')
			case Temporary:
				sb.WriteString(strings.ToLower(cell.Letter))
			default:
				sb.WriteString(cell.Letter)
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// MarshalJSON encodes the grid as a 2-D array of cells, the shape clients render.
func (g *Grid) MarshalJSON() ([]byte, error) {
	out := make([][]Cell, g.rows)
	for r := range out {
		out[r] = g.cells[r*g.cols : (r+1)*g.cols]
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a 2-D array of cells. Rows must be of equal length.
func (g *Grid) UnmarshalJSON(b []byte) error {
	var in [][]Cell
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	if len(in) == 0 {
		return fmt.Errorf("board: empty grid")
	}
	cols := len(in[0])
	cells := make([]Cell, 0, len(in)*cols)
	for i, row := range in {
		if len(row) != cols {
			return fmt.Errorf("board: row %d has %d cells, want %d", i, len(row), cols)
		}
		cells = append(cells, row...)
	}
	g.rows, g.cols, g.cells = len(in), cols, cells
	return nil
}
