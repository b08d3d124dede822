// internal/board/cell.go
//
// Cell-level types for the game grid.
// Defines:
//   - Occupancy: the single tagged letter state of a cell (empty/temp/permanent).
//   - Multiplier: scoring annotation assigned at board-init time.
//   - Position: a (row, col) coordinate.
//   - Cell: occupancy + letter + multiplier.

package board

import (
	"fmt"
	"strings"
)

// Occupancy is the letter state of a cell. A cell is in exactly one state.
type Occupancy uint8

const (
	Empty Occupancy = iota
	Temporary
	Permanent
)

func (o Occupancy) String() string {
	switch o {
	case Temporary:
		return "temp"
	case Permanent:
		return "permanent"
	default:
		return "empty"
	}
}

// MarshalText encodes the occupancy by name so stored boards stay readable.
func (o Occupancy) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText decodes "empty" | "temp" | "permanent".
func (o *Occupancy) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "", "empty":
		*o = Empty
	case "temp", "temporary":
		*o = Temporary
	case "permanent":
		*o = Permanent
	default:
		return fmt.Errorf("board: unknown occupancy %q", b)
	}
	return nil
}

// Multiplier is a board-position scoring amplifier.
// It is consumed only by tiles placed on the cell during the current turn.
type Multiplier string

const (
	None         Multiplier = ""
	DoubleLetter Multiplier = "DL"
	TripleLetter Multiplier = "TL"
	DoubleWord   Multiplier = "DW"
	TripleWord   Multiplier = "TW"
	Center       Multiplier = "STAR" // counts as a double word
)

// LetterFactor is the factor applied to a newly placed letter's score.
func (m Multiplier) LetterFactor() int {
	switch m {
	case DoubleLetter:
		return 2
	case TripleLetter:
		return 3
	}
	return 1
}

// WordFactor is the factor applied to the whole word when a tile lands here.
func (m Multiplier) WordFactor() int {
	switch m {
	case DoubleWord, Center:
		return 2
	case TripleWord:
		return 3
	}
	return 1
}

// Position is a zero-based (row, col) coordinate on the grid.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p Position) String() string { return fmt.Sprintf("[%d, %d]", p.Row, p.Col) }

// Cell is a single square of the grid.
type Cell struct {
	State      Occupancy  `json:"state"`
	Letter     string     `json:"letter,omitempty"`
	Blank      bool       `json:"blank,omitempty"` // placed from a blank tile; scores zero
	Multiplier Multiplier `json:"multiplier,omitempty"`
}

func (c Cell) IsEmpty() bool     { return c.State == Empty }
func (c Cell) IsTemporary() bool { return c.State == Temporary }
func (c Cell) IsPermanent() bool { return c.State == Permanent }
