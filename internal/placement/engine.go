// internal/placement/engine.go
//
// Turn-scoped placement state machine shared by both board variants.
// Responsibilities:
//   - Track the focused cell, the selected hand slot and the touched set.
//   - Place, replace and withdraw Temporary letters; never touch Permanent ones.
//   - In the tile-drafting variant, move tiles between the hand and the board.
//   - Roll a turn back or commit it.
//
// States: Idle → InProgress (first placement) → Committed (Commit) or back to
// Idle (Rollback / last letter removed). Begin starts the next turn in Idle.
//
// Rejections (permanent cell, letter cap, missing tile) return false and leave
// board and hand unchanged.

package placement

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordgames/internal/board"
	"github.com/robalobadob/wordgames/internal/tiles"
)

// State is the lifecycle stage of the current turn.
type State uint8

const (
	Idle State = iota
	InProgress
	Committed
)

func (s State) String() string {
	switch s {
	case InProgress:
		return "in_progress"
	case Committed:
		return "committed"
	default:
		return "idle"
	}
}

// Options configures an Engine.
type Options struct {
	// MaxLetters caps the Temporary letters of one turn; 0 means no cap.
	MaxLetters int
	// Table scores tiles returned to the hand. Required for the tile variant.
	Table *tiles.LetterTable
}

// Engine governs letter placement for one match. It is not safe for
// concurrent use; the owning match serializes access.
type Engine struct {
	grid *board.Grid
	opts Options

	hand    *tiles.Hand // nil in the free-placement variant
	focus   *board.Position
	slot    int
	touched []board.Position
	state   State
}

// New returns an engine operating on grid, starting Idle.
func New(grid *board.Grid, opts Options) *Engine {
	e := &Engine{grid: grid, opts: opts, slot: -1}
	e.touched = grid.TemporaryPositions()
	if len(e.touched) > 0 {
		e.state = InProgress
	}
	return e
}

// Begin starts a new turn for the player holding hand (nil for the
// free-placement variant). Temporary letters already on the board, e.g. after
// restoring a stored match, become the touched set.
func (e *Engine) Begin(hand *tiles.Hand) {
	e.hand = hand
	e.slot = -1
	e.touched = e.grid.TemporaryPositions()
	e.state = Idle
	if len(e.touched) > 0 {
		e.state = InProgress
	}
}

// SetGrid rebinds the engine after the board was replaced or regrown.
func (e *Engine) SetGrid(g *board.Grid) {
	e.grid = g
	e.focus = nil
	e.touched = g.TemporaryPositions()
}

func (e *Engine) State() State { return e.state }

// Touched returns the positions holding this turn's letters, in placement order.
func (e *Engine) Touched() []board.Position { return slices.Clone(e.touched) }

// Placed is the number of Temporary letters of this turn.
func (e *Engine) Placed() int { return len(e.touched) }

// Focus returns the selected cell, if any.
func (e *Engine) Focus() (board.Position, bool) {
	if e.focus == nil {
		return board.Position{}, false
	}
	return *e.focus, true
}

// SelectedSlot returns the selected hand index, or -1.
func (e *Engine) SelectedSlot() int { return e.slot }

// Select focuses a cell. It never mutates the board.
func (e *Engine) Select(p board.Position) bool {
	if !e.grid.InBounds(p) {
		return false
	}
	e.focus = &p
	return true
}

// SelectTile marks a hand slot for the next placement (tile variant).
func (e *Engine) SelectTile(i int) bool {
	if e.hand == nil || i < 0 || i >= len(*e.hand) {
		return false
	}
	e.slot = i
	return true
}

// PlaceLetter writes letter into the focused cell (free-placement variant).
// A Temporary letter at the focus is overwritten without counting against
// the cap.
func (e *Engine) PlaceLetter(letter string) bool {
	letter, ok := normalizeLetter(letter)
	if !ok || e.focus == nil {
		return false
	}
	p := *e.focus
	cell := e.grid.At(p)
	switch {
	case cell.IsPermanent():
		log.Debug().Stringer("pos", p).Msg("cannot overwrite permanent letter")
		return false
	case cell.IsTemporary():
		e.grid.PlaceTemporary(p, letter, false)
		log.Debug().Stringer("pos", p).Str("letter", letter).Msg("replaced temp letter")
		return true
	case e.capReached():
		log.Debug().Int("placed", len(e.touched)).Int("max", e.opts.MaxLetters).Msg("letter limit reached")
		return false
	}
	e.grid.PlaceTemporary(p, letter, false)
	e.touch(p)
	return true
}

// PlaceTile moves the hand tile at index onto the focused cell. blankAs is the
// letter a blank tile stands for and is ignored for regular tiles. A different
// Temporary tile already at the focus goes back to the hand.
func (e *Engine) PlaceTile(index int, blankAs string) bool {
	if e.hand == nil || e.focus == nil || index < 0 || index >= len(*e.hand) {
		return false
	}
	p := *e.focus
	cell := e.grid.At(p)
	if cell.IsPermanent() {
		log.Debug().Stringer("pos", p).Msg("cannot place tile on permanent cell")
		return false
	}
	if !cell.IsTemporary() && e.capReached() {
		return false
	}

	tile := (*e.hand)[index]
	letter := tile.Letter
	if tile.Blank {
		l, ok := normalizeLetter(blankAs)
		if !ok {
			return false
		}
		letter = l
	}

	e.hand.RemoveAt(index)
	if cell.IsTemporary() {
		e.hand.Add(e.tileAt(cell))
		e.untouch(p)
	}
	e.grid.PlaceTemporary(p, letter, tile.Blank)
	e.touch(p)
	e.slot = -1
	log.Debug().Stringer("pos", p).Str("letter", letter).Msg("placed tile")
	return true
}

// PlaceSelected places the tile chosen with SelectTile.
func (e *Engine) PlaceSelected(blankAs string) bool {
	if e.slot < 0 {
		return false
	}
	return e.PlaceTile(e.slot, blankAs)
}

// PlaceFromHand places the first hand tile showing letter (keyboard input).
// It fails when no such tile is held.
func (e *Engine) PlaceFromHand(letter string) bool {
	if e.hand == nil {
		return false
	}
	i := e.hand.IndexOf(letter)
	if i < 0 {
		log.Debug().Str("letter", letter).Msg("letter not in hand")
		return false
	}
	return e.PlaceTile(i, "")
}

// Remove withdraws the Temporary letter at p, returning its tile to the hand.
func (e *Engine) Remove(p board.Position) bool {
	if !e.grid.InBounds(p) {
		return false
	}
	cell := e.grid.At(p)
	if !cell.IsTemporary() {
		return false
	}
	e.grid.Clear(p)
	if e.hand != nil {
		e.hand.Add(e.tileAt(cell))
	}
	e.untouch(p)
	if len(e.touched) == 0 {
		e.state = Idle
	}
	return true
}

// Rollback clears every Temporary letter of this turn, returning tiles to the
// hand. It reports how many letters were withdrawn.
func (e *Engine) Rollback() int {
	n := 0
	for _, p := range e.touched {
		cell := e.grid.At(p)
		if !e.grid.Clear(p) {
			continue
		}
		if e.hand != nil {
			e.hand.Add(e.tileAt(cell))
		}
		n++
	}
	e.touched = nil
	e.slot = -1
	e.state = Idle
	return n
}

// Commit makes this turn's letters Permanent and returns their positions.
// Callers must only commit after the placement validated.
func (e *Engine) Commit() []board.Position {
	committed := make([]board.Position, 0, len(e.touched))
	for _, p := range e.touched {
		if e.grid.Commit(p) {
			committed = append(committed, p)
		}
	}
	e.touched = nil
	e.slot = -1
	e.state = Committed
	return committed
}

func (e *Engine) capReached() bool {
	return e.opts.MaxLetters > 0 && len(e.touched) >= e.opts.MaxLetters
}

func (e *Engine) touch(p board.Position) {
	if !slices.Contains(e.touched, p) {
		e.touched = append(e.touched, p)
	}
	e.state = InProgress
}

func (e *Engine) untouch(p board.Position) {
	e.touched = slices.DeleteFunc(e.touched, func(q board.Position) bool { return q == p })
}

// tileAt rebuilds the hand tile a board cell came from.
func (e *Engine) tileAt(c board.Cell) tiles.Tile {
	if c.Blank {
		return tiles.Tile{Blank: true}
	}
	t := tiles.Tile{Letter: c.Letter}
	if e.opts.Table != nil {
		t.Points = e.opts.Table.Score(c.Letter)
	}
	return t
}

// normalizeLetter accepts exactly one letter and upper-cases it.
func normalizeLetter(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) != 1 {
		return "", false
	}
	r, _ := utf8.DecodeRuneInString(s)
	if !unicode.IsLetter(r) {
		return "", false
	}
	return strings.ToUpper(s), true
}
