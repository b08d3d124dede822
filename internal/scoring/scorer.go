// internal/scoring/scorer.go
//
// Word and turn scoring with positional multipliers.
//
// Rules:
//   - Every letter contributes its base score (blank tiles score zero).
//   - Only cells placed this turn (still Temporary at scoring time) apply
//     their multiplier: DL/TL scale the letter, DW/TW/STAR scale the word.
//   - Word score = sum(letter scores) x product(word multipliers).
//   - The bingo bonus is added once per turn when exactly BingoSize tiles
//     were placed.
//
// Scoring must run before Commit; afterwards every cell reads as Permanent.

package scoring

import (
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordgames/internal/board"
	"github.com/robalobadob/wordgames/internal/tiles"
)

const (
	DefaultBingoSize  = tiles.HandSize
	DefaultBingoBonus = 50
)

// Scorer computes points. The letter table is injected once and never mutated.
type Scorer struct {
	Table      *tiles.LetterTable
	BingoSize  int // tiles placed in one turn that earn the bonus
	BingoBonus int // 0 disables the bonus
}

// New returns a Scorer with the standard +50 bonus for playing seven tiles.
func New(table *tiles.LetterTable) *Scorer {
	return &Scorer{Table: table, BingoSize: DefaultBingoSize, BingoBonus: DefaultBingoBonus}
}

// ScoreWord scores the word spanning positions on g.
func (s *Scorer) ScoreWord(g *board.Grid, positions []board.Position) int {
	sum, factor := 0, 1
	for _, p := range positions {
		c := g.At(p)
		if c.IsEmpty() {
			continue
		}
		letter := 0
		if !c.Blank {
			letter = s.Table.Score(c.Letter)
		}
		if c.IsTemporary() {
			letter *= c.Multiplier.LetterFactor()
			factor *= c.Multiplier.WordFactor()
		}
		sum += letter
	}
	return sum * factor
}

// ScoreTurn sums the scores of every validated word and adds the bingo bonus
// when placed equals BingoSize.
func (s *Scorer) ScoreTurn(g *board.Grid, words [][]board.Position, placed int) int {
	total := 0
	for _, w := range words {
		total += s.ScoreWord(g, w)
	}
	if s.BingoBonus > 0 && placed == s.BingoSize {
		log.Debug().Int("bonus", s.BingoBonus).Msg("bingo: all tiles used")
		total += s.BingoBonus
	}
	return total
}
