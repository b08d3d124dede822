// internal/match/turn.go
//
// Turn controller: submit or pass the current turn.
//
// Submit flow:
//   1. Extract every candidate word implied by the turn's placement.
//   2. Drop candidates already in the used-word list (case-insensitive).
//   3. Ask the dictionary about the rest, bounded by a timeout.
//   4. No valid word → roll the placement back; the turn does not advance.
//      Dictionary failure → state untouched, ErrDictionary returned.
//   5. Otherwise score, commit, record used words, refill the hand, advance the
//      turn and the round, and grow the word chain board on schedule.

package match

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/robalobadob/wordgames/internal/board"
	"github.com/robalobadob/wordgames/internal/dictionary"
	"github.com/robalobadob/wordgames/internal/extract"
)

// DefaultValidationTimeout bounds the dictionary call when the caller's
// context carries no deadline.
var DefaultValidationTimeout = 3 * time.Second

// Validator is the dictionary collaborator.
type Validator interface {
	Validate(ctx context.Context, words, used []string) ([]dictionary.Verdict, error)
}

// Rejection reasons reported in Result.Reason.
const (
	ReasonNothingPlaced = "no letters placed"
	ReasonIllegal       = "letters must form one line touching existing letters"
	ReasonAlreadyUsed   = "every word was already played"
	ReasonNoValidWord   = "no valid word found"
)

// Result reports the outcome of Submit.
type Result struct {
	Accepted bool     `json:"accepted"`
	Reason   string   `json:"reason,omitempty"`
	Words    []string `json:"words,omitempty"`
	Longest  string   `json:"longestValid,omitempty"`
	Points   int      `json:"points"`
	Bingo    bool     `json:"bingo,omitempty"`
	Grew     bool     `json:"grew,omitempty"`
	Finished bool     `json:"finished,omitempty"`
}

// Submit ends the current turn. A rejected placement is a Result with
// Accepted false, never an error.
func (m *Match) Submit(ctx context.Context, v Validator) (Result, error) {
	if m.Status != Playing {
		return Result{}, ErrNotPlaying
	}
	touched := m.turn.Touched()
	if len(touched) == 0 {
		return Result{Reason: ReasonNothingPlaced}, nil
	}

	cands := extract.Extract(m.Board, touched)
	if len(cands) == 0 {
		m.turn.Rollback()
		return Result{Reason: ReasonIllegal}, nil
	}
	fresh := lo.Reject(cands, func(c extract.Candidate, _ int) bool { return m.IsUsed(c.Word) })
	if len(fresh) == 0 {
		m.turn.Rollback()
		return Result{Reason: ReasonAlreadyUsed}, nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultValidationTimeout)
		defer cancel()
	}
	words := lo.Map(fresh, func(c extract.Candidate, _ int) string { return c.Word })
	verdicts, err := v.Validate(ctx, words, m.UsedWords)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrDictionary, err)
	}
	if len(verdicts) != len(fresh) {
		return Result{}, fmt.Errorf("%w: %d verdicts for %d words", ErrDictionary, len(verdicts), len(fresh))
	}

	var valid []extract.Candidate
	for i, c := range fresh {
		if verdicts[i].Valid {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		n := m.turn.Rollback()
		log.Debug().Str("room", m.Code).Strs("words", words).Int("returned", n).Msg("no valid word, placement withdrawn")
		return Result{Reason: ReasonNoValidWord}, nil
	}

	// Score before commit: multipliers only apply to Temporary cells.
	placed := m.turn.Placed()
	spans := lo.Map(valid, func(c extract.Candidate, _ int) []board.Position { return c.Positions })
	points := m.scorer.ScoreTurn(m.Board, spans, placed)
	longest, _ := dictionary.Longest(verdicts)

	player := m.Current()
	player.Score += points
	m.turn.Commit()

	played := lo.Map(valid, func(c extract.Candidate, _ int) string { return c.Word })
	m.UsedWords = append(m.UsedWords, played...)
	res := Result{
		Accepted: true,
		Words:    played,
		Longest:  longest,
		Points:   points,
		Bingo:    m.scorer.BingoBonus > 0 && placed == m.scorer.BingoSize,
	}
	m.LastMove = &Move{PlayerID: player.ID, Words: played, Points: points, Bingo: res.Bingo}
	m.Passes = 0

	log.Info().
		Str("room", m.Code).
		Str("player", player.Name).
		Strs("words", played).
		Int("points", points).
		Msg("turn accepted")

	if m.Bag != nil {
		m.Bag.Refill(&player.Hand)
		if m.Bag.Empty() && len(player.Hand) == 0 {
			m.finish()
			res.Finished = true
			return res, nil
		}
	}
	res.Grew = m.advance()
	return res, nil
}

// Pass withdraws any placement and hands the turn on without scoring. In
// Scrabble the match ends after every player passed twice in a row.
func (m *Match) Pass() error {
	if m.Status != Playing {
		return ErrNotPlaying
	}
	m.turn.Rollback()
	m.Passes++
	if m.Variant == Scrabble && m.Passes >= 2*len(m.Players) {
		m.finish()
		return nil
	}
	m.advance()
	return nil
}

// advance moves to the next player, bumping the round on wrap-around and
// growing the word chain board every RoundsPerIncrement rounds. It reports
// whether the board grew.
func (m *Match) advance() bool {
	m.CurrentPlayer = (m.CurrentPlayer + 1) % len(m.Players)
	grew := false
	if m.CurrentPlayer == 0 {
		m.Round++
		n := m.Settings.RoundsPerIncrement
		room := m.Board.Rows()+2*m.Settings.GrowthStep <= MaxBoardSize
		if m.Variant == WordChain && n > 0 && (m.Round-1)%n == 0 && room {
			m.Board.GrowAround(m.Settings.GrowthStep)
			m.Settings.BoardSize = m.Board.Rows()
			m.turn.SetGrid(m.Board)
			grew = true
			log.Info().Str("room", m.Code).Int("round", m.Round).Int("size", m.Board.Rows()).Msg("board grown")
		}
	}
	m.turn.Begin(m.handOf(m.CurrentPlayer))
	m.touch()
	return grew
}

func (m *Match) finish() {
	m.Status = Finished
	m.touch()
	log.Info().Str("room", m.Code).Msg("match finished")
}

// Leader returns the player with the highest score; the earliest wins ties.
func (m *Match) Leader() *Player {
	if len(m.Players) == 0 {
		return nil
	}
	return lo.MaxBy(m.Players, func(a, b *Player) bool { return a.Score > b.Score })
}
