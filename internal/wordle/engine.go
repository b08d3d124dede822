// internal/wordle/engine.go
//
// Core game engine for a single Wordle session.
// Responsibilities:
//   - Create new games with fixed dimensions (6x5).
//   - Validate and apply guesses (length, alphabetic, lexicon).
//   - Score guesses using the classic two-pass Wordle algorithm.
//   - Track state transitions: playing → won/lost.

package wordle

import (
	"encoding/hex"
	"errors"
	"strings"

	"lukechampine.com/frand"
)

const (
	DefaultRows = 6
	DefaultCols = 5
)

var (
	ErrFinished     = errors.New("game finished")
	ErrInvalidGuess = errors.New("invalid guess")
	ErrUnknownWord  = errors.New("not in word list")
)

// New constructs a game for answer.
func New(answer string) *Game {
	return &Game{
		ID:      randomID(),
		Answer:  strings.ToLower(strings.TrimSpace(answer)),
		Rows:    DefaultRows,
		Cols:    DefaultCols,
		Guesses: []string{},
		Marks:   [][]Mark{},
	}
}

// ApplyGuess validates and scores a guess, mutating the game state.
//
// Validation rules:
//   - Game must not be finished.
//   - Guess must be exactly g.Cols letters a–z (any case).
//   - Guess must be in lex (nil accepts any well-formed guess).
//
// All tiles Hit → won. Otherwise reaching g.Rows guesses → lost.
func (g *Game) ApplyGuess(guess string, lex Lexicon) ([]Mark, State, error) {
	if g.Finished {
		return nil, g.State(), ErrFinished
	}
	guess = strings.ToLower(strings.TrimSpace(guess))
	if len(guess) != g.Cols || !isAlpha(guess) {
		return nil, g.State(), ErrInvalidGuess
	}
	if lex != nil && !lex.Contains(guess) {
		return nil, g.State(), ErrUnknownWord
	}

	marks := Score(g.Answer, guess)
	g.Guesses = append(g.Guesses, guess)
	g.Marks = append(g.Marks, marks)

	if allHit(marks) {
		g.Finished, g.Won = true, true
	} else if len(g.Guesses) >= g.Rows {
		g.Finished = true
	}
	return marks, g.State(), nil
}

// State reports playing, won or lost.
func (g *Game) State() State {
	if g.Finished {
		if g.Won {
			return StateWon
		}
		return StateLost
	}
	return StatePlaying
}

// Score implements the two-pass Wordle scoring.
//
// Pass 1 marks exact matches and counts the remaining answer letters.
// Pass 2 marks a non-hit letter Present while unmatched copies remain.
// Repeated letters in guess or answer are therefore never over-counted.
func Score(answer, guess string) []Mark {
	n := len(guess)
	res := make([]Mark, n)
	if len(answer) != n {
		for i := range res {
			res[i] = MarkMiss
		}
		return res
	}

	var counts [26]int
	for i := 0; i < n; i++ {
		if guess[i] == answer[i] {
			res[i] = MarkHit
		} else if j := idx(answer[i]); j >= 0 {
			counts[j]++
		}
	}

	for i := 0; i < n; i++ {
		if res[i] == MarkHit {
			continue
		}
		j := idx(guess[i])
		if j >= 0 && counts[j] > 0 {
			res[i] = MarkPresent
			counts[j]--
		} else {
			res[i] = MarkMiss
		}
	}
	return res
}

// idx maps a-z to 0..25 and anything else to -1.
func idx(b byte) int {
	if b < 'a' || b > 'z' {
		return -1
	}
	return int(b - 'a')
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

func allHit(m []Mark) bool {
	for _, x := range m {
		if x != MarkHit {
			return false
		}
	}
	return true
}

// randomID returns a compact 16-hex-char identifier.
func randomID() string {
	return hex.EncodeToString(frand.Bytes(8))
}
