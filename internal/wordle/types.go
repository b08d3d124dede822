// internal/wordle/types.go
//
// Core type definitions for the Wordle engine.
// Defines:
//   - Mark: per-letter result of a guess (hit/present/miss).
//   - Game: state for a single in-progress or finished game.
//   - Lexicon: the word membership check guesses go through.

package wordle

// Mark is the evaluation of one letter of a guess.
type Mark string

const (
	MarkHit     Mark = "hit"     // right letter, right place
	MarkPresent Mark = "present" // in the answer, elsewhere
	MarkMiss    Mark = "miss"
)

// State is the coarse game state reported to clients.
type State string

const (
	StatePlaying State = "playing"
	StateWon     State = "won"
	StateLost    State = "lost"
)

// Lexicon reports whether a guess is an accepted word. *dictionary.Dictionary
// satisfies it.
type Lexicon interface {
	Contains(word string) bool
}

// Game holds the state of one Wordle session.
type Game struct {
	ID       string   `json:"id"`
	Answer   string   `json:"-"` // lower case; never sent to clients
	Daily    string   `json:"daily,omitempty"`
	Rows     int      `json:"rows"`
	Cols     int      `json:"cols"`
	Guesses  []string `json:"guesses"`
	Marks    [][]Mark `json:"marks"`
	Finished bool     `json:"finished"`
	Won      bool     `json:"won"`
}
