// internal/match/match.go
//
// Match (room) state for the two board variants.
//
// Responsibilities:
//   - Own the board, the bag (tile variant), the ordered players, the current
//     player, the round counter and the used-word list.
//   - Lifecycle: waiting → playing (Start) → finished.
//   - Bind the turn-scoped placement engine and the scorer to that state.
//
// Turn order is insertion order. A Match is not safe for concurrent use; the
// room service serializes every mutation of one match.

package match

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordgames/internal/board"
	"github.com/robalobadob/wordgames/internal/dictionary"
	"github.com/robalobadob/wordgames/internal/placement"
	"github.com/robalobadob/wordgames/internal/scoring"
	"github.com/robalobadob/wordgames/internal/tiles"
)

// Variant selects the rule set.
type Variant string

const (
	Scrabble  Variant = "scrabble"  // tile drafting, fixed 15x15 premium board
	WordChain Variant = "wordchain" // free letters, seeded board that grows
)

func (v Variant) Valid() bool { return v == Scrabble || v == WordChain }

// Status is the match lifecycle stage.
type Status string

const (
	Waiting  Status = "waiting"
	Playing  Status = "playing"
	Finished Status = "finished"
)

// MaxPlayers bounds the room size.
const MaxPlayers = 4

var (
	ErrNotPlaying    = errors.New("match: not in progress")
	ErrNotWaiting    = errors.New("match: already started")
	ErrNotYourTurn   = errors.New("match: not your turn")
	ErrUnknownPlayer = errors.New("match: unknown player")
	ErrDuplicateID   = errors.New("match: player already joined")
	ErrRoomFull      = errors.New("match: room is full")
	ErrNoPlayers     = errors.New("match: no players")
	// ErrDictionary wraps a failure of the dictionary collaborator. It is never
	// reported as "word invalid".
	ErrDictionary = errors.New("match: dictionary unavailable")
)

// Settings is the board configuration surface.
type Settings struct {
	BoardSize          int `json:"boardSize"`
	MaxLettersPerTurn  int `json:"maxLettersPerTurn"`
	RoundsPerIncrement int `json:"roundsPerIncrement"` // word chain: grow every N rounds, 0 disables
	GrowthStep         int `json:"growthStep"`         // cells added on every side per growth
}

// Upper bounds for client-chosen geometry. A word chain board stops growing
// once another growth step would exceed MaxBoardSize.
const (
	MaxBoardSize  = 51
	MaxGrowthStep = 5
)

// DefaultSettings returns the settings a new room of variant v starts with.
func DefaultSettings(v Variant) Settings {
	if v == Scrabble {
		return Settings{BoardSize: board.StandardSize, MaxLettersPerTurn: tiles.HandSize}
	}
	return Settings{BoardSize: 15, MaxLettersPerTurn: 7, RoundsPerIncrement: 3, GrowthStep: 1}
}

// normalize fills zero values from the defaults and pins the fixed Scrabble
// geometry.
func (s Settings) normalize(v Variant) Settings {
	def := DefaultSettings(v)
	if v == Scrabble {
		return def
	}
	if s.BoardSize < 5 {
		s.BoardSize = def.BoardSize
	}
	s.BoardSize = min(s.BoardSize, MaxBoardSize)
	if s.MaxLettersPerTurn <= 0 {
		s.MaxLettersPerTurn = def.MaxLettersPerTurn
	}
	s.MaxLettersPerTurn = min(s.MaxLettersPerTurn, MaxBoardSize)
	if s.RoundsPerIncrement < 0 {
		s.RoundsPerIncrement = 0
	}
	if s.GrowthStep <= 0 {
		s.GrowthStep = def.GrowthStep
	}
	s.GrowthStep = min(s.GrowthStep, MaxGrowthStep)
	return s
}

// Player is one participant.
type Player struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Score   int        `json:"score"`
	Hand    tiles.Hand `json:"tiles,omitempty"`
	IsLocal bool       `json:"isLocal"`
}

// Move summarizes the last accepted turn for clients.
type Move struct {
	PlayerID string   `json:"playerId"`
	Words    []string `json:"words"`
	Points   int      `json:"points"`
	Bingo    bool     `json:"bingo,omitempty"`
}

// Match is the authoritative state of one room.
type Match struct {
	Code          string       `json:"roomCode"`
	Variant       Variant      `json:"variant"`
	HostID        string       `json:"hostId"`
	Settings      Settings     `json:"gameSettings"`
	Board         *board.Grid  `json:"board"`
	Bag           *tiles.Bag   `json:"bag,omitempty"`
	Players       []*Player    `json:"players"`
	CurrentPlayer int          `json:"currentPlayerIndex"`
	Round         int          `json:"currentRound"`
	UsedWords     []string     `json:"usedWords"`
	Status        Status       `json:"status"`
	StarterWord   string       `json:"starterWord,omitempty"`
	Passes        int          `json:"consecutivePasses"`
	LastMove      *Move        `json:"lastMove,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`

	table  *tiles.LetterTable
	scorer *scoring.Scorer
	turn   *placement.Engine
}

// New creates a waiting match. starter seeds the word chain board and is
// ignored for Scrabble.
func New(code string, v Variant, s Settings, table *tiles.LetterTable, starter string) *Match {
	s = s.normalize(v)
	now := time.Now().UTC()
	m := &Match{
		Code:      code,
		Variant:   v,
		Settings:  s,
		Round:     1,
		UsedWords: []string{},
		Status:    Waiting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch v {
	case Scrabble:
		m.Board = board.NewStandard()
		m.Bag = tiles.NewBag(table, nil)
	default:
		m.Board, _ = board.NewSeeded(s.BoardSize, starter)
		if starter != "" && utf8.RuneCountInString(starter) <= s.BoardSize {
			m.StarterWord = dictionary.Normalize(starter)
			m.UsedWords = append(m.UsedWords, m.StarterWord)
		}
	}
	m.bind(table)
	log.Debug().Str("room", code).Str("variant", string(v)).Str("starter", m.StarterWord).Msg("match created")
	return m
}

// Decode restores a match from its JSON form and rebinds the letter table.
func Decode(data []byte, table *tiles.LetterTable) (*Match, error) {
	var m Match
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode match: %w", err)
	}
	if m.Board == nil {
		return nil, fmt.Errorf("decode match %s: missing board", m.Code)
	}
	if slices.Contains(m.Players, nil) {
		return nil, fmt.Errorf("decode match %s: empty player entry", m.Code)
	}
	if m.UsedWords == nil {
		m.UsedWords = []string{}
	}
	m.Settings = m.Settings.normalize(m.Variant)
	if m.CurrentPlayer < 0 || m.CurrentPlayer >= len(m.Players) {
		m.CurrentPlayer = 0
	}
	m.bind(table)
	return &m, nil
}

// Encode returns the JSON form stored and broadcast for m.
func (m *Match) Encode() ([]byte, error) { return json.Marshal(m) }

func (m *Match) bind(table *tiles.LetterTable) {
	m.table = table
	m.scorer = scoring.New(table)
	if m.Variant != Scrabble {
		m.scorer.BingoBonus = 0
	}
	m.turn = placement.New(m.Board, placement.Options{MaxLetters: m.Settings.MaxLettersPerTurn, Table: table})
	if m.Status == Playing {
		m.turn.Begin(m.handOf(m.CurrentPlayer))
	}
}

// Rebind reattaches the letter table and the turn engine after the match
// value was replaced wholesale.
func (m *Match) Rebind(table *tiles.LetterTable) { m.bind(table) }

// Table returns the letter table the match scores with.
func (m *Match) Table() *tiles.LetterTable { return m.table }

// Turn exposes the placement engine of the current turn.
func (m *Match) Turn() *placement.Engine { return m.turn }

// Current returns the player whose turn it is, or nil.
func (m *Match) Current() *Player {
	if m.CurrentPlayer < 0 || m.CurrentPlayer >= len(m.Players) {
		return nil
	}
	return m.Players[m.CurrentPlayer]
}

// Player returns the player with id.
func (m *Match) Player(id string) (*Player, bool) {
	i := m.indexOf(id)
	if i < 0 {
		return nil, false
	}
	return m.Players[i], true
}

func (m *Match) indexOf(id string) int {
	return slices.IndexFunc(m.Players, func(p *Player) bool { return p.ID == id })
}

func (m *Match) handOf(i int) *tiles.Hand {
	if m.Variant != Scrabble || i < 0 || i >= len(m.Players) {
		return nil
	}
	return &m.Players[i].Hand
}

// AddPlayer appends p to the turn order. The first player becomes host.
// Joining a running Scrabble match deals a hand.
func (m *Match) AddPlayer(p *Player) error {
	if m.Status == Finished {
		return ErrNotPlaying
	}
	if m.indexOf(p.ID) >= 0 {
		return ErrDuplicateID
	}
	if len(m.Players) >= MaxPlayers {
		return ErrRoomFull
	}
	m.Players = append(m.Players, p)
	if m.HostID == "" {
		m.HostID = p.ID
	}
	if m.Status == Playing && m.Bag != nil {
		m.Bag.Refill(&p.Hand)
	}
	m.touch()
	return nil
}

// RemovePlayer drops a player. An in-progress placement of the leaving
// player is withdrawn and their tiles go back to the bag. The match finishes
// when nobody is left.
func (m *Match) RemovePlayer(id string) error {
	i := m.indexOf(id)
	if i < 0 {
		return ErrUnknownPlayer
	}
	if m.Status == Playing && i == m.CurrentPlayer {
		m.turn.Rollback()
	}
	p := m.Players[i]
	if m.Bag != nil && len(p.Hand) > 0 {
		m.Bag.Return(nil, p.Hand...)
		p.Hand = nil
	}
	m.Players = slices.Delete(m.Players, i, i+1)

	switch {
	case len(m.Players) == 0:
		m.Status = Finished
		m.CurrentPlayer = 0
	case i < m.CurrentPlayer:
		m.CurrentPlayer--
	case m.CurrentPlayer >= len(m.Players):
		m.CurrentPlayer = 0
	}
	if m.HostID == id && len(m.Players) > 0 {
		m.HostID = m.Players[0].ID
	}
	if m.Status == Playing {
		m.turn.Begin(m.handOf(m.CurrentPlayer))
	}
	m.touch()
	return nil
}

// Start deals hands (Scrabble) and opens the first turn.
func (m *Match) Start() error {
	if m.Status != Waiting {
		return ErrNotWaiting
	}
	if len(m.Players) == 0 {
		return ErrNoPlayers
	}
	if m.Bag != nil {
		for _, p := range m.Players {
			m.Bag.Refill(&p.Hand)
		}
	}
	m.Status = Playing
	m.CurrentPlayer = 0
	m.Round = 1
	m.turn.Begin(m.handOf(0))
	m.touch()
	log.Info().Str("room", m.Code).Int("players", len(m.Players)).Msg("match started")
	return nil
}

// CheckTurn reports whether playerID may act now.
func (m *Match) CheckTurn(playerID string) error {
	if m.Status != Playing {
		return ErrNotPlaying
	}
	i := m.indexOf(playerID)
	if i < 0 {
		return ErrUnknownPlayer
	}
	if i != m.CurrentPlayer {
		return ErrNotYourTurn
	}
	return nil
}

// IsUsed reports whether w was already played, ignoring case.
func (m *Match) IsUsed(w string) bool {
	w = dictionary.Normalize(w)
	return slices.ContainsFunc(m.UsedWords, func(u string) bool { return dictionary.Normalize(u) == w })
}

func (m *Match) touch() { m.UpdatedAt = time.Now().UTC() }
