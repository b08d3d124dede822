// internal/rooms/service.go
//
// Room service: the single authoritative owner of every live match.
//
// Responsibilities:
//   - Create and join rooms, issuing per-player session tokens.
//   - Serialize all mutations of one room behind a per-room lock.
//   - Load rooms from the store on a cache miss; persist after every mutation.
//   - Broadcast room-updated / game-state-updated after every mutation.
//   - Keep serving from memory when the configured store is unavailable.
//
// Callers authenticate with a session token; the player ID it carries is the
// only identity the service trusts for turn ownership.

package rooms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"lukechampine.com/frand"

	"github.com/robalobadob/wordgames/internal/board"
	"github.com/robalobadob/wordgames/internal/dictionary"
	"github.com/robalobadob/wordgames/internal/match"
	"github.com/robalobadob/wordgames/internal/realtime"
	"github.com/robalobadob/wordgames/internal/session"
	"github.com/robalobadob/wordgames/internal/store"
	"github.com/robalobadob/wordgames/internal/tiles"
)

var (
	ErrNotHost     = errors.New("rooms: only the host can do that")
	ErrBadVariant  = errors.New("rooms: unknown game variant")
	ErrMissingName = errors.New("rooms: player name required")
	ErrCodeSpace   = errors.New("rooms: could not allocate a room code")
	ErrBadState    = errors.New("rooms: malformed game state")
)

// CodeLength and CodeAlphabet shape room codes.
const (
	CodeLength   = 6
	CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeAttempts = 16
)

// DefaultStarters seed new word chain boards.
var DefaultStarters = []string{"GAME", "WORD", "PLAY", "START", "BEGIN", "CHESS", "MAGIC"}

// Lexicon is the dictionary the service validates turns and picks starter
// words with.
type Lexicon interface {
	match.Validator
	Contains(w string) bool
}

// Options tunes a Service.
type Options struct {
	ValidationTimeout time.Duration
	IdleTTL           time.Duration // cached rooms untouched this long are evicted
	Starters          []string
	Defaults          map[match.Variant]match.Settings
}

type entry struct {
	mu   sync.Mutex
	m    *match.Match
	seen time.Time
	gone bool // evicted from the cache; acquire must look again
}

// Service owns live rooms.
type Service struct {
	store  store.RoomStore
	mem    *store.Memory
	backed bool // store is a real backend, mem only a fallback
	lex    Lexicon
	table  *tiles.LetterTable
	bc     realtime.Broadcaster
	tokens *session.Issuer
	opts   Options

	mu    sync.Mutex
	rooms map[string]*entry
}

// New wires a Service. st may be nil for memory-only operation; bc may be nil
// when nobody listens.
func New(st store.RoomStore, lex Lexicon, table *tiles.LetterTable, bc realtime.Broadcaster, tokens *session.Issuer, o Options) *Service {
	if o.ValidationTimeout <= 0 {
		o.ValidationTimeout = match.DefaultValidationTimeout
	}
	if o.IdleTTL <= 0 {
		o.IdleTTL = store.DefaultTTL
	}
	if len(o.Starters) == 0 {
		o.Starters = DefaultStarters
	}
	mem := store.NewMemory(o.IdleTTL)
	backed := st != nil
	if !backed {
		st = mem
	}
	return &Service{
		store:  st,
		mem:    mem,
		backed: backed,
		lex:    lex,
		table:  table,
		bc:     bc,
		tokens: tokens,
		opts:   o,
		rooms:  make(map[string]*entry),
	}
}

// Ticket is what a player receives on create or join.
type Ticket struct {
	RoomCode  string          `json:"roomCode"`
	PlayerID  string          `json:"playerId"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Room      json.RawMessage `json:"room"`
}

// CreateRequest opens a room.
type CreateRequest struct {
	HostID   string          `json:"hostId"`
	HostName string          `json:"hostName"`
	Variant  match.Variant   `json:"variant"`
	Settings *match.Settings `json:"gameSettings"`
	Starter  string          `json:"starterWord"`
}

// Create opens a room with the host as its first player.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Ticket, error) {
	if req.Variant == "" {
		req.Variant = match.WordChain
	}
	if !req.Variant.Valid() {
		return Ticket{}, ErrBadVariant
	}
	name := strings.TrimSpace(req.HostName)
	if name == "" {
		return Ticket{}, ErrMissingName
	}
	settings := s.defaults(req.Variant)
	if req.Settings != nil {
		settings = *req.Settings
	}
	starter := ""
	if req.Variant == match.WordChain {
		starter = s.pickStarter(req.Starter, settings.BoardSize)
	}
	host := &match.Player{ID: req.HostID, Name: name}
	if host.ID == "" {
		host.ID = uuid.NewString()
	}

	for attempt := 0; attempt < codeAttempts; attempt++ {
		code := NewCode()
		m := match.New(code, req.Variant, settings, s.table, starter)
		if err := m.AddPlayer(host); err != nil {
			return Ticket{}, err
		}
		data, err := m.Encode()
		if err != nil {
			return Ticket{}, err
		}
		err = s.create(ctx, code, data)
		if errors.Is(err, store.ErrExists) {
			log.Debug().Str("room", code).Msg("room code collision, retrying")
			continue
		}
		if err != nil {
			return Ticket{}, err
		}

		s.mu.Lock()
		s.rooms[code] = &entry{m: m, seen: time.Now()}
		s.mu.Unlock()
		log.Info().Str("room", code).Str("variant", string(req.Variant)).Str("host", name).Msg("room created")
		return s.ticket(m, host, data)
	}
	return Ticket{}, ErrCodeSpace
}

// Join adds a player to a room. Joining again with a known player ID reissues
// the ticket without adding a seat, but only for a caller holding a valid
// token of that player in this room; anyone else gets match.ErrDuplicateID.
func (s *Service) Join(ctx context.Context, code, playerID, name, token string) (Ticket, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Ticket{}, ErrMissingName
	}
	var t Ticket
	_, err := s.mutate(ctx, code, realtime.EventRoomUpdated, func(m *match.Match) error {
		if p, ok := m.Player(playerID); ok && playerID != "" {
			if !s.owns(token, m.Code, p.ID) {
				return match.ErrDuplicateID
			}
			var err error
			t, err = s.ticket(m, p, nil)
			return err
		}
		p := &match.Player{ID: playerID, Name: name}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if err := m.AddPlayer(p); err != nil {
			return err
		}
		log.Info().Str("room", m.Code).Str("player", name).Int("players", len(m.Players)).Msg("player joined")
		var err error
		t, err = s.ticket(m, p, nil)
		return err
	})
	return t, err
}

// Get returns the encoded state of a room.
func (s *Service) Get(ctx context.Context, code string) (json.RawMessage, error) {
	e, err := s.acquire(ctx, code)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	return e.m.Encode()
}

// Update is returned by every in-game action.
type Update struct {
	OK     bool            `json:"ok"`
	Reason string          `json:"reason,omitempty"`
	Result *match.Result   `json:"result,omitempty"`
	Room   json.RawMessage `json:"room"`
}

// Start begins the match. Only the host may start it.
func (s *Service) Start(ctx context.Context, code, playerID string) (Update, error) {
	return s.act(ctx, code, func(m *match.Match) (Update, error) {
		if m.HostID != playerID {
			return Update{}, ErrNotHost
		}
		return Update{OK: true}, m.Start()
	})
}

// Position addresses a board cell in requests.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Select focuses a cell or, with Tile set, a hand slot.
type Select struct {
	Position *Position `json:"position,omitempty"`
	Tile     *int      `json:"tileIndex,omitempty"`
}

// Select changes the current player's focus. It never touches the board.
func (s *Service) Select(ctx context.Context, code, playerID string, req Select) (Update, error) {
	return s.turn(ctx, code, playerID, func(m *match.Match) (Update, error) {
		ok := true
		if req.Position != nil {
			ok = m.Turn().Select(cell(*req.Position))
		}
		if ok && req.Tile != nil {
			ok = m.Turn().SelectTile(*req.Tile)
		}
		return verdict(ok, "selection out of range"), nil
	})
}

// Place puts a letter on the board. The word chain variant uses Letter; the
// tile variant uses Tile (hand index) or Letter (first matching tile), with
// BlankAs naming the letter a blank stands for.
type Place struct {
	Position *Position `json:"position,omitempty"`
	Letter   string    `json:"letter,omitempty"`
	Tile     *int      `json:"tileIndex,omitempty"`
	BlankAs  string    `json:"blankAs,omitempty"`
}

func (s *Service) Place(ctx context.Context, code, playerID string, req Place) (Update, error) {
	return s.turn(ctx, code, playerID, func(m *match.Match) (Update, error) {
		e := m.Turn()
		if req.Position != nil && !e.Select(cell(*req.Position)) {
			return verdict(false, "position out of range"), nil
		}
		var ok bool
		switch {
		case m.Variant == match.WordChain:
			ok = e.PlaceLetter(req.Letter)
		case req.Tile != nil:
			ok = e.PlaceTile(*req.Tile, req.BlankAs)
		case req.Letter != "":
			ok = e.PlaceFromHand(req.Letter)
		default:
			ok = e.PlaceSelected(req.BlankAs)
		}
		return verdict(ok, "letter cannot be placed there"), nil
	})
}

// Remove withdraws one temporary letter.
func (s *Service) Remove(ctx context.Context, code, playerID string, p Position) (Update, error) {
	return s.turn(ctx, code, playerID, func(m *match.Match) (Update, error) {
		return verdict(m.Turn().Remove(cell(p)), "no temporary letter there"), nil
	})
}

// Clear withdraws every temporary letter of the turn.
func (s *Service) Clear(ctx context.Context, code, playerID string) (Update, error) {
	return s.turn(ctx, code, playerID, func(m *match.Match) (Update, error) {
		m.Turn().Rollback()
		return Update{OK: true}, nil
	})
}

// Submit validates and scores the current placement.
func (s *Service) Submit(ctx context.Context, code, playerID string) (Update, error) {
	return s.turn(ctx, code, playerID, func(m *match.Match) (Update, error) {
		vctx, cancel := context.WithTimeout(ctx, s.opts.ValidationTimeout)
		defer cancel()
		res, err := m.Submit(vctx, s.lex)
		if err != nil {
			return Update{}, err
		}
		return Update{OK: res.Accepted, Reason: res.Reason, Result: &res}, nil
	})
}

// Pass ends the turn without scoring.
func (s *Service) Pass(ctx context.Context, code, playerID string) (Update, error) {
	return s.turn(ctx, code, playerID, func(m *match.Match) (Update, error) {
		return Update{OK: true}, m.Pass()
	})
}

// Leave removes the player from the room. The room is deleted once empty.
func (s *Service) Leave(ctx context.Context, code, playerID string) (Update, error) {
	data, err := s.mutate(ctx, code, realtime.EventRoomUpdated, func(m *match.Match) error {
		if err := m.RemovePlayer(playerID); err != nil {
			return err
		}
		log.Info().Str("room", m.Code).Str("player", playerID).Int("players", len(m.Players)).Msg("player left")
		return nil
	})
	if err != nil {
		return Update{}, err
	}
	return Update{OK: true, Room: data}, nil
}

// ReplaceState overwrites the whole match with a client-supplied snapshot.
// Concurrent replacements resolve last write wins. The room code, variant,
// host and player list are kept from the server copy; a turn index outside
// the player list falls back to the first player.
func (s *Service) ReplaceState(ctx context.Context, code, playerID string, state json.RawMessage) (Update, error) {
	return s.act(ctx, code, func(m *match.Match) (Update, error) {
		if _, ok := m.Player(playerID); !ok {
			return Update{}, match.ErrUnknownPlayer
		}
		next, err := match.Decode(state, s.table)
		if err != nil {
			return Update{}, fmt.Errorf("%w: %w", ErrBadState, err)
		}
		next.Code, next.Variant, next.HostID = m.Code, m.Variant, m.HostID
		next.Players = m.Players
		if next.CurrentPlayer < 0 || next.CurrentPlayer >= len(next.Players) {
			next.CurrentPlayer = 0
		}
		next.CreatedAt = m.CreatedAt
		*m = *next
		m.Rebind(s.table)
		return Update{OK: true}, nil
	})
}

// Claims verifies a session token and returns its claims.
func (s *Service) Claims(token string) (*session.Claims, error) {
	return s.tokens.Parse(token)
}

// owns reports whether token was issued to playerID in room code.
func (s *Service) owns(token, code, playerID string) bool {
	if token == "" {
		return false
	}
	c, err := s.tokens.Parse(token)
	return err == nil && c.RoomCode == code && c.PlayerID == playerID
}

// Sweep evicts cached rooms that have been idle longer than IdleTTL. It
// implements store.Sweeper.
func (s *Service) Sweep(context.Context) (int, error) {
	cutoff := time.Now().Add(-s.opts.IdleTTL)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for code, e := range s.rooms {
		if e.mu.TryLock() {
			if e.seen.Before(cutoff) {
				e.gone = true
				delete(s.rooms, code)
				n++
			}
			e.mu.Unlock()
		}
	}
	n2, _ := s.mem.Sweep(context.Background())
	return n + n2, nil
}

// Cached reports how many rooms are held in memory.
func (s *Service) Cached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// ---- internals ----

func (s *Service) defaults(v match.Variant) match.Settings {
	if d, ok := s.opts.Defaults[v]; ok {
		return d
	}
	return match.DefaultSettings(v)
}

func (s *Service) pickStarter(requested string, size int) string {
	if w := dictionary.Normalize(requested); w != "" && utf8.RuneCountInString(w) <= size && s.lex.Contains(w) {
		return w
	}
	pool := lo.Filter(s.opts.Starters, func(w string, _ int) bool {
		return utf8.RuneCountInString(w) <= size && s.lex.Contains(w)
	})
	if len(pool) == 0 {
		pool = s.opts.Starters
	}
	return pool[frand.Intn(len(pool))]
}

// NewCode returns a random room code.
func NewCode() string {
	b := make([]byte, CodeLength)
	for i := range b {
		b[i] = CodeAlphabet[frand.Intn(len(CodeAlphabet))]
	}
	return string(b)
}

// NormalizeCode upper-cases and trims a user-supplied code.
func NormalizeCode(code string) string { return strings.ToUpper(strings.TrimSpace(code)) }

func (s *Service) ticket(m *match.Match, p *match.Player, data []byte) (Ticket, error) {
	tok, exp, err := s.tokens.Sign(m.Code, p.ID, p.Name)
	if err != nil {
		return Ticket{}, err
	}
	if data == nil {
		if data, err = m.Encode(); err != nil {
			return Ticket{}, err
		}
	}
	return Ticket{RoomCode: m.Code, PlayerID: p.ID, Token: tok, ExpiresAt: exp, Room: data}, nil
}

// turn runs fn for the player whose turn it is.
func (s *Service) turn(ctx context.Context, code, playerID string, fn func(m *match.Match) (Update, error)) (Update, error) {
	return s.act(ctx, code, func(m *match.Match) (Update, error) {
		if err := m.CheckTurn(playerID); err != nil {
			return Update{}, err
		}
		return fn(m)
	})
}

// act runs fn under the room lock, then persists and broadcasts the new state
// and attaches it to the returned Update.
func (s *Service) act(ctx context.Context, code string, fn func(m *match.Match) (Update, error)) (Update, error) {
	var up Update
	data, err := s.mutate(ctx, code, realtime.EventGameStateUpdated, func(m *match.Match) error {
		var err error
		up, err = fn(m)
		return err
	})
	if err != nil {
		return Update{}, err
	}
	up.Room = data
	return up, nil
}

// mutate locks the room, applies fn and, on success, persists the result and
// broadcasts event. It returns the encoded state. A failing fn leaves the
// persisted state untouched.
func (s *Service) mutate(ctx context.Context, code, event string, fn func(m *match.Match) error) ([]byte, error) {
	e, err := s.acquire(ctx, code)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	if err := fn(e.m); err != nil {
		return nil, err
	}
	e.seen = time.Now()
	data, err := e.m.Encode()
	if err != nil {
		return nil, err
	}
	if len(e.m.Players) == 0 {
		e.gone = true
		s.drop(ctx, e.m.Code)
	} else {
		s.save(ctx, e.m.Code, data)
	}
	s.broadcast(e.m, event, data)
	return data, nil
}

// acquire returns the locked entry for code, loading it from the store on a
// cache miss.
func (s *Service) acquire(ctx context.Context, code string) (*entry, error) {
	code = NormalizeCode(code)
	s.mu.Lock()
	e, ok := s.rooms[code]
	if !ok {
		e = &entry{}
		s.rooms[code] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	if e.gone {
		e.mu.Unlock()
		return s.acquire(ctx, code)
	}
	if e.m != nil {
		return e, nil
	}
	data, err := s.load(ctx, code)
	if err == nil {
		e.m, err = match.Decode(data, s.table)
	}
	if err != nil {
		e.gone = true
		s.mu.Lock()
		if s.rooms[code] == e {
			delete(s.rooms, code)
		}
		s.mu.Unlock()
		e.mu.Unlock()
		return nil, err
	}
	e.seen = time.Now()
	return e, nil
}

func (s *Service) broadcast(m *match.Match, event string, data []byte) {
	if s.bc == nil {
		return
	}
	state := json.RawMessage(data)
	switch event {
	case realtime.EventRoomUpdated:
		s.bc.Broadcast(m.Code, event, map[string]any{"players": m.Players, "gameState": state})
	default:
		s.bc.Broadcast(m.Code, event, map[string]any{"gameState": state})
	}
}

// Store access with memory fallback. The in-process cache stays authoritative
// while the store is down; writes land in memory until it recovers.

func (s *Service) create(ctx context.Context, code string, data []byte) error {
	err := s.store.Create(ctx, code, data)
	if s.backed && errors.Is(err, store.ErrUnavailable) {
		log.Warn().Err(err).Str("room", code).Msg("room store unavailable, keeping room in memory")
		return s.mem.Create(ctx, code, data)
	}
	return err
}

func (s *Service) load(ctx context.Context, code string) ([]byte, error) {
	data, err := s.store.Load(ctx, code)
	if err == nil || !s.backed {
		return data, err
	}
	if errors.Is(err, store.ErrUnavailable) {
		log.Warn().Err(err).Str("room", code).Msg("room store unavailable, trying memory")
	}
	if data, merr := s.mem.Load(ctx, code); merr == nil {
		return data, nil
	}
	return nil, err
}

func (s *Service) save(ctx context.Context, code string, data []byte) {
	err := s.store.Save(ctx, code, data)
	if err == nil || !s.backed {
		return
	}
	log.Warn().Err(err).Str("room", code).Msg("persist room failed, keeping it in memory")
	_ = s.mem.Save(ctx, code, data)
}

func (s *Service) drop(ctx context.Context, code string) {
	if err := s.store.Delete(ctx, code); err != nil {
		log.Warn().Err(err).Str("room", code).Msg("delete room")
	}
	if s.backed {
		_ = s.mem.Delete(ctx, code)
	}
	s.mu.Lock()
	delete(s.rooms, code)
	s.mu.Unlock()
	log.Info().Str("room", code).Msg("room closed")
}

func cell(p Position) board.Position { return board.Position{Row: p.Row, Col: p.Col} }

func verdict(ok bool, reason string) Update {
	if ok {
		return Update{OK: true}
	}
	return Update{Reason: reason}
}
