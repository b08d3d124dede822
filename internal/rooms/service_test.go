package rooms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/wordgames/internal/dictionary"
	"github.com/robalobadob/wordgames/internal/match"
	"github.com/robalobadob/wordgames/internal/session"
	"github.com/robalobadob/wordgames/internal/store"
	"github.com/robalobadob/wordgames/internal/tiles"
)

type sent struct {
	room, event string
}

type fakeHub struct {
	mu     sync.Mutex
	events []sent
}

func (f *fakeHub) Broadcast(code, event string, _ any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sent{code, event})
}

func (f *fakeHub) last() sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return sent{}
	}
	return f.events[len(f.events)-1]
}

// brokenLexicon fails every validation.
type brokenLexicon struct{ *dictionary.Dictionary }

func (brokenLexicon) Validate(context.Context, []string, []string) ([]dictionary.Verdict, error) {
	return nil, errors.New("lookup timed out")
}

// downStore is a backend that is never reachable.
type downStore struct{}

func down() error { return fmt.Errorf("%w: connection refused", store.ErrUnavailable) }

func (downStore) Create(context.Context, string, []byte) error { return down() }
func (downStore) Load(context.Context, string) ([]byte, error) { return nil, down() }
func (downStore) Save(context.Context, string, []byte) error   { return down() }
func (downStore) Delete(context.Context, string) error         { return down() }
func (downStore) Ping(context.Context) error                   { return down() }
func (downStore) Close() error                                 { return nil }

func lexicon() *dictionary.Dictionary {
	return dictionary.New("test", []string{"GAME", "GAMES", "WORD", "PLAY"})
}

func newService(t *testing.T, st store.RoomStore, lex Lexicon, o Options) (*Service, *fakeHub) {
	t.Helper()
	tb, err := tiles.DefaultTable()
	require.NoError(t, err)
	hub := &fakeHub{}
	return New(st, lex, tb, hub, session.NewIssuer("test-secret", time.Hour), o), hub
}

// openChain creates a started two-player word chain room seeded with GAME on
// a 15x15 board (row 7, columns 5-8).
func openChain(t *testing.T, svc *Service) (code, host, guest string) {
	t.Helper()
	ctx := context.Background()
	tk, err := svc.Create(ctx, CreateRequest{HostName: "Ada", Variant: match.WordChain, Starter: "game"})
	require.NoError(t, err)
	g, err := svc.Join(ctx, strings.ToLower(tk.RoomCode), "", "Bo", "")
	require.NoError(t, err)
	_, err = svc.Start(ctx, tk.RoomCode, tk.PlayerID)
	require.NoError(t, err)
	return tk.RoomCode, tk.PlayerID, g.PlayerID
}

func decodeRoom(t *testing.T, raw json.RawMessage) *match.Match {
	t.Helper()
	tb, err := tiles.DefaultTable()
	require.NoError(t, err)
	m, err := match.Decode(raw, tb)
	require.NoError(t, err)
	return m
}

func at(r, c int) *Position { return &Position{Row: r, Col: c} }

func TestCreateAndJoin(t *testing.T) {
	svc, hub := newService(t, nil, lexicon(), Options{})
	ctx := context.Background()

	tk, err := svc.Create(ctx, CreateRequest{HostName: "Ada", Variant: match.WordChain})
	require.NoError(t, err)
	assert.Len(t, tk.RoomCode, CodeLength)
	assert.Equal(t, strings.ToUpper(tk.RoomCode), tk.RoomCode)
	assert.NotEmpty(t, tk.PlayerID)

	claims, err := svc.Claims(tk.Token)
	require.NoError(t, err)
	assert.Equal(t, tk.RoomCode, claims.RoomCode)
	assert.Equal(t, tk.PlayerID, claims.PlayerID)

	m := decodeRoom(t, tk.Room)
	assert.Contains(t, DefaultStarters, m.StarterWord)
	assert.Equal(t, tk.PlayerID, m.HostID)

	g, err := svc.Join(ctx, " "+strings.ToLower(tk.RoomCode)+" ", "", "Bo", "")
	require.NoError(t, err)
	assert.Equal(t, tk.RoomCode, g.RoomCode)
	assert.Len(t, decodeRoom(t, g.Room).Players, 2)
	assert.Equal(t, sent{tk.RoomCode, "room-updated"}, hub.last())

	again, err := svc.Join(ctx, tk.RoomCode, g.PlayerID, "Bo", g.Token)
	require.NoError(t, err)
	assert.Equal(t, g.PlayerID, again.PlayerID)
	assert.Len(t, decodeRoom(t, again.Room).Players, 2, "rejoin keeps the seat")
}

func TestJoinWithForeignPlayerID(t *testing.T) {
	svc, _ := newService(t, nil, lexicon(), Options{})
	ctx := context.Background()
	code, host, guest := openChain(t, svc)

	// No token at all.
	_, err := svc.Join(ctx, code, host, "Mallory", "")
	assert.ErrorIs(t, err, match.ErrDuplicateID)

	// A token for somebody else in the same room.
	g, err := svc.Join(ctx, code, "", "Cy", "")
	require.NoError(t, err)
	_, err = svc.Join(ctx, code, host, "Mallory", g.Token)
	assert.ErrorIs(t, err, match.ErrDuplicateID)

	// The host's own token from another room.
	other, err := svc.Create(ctx, CreateRequest{HostID: host, HostName: "Ada"})
	require.NoError(t, err)
	_, err = svc.Join(ctx, code, host, "Mallory", other.Token)
	assert.ErrorIs(t, err, match.ErrDuplicateID)

	_, err = svc.Join(ctx, code, guest, "Mallory", "garbage")
	assert.ErrorIs(t, err, match.ErrDuplicateID)

	m := decodeRoom(t, mustGet(t, svc, code))
	assert.Len(t, m.Players, 3)
	assert.Equal(t, host, m.Players[0].ID)
	assert.Equal(t, "Ada", m.Players[0].Name)
}

func mustGet(t *testing.T, svc *Service, code string) json.RawMessage {
	t.Helper()
	raw, err := svc.Get(context.Background(), code)
	require.NoError(t, err)
	return raw
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newService(t, nil, lexicon(), Options{})
	_, err := svc.Create(context.Background(), CreateRequest{HostName: "  "})
	assert.ErrorIs(t, err, ErrMissingName)
	_, err = svc.Create(context.Background(), CreateRequest{HostName: "Ada", Variant: "chess"})
	assert.ErrorIs(t, err, ErrBadVariant)
}

func TestJoinUnknownRoom(t *testing.T) {
	svc, _ := newService(t, nil, lexicon(), Options{})
	_, err := svc.Join(context.Background(), "NOPE00", "", "Bo", "")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Zero(t, svc.Cached())
}

func TestTurnOwnership(t *testing.T) {
	svc, _ := newService(t, nil, lexicon(), Options{})
	ctx := context.Background()
	tk, err := svc.Create(ctx, CreateRequest{HostName: "Ada"})
	require.NoError(t, err)
	g, err := svc.Join(ctx, tk.RoomCode, "", "Bo", "")
	require.NoError(t, err)

	_, err = svc.Start(ctx, tk.RoomCode, g.PlayerID)
	assert.ErrorIs(t, err, ErrNotHost)
	_, err = svc.Place(ctx, tk.RoomCode, tk.PlayerID, Place{Position: at(0, 0), Letter: "A"})
	assert.ErrorIs(t, err, match.ErrNotPlaying)

	_, err = svc.Start(ctx, tk.RoomCode, tk.PlayerID)
	require.NoError(t, err)
	_, err = svc.Place(ctx, tk.RoomCode, g.PlayerID, Place{Position: at(0, 0), Letter: "A"})
	assert.ErrorIs(t, err, match.ErrNotYourTurn)
	_, err = svc.Pass(ctx, tk.RoomCode, "stranger")
	assert.ErrorIs(t, err, match.ErrUnknownPlayer)
}

func TestSubmitAcceptsAndAdvances(t *testing.T) {
	svc, hub := newService(t, nil, lexicon(), Options{})
	ctx := context.Background()
	code, host, guest := openChain(t, svc)

	up, err := svc.Place(ctx, code, host, Place{Position: at(7, 9), Letter: "s"})
	require.NoError(t, err)
	require.True(t, up.OK)
	assert.Equal(t, sent{code, "game-state-updated"}, hub.last())

	up, err = svc.Submit(ctx, code, host)
	require.NoError(t, err)
	require.True(t, up.OK)
	assert.Equal(t, []string{"GAMES"}, up.Result.Words)
	assert.Equal(t, 8, up.Result.Points)

	m := decodeRoom(t, up.Room)
	assert.Equal(t, 1, m.CurrentPlayer)
	assert.Equal(t, 8, m.Players[0].Score)
	assert.True(t, m.IsUsed("games"))

	_, err = svc.Pass(ctx, code, guest)
	require.NoError(t, err)
}

func TestSubmitRejectionRollsBack(t *testing.T) {
	svc, _ := newService(t, nil, lexicon(), Options{})
	ctx := context.Background()
	code, host, _ := openChain(t, svc)

	_, err := svc.Place(ctx, code, host, Place{Position: at(7, 9), Letter: "x"})
	require.NoError(t, err)
	up, err := svc.Submit(ctx, code, host)
	require.NoError(t, err)
	assert.False(t, up.OK)
	assert.Equal(t, match.ReasonNoValidWord, up.Reason)

	m := decodeRoom(t, up.Room)
	assert.True(t, m.Board.At(cell(*at(7, 9))).IsEmpty())
	assert.Equal(t, 0, m.CurrentPlayer)
}

func TestPlaceRejectionsAreNotErrors(t *testing.T) {
	svc, _ := newService(t, nil, lexicon(), Options{})
	ctx := context.Background()
	code, host, _ := openChain(t, svc)

	up, err := svc.Place(ctx, code, host, Place{Position: at(7, 5), Letter: "z"})
	require.NoError(t, err)
	assert.False(t, up.OK, "permanent cell")
	assert.NotEmpty(t, up.Reason)

	up, err = svc.Select(ctx, code, host, Select{Position: at(40, 0)})
	require.NoError(t, err)
	assert.False(t, up.OK)

	up, err = svc.Remove(ctx, code, host, Position{Row: 0, Col: 0})
	require.NoError(t, err)
	assert.False(t, up.OK)
}

func TestClearWithdrawsPlacement(t *testing.T) {
	svc, _ := newService(t, nil, lexicon(), Options{})
	ctx := context.Background()
	code, host, _ := openChain(t, svc)

	for i, l := range []string{"s", "x"} {
		_, err := svc.Place(ctx, code, host, Place{Position: at(7, 9+i), Letter: l})
		require.NoError(t, err)
	}
	up, err := svc.Clear(ctx, code, host)
	require.NoError(t, err)
	assert.Empty(t, decodeRoom(t, up.Room).Board.TemporaryPositions())
}

func TestDictionaryFailureKeepsPlacement(t *testing.T) {
	svc, _ := newService(t, nil, brokenLexicon{lexicon()}, Options{})
	ctx := context.Background()
	code, host, _ := openChain(t, svc)

	_, err := svc.Place(ctx, code, host, Place{Position: at(7, 9), Letter: "s"})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, code, host)
	assert.ErrorIs(t, err, match.ErrDictionary)

	raw, err := svc.Get(ctx, code)
	require.NoError(t, err)
	m := decodeRoom(t, raw)
	assert.True(t, m.Board.At(cell(*at(7, 9))).IsTemporary())
	assert.Equal(t, 0, m.CurrentPlayer)
}

func TestLoadsFromStoreOnMiss(t *testing.T) {
	st := store.NewMemory(time.Hour)
	a, _ := newService(t, st, lexicon(), Options{})
	b, _ := newService(t, st, lexicon(), Options{})
	ctx := context.Background()

	tk, err := a.Create(ctx, CreateRequest{HostName: "Ada", Variant: match.Scrabble})
	require.NoError(t, err)

	raw, err := b.Get(ctx, tk.RoomCode)
	require.NoError(t, err)
	m := decodeRoom(t, raw)
	assert.Equal(t, match.Scrabble, m.Variant)
	assert.Equal(t, 100, m.Bag.Remaining())
}

func TestStoreOutageFallsBackToMemory(t *testing.T) {
	svc, _ := newService(t, downStore{}, lexicon(), Options{})
	ctx := context.Background()

	tk, err := svc.Create(ctx, CreateRequest{HostName: "Ada"})
	require.NoError(t, err)
	_, err = svc.Join(ctx, tk.RoomCode, "", "Bo", "")
	require.NoError(t, err)

	// Evict the cache so the next read must come from the memory fallback.
	svc.mu.Lock()
	svc.rooms = map[string]*entry{}
	svc.mu.Unlock()

	raw, err := svc.Get(ctx, tk.RoomCode)
	require.NoError(t, err)
	assert.Len(t, decodeRoom(t, raw).Players, 2)

	_, err = svc.Get(ctx, "NOPE00")
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestLastLeaverClosesRoom(t *testing.T) {
	st := store.NewMemory(time.Hour)
	svc, _ := newService(t, st, lexicon(), Options{})
	ctx := context.Background()
	code, host, guest := openChain(t, svc)

	up, err := svc.Leave(ctx, code, guest)
	require.NoError(t, err)
	assert.Len(t, decodeRoom(t, up.Room).Players, 1)

	_, err = svc.Leave(ctx, code, host)
	require.NoError(t, err)
	_, err = svc.Get(ctx, code)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Load(ctx, code)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReplaceStateLastWriteWins(t *testing.T) {
	svc, hub := newService(t, nil, lexicon(), Options{})
	ctx := context.Background()
	code, host, guest := openChain(t, svc)

	raw, err := svc.Get(ctx, code)
	require.NoError(t, err)
	var state map[string]any
	require.NoError(t, json.Unmarshal(raw, &state))

	state["currentRound"] = 4
	first, _ := json.Marshal(state)
	state["currentRound"] = 5
	second, _ := json.Marshal(state)

	_, err = svc.ReplaceState(ctx, code, host, first)
	require.NoError(t, err)
	up, err := svc.ReplaceState(ctx, code, guest, second)
	require.NoError(t, err)
	assert.Equal(t, 5, decodeRoom(t, up.Room).Round)
	assert.Equal(t, sent{code, "game-state-updated"}, hub.last())

	_, err = svc.ReplaceState(ctx, code, host, json.RawMessage(`{"nope":`))
	assert.ErrorIs(t, err, ErrBadState)
	_, err = svc.ReplaceState(ctx, code, "stranger", second)
	assert.ErrorIs(t, err, match.ErrUnknownPlayer)

	// The roster always comes from the server copy.
	players := state["players"].([]any)
	state["players"] = players[:1]
	state["currentPlayerIndex"] = 9
	shrunk, _ := json.Marshal(state)
	up, err = svc.ReplaceState(ctx, code, host, shrunk)
	require.NoError(t, err)
	m := decodeRoom(t, up.Room)
	require.Len(t, m.Players, 2)
	assert.Equal(t, []string{host, guest}, []string{m.Players[0].ID, m.Players[1].ID})
	assert.Equal(t, 0, m.CurrentPlayer)

	// A null seat is rejected and the room keeps working.
	state["players"] = []any{players[0], nil}
	holey, _ := json.Marshal(state)
	_, err = svc.ReplaceState(ctx, code, host, holey)
	assert.ErrorIs(t, err, ErrBadState)
	_, err = svc.Pass(ctx, code, host)
	require.NoError(t, err)
}

func TestConcurrentJoinsAreSerialized(t *testing.T) {
	svc, _ := newService(t, nil, lexicon(), Options{})
	ctx := context.Background()
	tk, err := svc.Create(ctx, CreateRequest{HostName: "Ada"})
	require.NoError(t, err)

	var g errgroup.Group
	for i := 0; i < match.MaxPlayers+2; i++ {
		name := fmt.Sprintf("p%d", i)
		g.Go(func() error {
			_, err := svc.Join(ctx, tk.RoomCode, "", name, "")
			if errors.Is(err, match.ErrRoomFull) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	raw, err := svc.Get(ctx, tk.RoomCode)
	require.NoError(t, err)
	assert.Len(t, decodeRoom(t, raw).Players, match.MaxPlayers)
}

func TestSweepEvictsIdleRooms(t *testing.T) {
	st := store.NewMemory(time.Hour)
	svc, _ := newService(t, st, lexicon(), Options{IdleTTL: time.Millisecond})
	ctx := context.Background()
	tk, err := svc.Create(ctx, CreateRequest{HostName: "Ada"})
	require.NoError(t, err)
	require.Equal(t, 1, svc.Cached())

	time.Sleep(5 * time.Millisecond)
	n, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)
	assert.Zero(t, svc.Cached())

	_, err = svc.Get(ctx, tk.RoomCode)
	assert.NoError(t, err, "reloaded from the store")
}

func TestScrabbleTilePlacement(t *testing.T) {
	svc, _ := newService(t, nil, lexicon(), Options{})
	ctx := context.Background()
	tk, err := svc.Create(ctx, CreateRequest{HostName: "Ada", Variant: match.Scrabble})
	require.NoError(t, err)
	up, err := svc.Start(ctx, tk.RoomCode, tk.PlayerID)
	require.NoError(t, err)
	hand := decodeRoom(t, up.Room).Players[0].Hand
	require.Len(t, hand, tiles.HandSize)

	idx := 0
	up, err = svc.Place(ctx, tk.RoomCode, tk.PlayerID, Place{Position: at(7, 7), Tile: &idx, BlankAs: "e"})
	require.NoError(t, err)
	require.True(t, up.OK)
	m := decodeRoom(t, up.Room)
	assert.Len(t, m.Players[0].Hand, tiles.HandSize-1)
	assert.True(t, m.Board.At(cell(*at(7, 7))).IsTemporary())
}

func TestNewCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		c := NewCode()
		require.Len(t, c, CodeLength)
		for _, r := range c {
			require.Contains(t, CodeAlphabet, string(r))
		}
		seen[c] = true
	}
	assert.Greater(t, len(seen), 190)
}
