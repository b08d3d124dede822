package match

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/wordgames/internal/board"
	"github.com/robalobadob/wordgames/internal/dictionary"
	"github.com/robalobadob/wordgames/internal/tiles"
)

func pos(r, c int) board.Position { return board.Position{Row: r, Col: c} }

// recorder is a Validator that remembers every batch it was asked about.
type recorder struct {
	dict  *dictionary.Dictionary
	err   error
	calls [][]string
}

func (r *recorder) Validate(ctx context.Context, words, used []string) ([]dictionary.Verdict, error) {
	r.calls = append(r.calls, words)
	if r.err != nil {
		return nil, r.err
	}
	return r.dict.Validate(ctx, words, used)
}

func validator(words ...string) *recorder {
	return &recorder{dict: dictionary.New("test", words)}
}

func table(t *testing.T) *tiles.LetterTable {
	t.Helper()
	tb, err := tiles.DefaultTable()
	require.NoError(t, err)
	return tb
}

// chain returns a started two-player word chain match on a 9x9 board seeded
// with GAME at row 4, columns 2-5.
func chain(t *testing.T, s Settings) *Match {
	t.Helper()
	if s.BoardSize == 0 {
		s.BoardSize = 9
	}
	m := New("ABC123", WordChain, s, table(t), "game")
	require.NoError(t, m.AddPlayer(&Player{ID: "p1", Name: "Ada"}))
	require.NoError(t, m.AddPlayer(&Player{ID: "p2", Name: "Bo"}))
	require.NoError(t, m.Start())
	return m
}

func place(t *testing.T, m *Match, p board.Position, letter string) {
	t.Helper()
	require.True(t, m.Turn().Select(p))
	require.True(t, m.Turn().PlaceLetter(letter))
}

func TestNewWordChainSeedsBoard(t *testing.T) {
	m := New("ROOM01", WordChain, Settings{BoardSize: 9}, table(t), "game")
	assert.Equal(t, Waiting, m.Status)
	assert.Equal(t, "GAME", m.StarterWord)
	assert.Equal(t, []string{"GAME"}, m.UsedWords)
	assert.Equal(t, "G", m.Board.At(pos(4, 2)).Letter)
	assert.True(t, m.Board.At(pos(4, 2)).IsPermanent())
	assert.Nil(t, m.Bag)
	assert.Equal(t, 7, m.Settings.MaxLettersPerTurn)
	assert.Equal(t, 1, m.Settings.GrowthStep)
}

func TestSettingsAreBounded(t *testing.T) {
	m := New("ROOM04", WordChain, Settings{BoardSize: 1_000_000, MaxLettersPerTurn: 1 << 30, GrowthStep: 100}, table(t), "game")
	assert.Equal(t, MaxBoardSize, m.Settings.BoardSize)
	assert.Equal(t, MaxBoardSize, m.Board.Rows())
	assert.Equal(t, MaxBoardSize, m.Settings.MaxLettersPerTurn)
	assert.Equal(t, MaxGrowthStep, m.Settings.GrowthStep)
}

func TestGrowthStopsAtMaxBoardSize(t *testing.T) {
	m := New("ROOM05", WordChain, Settings{BoardSize: MaxBoardSize - 2, RoundsPerIncrement: 1, GrowthStep: 1}, table(t), "game")
	require.NoError(t, m.AddPlayer(&Player{ID: "a"}))
	require.NoError(t, m.Start())

	require.NoError(t, m.Pass())
	assert.Equal(t, MaxBoardSize, m.Board.Rows())
	require.NoError(t, m.Pass())
	assert.Equal(t, MaxBoardSize, m.Board.Rows(), "no room for another step")
	assert.Equal(t, 3, m.Round)
}

func TestNewScrabblePinsGeometry(t *testing.T) {
	m := New("ROOM02", Scrabble, Settings{BoardSize: 21, MaxLettersPerTurn: 2}, table(t), "ignored")
	assert.Equal(t, board.StandardSize, m.Board.Rows())
	assert.Equal(t, tiles.HandSize, m.Settings.MaxLettersPerTurn)
	assert.Equal(t, 100, m.Bag.Remaining())
	assert.Empty(t, m.UsedWords)
	assert.Equal(t, board.Center, m.Board.At(m.Board.CenterPosition()).Multiplier)
}

func TestLifecycleErrors(t *testing.T) {
	m := New("ROOM03", WordChain, Settings{}, table(t), "")
	assert.ErrorIs(t, m.Start(), ErrNoPlayers)

	require.NoError(t, m.AddPlayer(&Player{ID: "a"}))
	assert.ErrorIs(t, m.AddPlayer(&Player{ID: "a"}), ErrDuplicateID)
	assert.Equal(t, "a", m.HostID)
	for _, id := range []string{"b", "c", "d"} {
		require.NoError(t, m.AddPlayer(&Player{ID: id}))
	}
	assert.ErrorIs(t, m.AddPlayer(&Player{ID: "e"}), ErrRoomFull)

	_, err := m.Submit(context.Background(), validator())
	assert.ErrorIs(t, err, ErrNotPlaying)

	require.NoError(t, m.Start())
	assert.ErrorIs(t, m.Start(), ErrNotWaiting)
}

func TestCheckTurn(t *testing.T) {
	m := chain(t, Settings{})
	assert.NoError(t, m.CheckTurn("p1"))
	assert.ErrorIs(t, m.CheckTurn("p2"), ErrNotYourTurn)
	assert.ErrorIs(t, m.CheckTurn("zz"), ErrUnknownPlayer)
}

func TestSubmitAcceptsAndAdvances(t *testing.T) {
	m := chain(t, Settings{})
	place(t, m, pos(4, 6), "s")

	v := validator("GAMES")
	res, err := m.Submit(context.Background(), v)
	require.NoError(t, err)

	assert.True(t, res.Accepted)
	assert.Equal(t, []string{"GAMES"}, res.Words)
	assert.Equal(t, "GAMES", res.Longest)
	// G2 A1 M3 E1 S1, plain board.
	assert.Equal(t, 8, res.Points)
	assert.Equal(t, 8, m.Players[0].Score)
	assert.Equal(t, []string{"GAME", "GAMES"}, m.UsedWords)
	assert.True(t, m.Board.At(pos(4, 6)).IsPermanent())
	assert.Empty(t, m.Board.TemporaryPositions())
	assert.Equal(t, 1, m.CurrentPlayer)
	assert.Equal(t, 1, m.Round)
	require.NotNil(t, m.LastMove)
	assert.Equal(t, "p1", m.LastMove.PlayerID)
}

func TestUsedWordExcludedFromValidatorInput(t *testing.T) {
	m := chain(t, Settings{})
	m.UsedWords = append(m.UsedWords, "ames")
	place(t, m, pos(4, 6), "S")

	v := validator("GAMES", "AMES")
	_, err := m.Submit(context.Background(), v)
	require.NoError(t, err)

	require.Len(t, v.calls, 1)
	assert.Equal(t, []string{"GAMES", "MES", "ES"}, v.calls[0])
}

func TestSubmitAllUsedRollsBack(t *testing.T) {
	m := chain(t, Settings{})
	m.UsedWords = append(m.UsedWords, "GAMES", "AMES", "MES", "ES")
	place(t, m, pos(4, 6), "S")

	v := validator("GAMES")
	res, err := m.Submit(context.Background(), v)
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, ReasonAlreadyUsed, res.Reason)
	assert.Empty(t, v.calls)
	assert.True(t, m.Board.At(pos(4, 6)).IsEmpty())
}

func TestSubmitNoValidWordRollsBack(t *testing.T) {
	m := chain(t, Settings{})
	before := m.Board.Permanents()
	place(t, m, pos(4, 6), "X")

	res, err := m.Submit(context.Background(), validator("GAMES"))
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, ReasonNoValidWord, res.Reason)
	assert.Equal(t, before, m.Board.Permanents())
	assert.Empty(t, m.Board.TemporaryPositions())
	assert.Equal(t, 0, m.CurrentPlayer, "turn does not advance")
	assert.Equal(t, 0, m.Players[0].Score)
}

func TestSubmitIllegalPlacement(t *testing.T) {
	m := chain(t, Settings{})
	place(t, m, pos(4, 6), "S")
	place(t, m, pos(5, 2), "O")

	v := validator("GAMES")
	res, err := m.Submit(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, ReasonIllegal, res.Reason)
	assert.Empty(t, v.calls)
	assert.Empty(t, m.Board.TemporaryPositions())
}

func TestSubmitNothingPlaced(t *testing.T) {
	m := chain(t, Settings{})
	res, err := m.Submit(context.Background(), validator())
	require.NoError(t, err)
	assert.Equal(t, ReasonNothingPlaced, res.Reason)
}

func TestDictionaryFailureLeavesStateUntouched(t *testing.T) {
	m := chain(t, Settings{})
	place(t, m, pos(4, 6), "S")

	boom := errors.New("connection refused")
	v := &recorder{err: boom}
	_, err := m.Submit(context.Background(), v)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDictionary)
	assert.ErrorIs(t, err, boom)

	assert.True(t, m.Board.At(pos(4, 6)).IsTemporary(), "placement kept")
	assert.Equal(t, 0, m.CurrentPlayer)
	assert.Equal(t, []string{"GAME"}, m.UsedWords)
}

func TestSubmitHonoursCancelledContext(t *testing.T) {
	m := chain(t, Settings{})
	place(t, m, pos(4, 6), "S")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Submit(ctx, validator("GAMES"))
	assert.ErrorIs(t, err, ErrDictionary)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRoundsAndGrowth(t *testing.T) {
	m := chain(t, Settings{RoundsPerIncrement: 2})

	require.NoError(t, m.Pass())
	require.NoError(t, m.Pass())
	assert.Equal(t, 2, m.Round)
	assert.Equal(t, 9, m.Board.Rows(), "no growth after one round")

	require.NoError(t, m.Pass())
	require.NoError(t, m.Pass())
	assert.Equal(t, 3, m.Round)
	assert.Equal(t, 11, m.Board.Rows())
	assert.Equal(t, 11, m.Settings.BoardSize)
	// GAME shifted by the growth step on both axes.
	assert.Equal(t, "G", m.Board.At(pos(5, 3)).Letter)
	assert.Equal(t, 4, m.Board.CountPermanent())
	assert.Equal(t, WordChain, m.Variant)
	assert.Equal(t, Playing, m.Status, "word chain never ends on passes")
}

func TestPassRollsBackPlacement(t *testing.T) {
	m := chain(t, Settings{})
	place(t, m, pos(4, 6), "S")
	require.NoError(t, m.Pass())
	assert.Empty(t, m.Board.TemporaryPositions())
	assert.Equal(t, 1, m.CurrentPlayer)
}

func TestRemovePlayerAdjustsTurn(t *testing.T) {
	m := New("ROOM04", WordChain, Settings{BoardSize: 9}, table(t), "game")
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, m.AddPlayer(&Player{ID: id}))
	}
	require.NoError(t, m.Start())
	require.NoError(t, m.Pass()) // b to play

	require.NoError(t, m.RemovePlayer("a"))
	assert.Equal(t, "b", m.Current().ID)
	assert.Equal(t, "b", m.HostID)

	place(t, m, pos(4, 6), "S")
	require.NoError(t, m.RemovePlayer("b"))
	assert.Equal(t, "c", m.Current().ID)
	assert.Empty(t, m.Board.TemporaryPositions())

	assert.ErrorIs(t, m.RemovePlayer("b"), ErrUnknownPlayer)
	require.NoError(t, m.RemovePlayer("c"))
	assert.Equal(t, Finished, m.Status)
}

func TestEncodeDecodeKeepsPlacement(t *testing.T) {
	m := chain(t, Settings{})
	place(t, m, pos(4, 6), "S")

	data, err := m.Encode()
	require.NoError(t, err)
	got, err := Decode(data, table(t))
	require.NoError(t, err)

	assert.Equal(t, m.Code, got.Code)
	assert.Equal(t, m.UsedWords, got.UsedWords)
	assert.Equal(t, m.Board.String(), got.Board.String())
	assert.Equal(t, []board.Position{pos(4, 6)}, got.Turn().Touched())

	res, err := got.Submit(context.Background(), validator("GAMES"))
	require.NoError(t, err)
	assert.True(t, res.Accepted)
}

func TestDecodeRejectsMissingBoard(t *testing.T) {
	_, err := Decode([]byte(`{"roomCode":"X"}`), table(t))
	assert.Error(t, err)
}
