package board

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeededCentersWord(t *testing.T) {
	g, next := NewSeeded(11, "game")
	assert.Equal(t, "...........\n", g.String()[:12])

	row := 5
	start := (11 - 4) / 2
	for i, want := range "GAME" {
		c := g.At(Position{Row: row, Col: start + i})
		assert.Equal(t, Permanent, c.State)
		assert.Equal(t, string(want), c.Letter)
	}
	assert.Equal(t, Position{Row: row, Col: start + 4}, next)
	assert.Equal(t, 4, g.CountPermanent())
}

func TestNewSeededCountsLettersNotBytes(t *testing.T) {
	g, next := NewSeeded(9, "été")
	for i, want := range []string{"É", "T", "É"} {
		c := g.At(Position{Row: 4, Col: 3 + i})
		assert.Equal(t, Permanent, c.State)
		assert.Equal(t, want, c.Letter)
	}
	assert.Equal(t, 3, g.CountPermanent())
	assert.Equal(t, Position{Row: 4, Col: 6}, next)
}

func TestPlaceTemporaryRefusesPermanent(t *testing.T) {
	g, _ := NewSeeded(9, "word")
	p := Position{Row: 4, Col: 2}
	require.True(t, g.At(p).IsPermanent())

	assert.False(t, g.PlaceTemporary(p, "x", false))
	assert.Equal(t, "W", g.At(p).Letter)
	assert.False(t, g.Clear(p), "clear must not touch committed content")
}

func TestPlaceClearCommit(t *testing.T) {
	g := NewStandard()
	p := Position{Row: 0, Col: 0}
	require.True(t, g.PlaceTemporary(p, "q", false))
	assert.Equal(t, Cell{State: Temporary, Letter: "Q", Multiplier: TripleWord}, g.At(p))

	require.True(t, g.Clear(p))
	assert.Equal(t, Cell{Multiplier: TripleWord}, g.At(p), "multiplier survives a clear")

	require.True(t, g.PlaceTemporary(p, "Q", false))
	require.True(t, g.Commit(p))
	assert.True(t, g.At(p).IsPermanent())
	assert.Empty(t, g.TemporaryPositions())
}

func TestOutOfBoundsPanics(t *testing.T) {
	g := NewSquare(3)
	assert.Panics(t, func() { g.At(Position{Row: 3, Col: 0}) })
	assert.Panics(t, func() { g.At(Position{Row: 0, Col: -1}) })
}

func TestStandardLayout(t *testing.T) {
	g := NewStandard()
	assert.Equal(t, Center, g.At(Position{Row: 7, Col: 7}).Multiplier)
	assert.Equal(t, TripleWord, g.At(Position{Row: 14, Col: 7}).Multiplier)
	assert.Equal(t, DoubleWord, g.At(Position{Row: 4, Col: 10}).Multiplier)
	assert.Equal(t, TripleLetter, g.At(Position{Row: 9, Col: 13}).Multiplier)
	assert.Equal(t, DoubleLetter, g.At(Position{Row: 14, Col: 11}).Multiplier)
	assert.Equal(t, None, g.At(Position{Row: 7, Col: 6}).Multiplier)
}

func TestGrowByKeepsCoordinates(t *testing.T) {
	g, _ := NewSeeded(5, "ab")
	before := g.Permanents()

	g.GrowBy(2)
	assert.Equal(t, 7, g.Rows())
	assert.Equal(t, 7, g.Cols())
	assert.Equal(t, before, g.Permanents())
}

func TestGrowAroundOffsetsContent(t *testing.T) {
	g, _ := NewSeeded(5, "ab")
	before := g.Permanents()

	g.GrowAround(1)
	assert.Equal(t, 7, g.Rows())
	after := g.Permanents()
	require.Len(t, after, len(before))
	for p, c := range before {
		assert.Equal(t, c, after[Position{Row: p.Row + 1, Col: p.Col + 1}])
	}
}

func TestGridJSONRoundTrip(t *testing.T) {
	g := NewStandard()
	g.PlaceTemporary(Position{Row: 7, Col: 7}, "A", false)
	b, err := json.Marshal(g)
	require.NoError(t, err)

	var back Grid
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, g.String(), back.String())
	assert.Equal(t, g.At(Position{Row: 7, Col: 7}), back.At(Position{Row: 7, Col: 7}))
}
