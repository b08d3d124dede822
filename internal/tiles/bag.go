// internal/tiles/bag.go
//
// The shuffled pool of undrawn tiles.
// Responsibilities:
//   - Build one tile per count unit of the letter table, then shuffle uniformly.
//   - Draw from the end; an empty bag is a normal condition, not an error.
//   - Take tiles back (exchange / tiles returned after a withdrawn placement).

package tiles

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"
)

// Intn returns a uniform integer in [0, n). frand.Intn satisfies it.
type Intn func(n int) int

// Bag is a multiset of tiles in draw order (the last tile is drawn first).
type Bag struct {
	tiles []Tile
}

// NewBag creates a shuffled bag from table. A nil intn uses frand.
func NewBag(table *LetterTable, intn Intn) *Bag {
	if intn == nil {
		intn = frand.Intn
	}
	b := &Bag{tiles: make([]Tile, 0, table.Total())}
	for _, letter := range table.Letters() {
		t := table.TileFor(letter)
		for i := 0; i < table.Count(letter); i++ {
			b.tiles = append(b.tiles, t)
		}
	}
	b.shuffle(intn)
	log.Debug().Int("tiles", len(b.tiles)).Msg("letter bag initialized")
	return b
}

// shuffle is Fisher-Yates: every permutation is equally likely.
func (b *Bag) shuffle(intn Intn) {
	for i := len(b.tiles) - 1; i > 0; i-- {
		j := intn(i + 1)
		b.tiles[i], b.tiles[j] = b.tiles[j], b.tiles[i]
	}
}

// Draw removes and returns the last tile. ok is false when the bag is empty.
func (b *Bag) Draw() (t Tile, ok bool) {
	n := len(b.tiles)
	if n == 0 {
		return Tile{}, false
	}
	t = b.tiles[n-1]
	b.tiles = b.tiles[:n-1]
	return t, true
}

// DrawInto draws up to count tiles into h, stopping early when the bag runs
// dry or the hand is full. It returns the number of tiles drawn.
func (b *Bag) DrawInto(h *Hand, count int) int {
	drawn := 0
	for ; drawn < count; drawn++ {
		if h.Full() {
			break
		}
		t, ok := b.Draw()
		if !ok {
			break
		}
		h.Add(t)
	}
	return drawn
}

// Refill tops h up to HandSize.
func (b *Bag) Refill(h *Hand) int {
	return b.DrawInto(h, HandSize-len(*h))
}

// Return puts tiles back into the bag and reshuffles it.
func (b *Bag) Return(intn Intn, ts ...Tile) {
	if intn == nil {
		intn = frand.Intn
	}
	b.tiles = append(b.tiles, ts...)
	b.shuffle(intn)
}

// Remaining is the number of undrawn tiles.
func (b *Bag) Remaining() int { return len(b.tiles) }

// Empty reports whether no tile is left.
func (b *Bag) Empty() bool { return len(b.tiles) == 0 }

// Tiles returns a copy of the undrawn tiles in draw order (last drawn first).
func (b *Bag) Tiles() []Tile {
	out := make([]Tile, len(b.tiles))
	copy(out, b.tiles)
	return out
}

func (b *Bag) MarshalJSON() ([]byte, error) {
	if b.tiles == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(b.tiles)
}

func (b *Bag) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &b.tiles)
}
