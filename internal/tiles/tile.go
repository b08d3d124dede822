// internal/tiles/tile.go
//
// Tiles and the player's hand for the tile-drafting variant.

package tiles

import "strings"

// HandSize is the maximum number of tiles a player may hold.
const HandSize = 7

// Tile is a scored letter. A blank tile has no intrinsic letter and zero points;
// the letter it stands for lives on the board cell, not on the tile.
type Tile struct {
	Letter string `json:"letter"`
	Points int    `json:"score"`
	Blank  bool   `json:"isBlank"`
}

func (t Tile) String() string {
	if t.Blank {
		return "?"
	}
	return t.Letter
}

// Hand is the ordered set of tiles a player holds.
type Hand []Tile

// Full reports whether the hand is at HandSize.
func (h Hand) Full() bool { return len(h) >= HandSize }

// IndexOf returns the index of the first tile showing letter, or -1.
// Blank tiles never match a typed letter.
func (h Hand) IndexOf(letter string) int {
	letter = strings.ToUpper(letter)
	for i, t := range h {
		if !t.Blank && t.Letter == letter {
			return i
		}
	}
	return -1
}

// IndexOfBlank returns the index of the first blank tile, or -1.
func (h Hand) IndexOfBlank() int {
	for i, t := range h {
		if t.Blank {
			return i
		}
	}
	return -1
}

// Add appends a tile to the hand.
func (h *Hand) Add(t Tile) { *h = append(*h, t) }

// RemoveAt takes the tile at i out of the hand.
func (h *Hand) RemoveAt(i int) (Tile, bool) {
	if i < 0 || i >= len(*h) {
		return Tile{}, false
	}
	t := (*h)[i]
	*h = append((*h)[:i], (*h)[i+1:]...)
	return t, true
}

// String renders the hand as its letters, '?' for blanks.
func (h Hand) String() string {
	var sb strings.Builder
	for _, t := range h {
		sb.WriteString(t.String())
	}
	return sb.String()
}
