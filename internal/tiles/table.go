// internal/tiles/table.go
//
// Letter distribution: how many tiles exist per letter and what each scores.
// The table is built once (from the embedded YAML or a file) and then only
// read; matches and bags receive it by pointer and never mutate it.

package tiles

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/robalobadob/wordgames/assets"
)

// BlankKey is the distribution entry that yields wildcard tiles.
const BlankKey = "BLANK"

// LetterTable holds tile counts and letter scores keyed by upper-case letter.
type LetterTable struct {
	counts map[string]int
	scores map[string]int
}

type tableDoc struct {
	Counts map[string]int `yaml:"counts"`
	Scores map[string]int `yaml:"scores"`
}

// NewTable builds a table from explicit maps. Keys are upper-cased.
func NewTable(counts, scores map[string]int) *LetterTable {
	t := &LetterTable{counts: make(map[string]int, len(counts)), scores: make(map[string]int, len(scores))}
	for k, v := range counts {
		t.counts[strings.ToUpper(k)] = v
	}
	for k, v := range scores {
		t.scores[strings.ToUpper(k)] = v
	}
	return t
}

// ReadTable decodes a YAML document with `counts` and `scores` maps.
func ReadTable(r io.Reader) (*LetterTable, error) {
	var doc tableDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("tiles: decode letter table: %w", err)
	}
	if len(doc.Counts) == 0 {
		return nil, fmt.Errorf("tiles: letter table has no counts")
	}
	for k, n := range doc.Counts {
		if n < 0 {
			return nil, fmt.Errorf("tiles: negative count for %q", k)
		}
	}
	return NewTable(doc.Counts, doc.Scores), nil
}

// LoadTable reads a table from path, or the embedded default when path is empty.
func LoadTable(path string) (*LetterTable, error) {
	if path == "" {
		return DefaultTable()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTable(f)
}

// DefaultTable returns the embedded English distribution.
func DefaultTable() (*LetterTable, error) {
	b, err := assets.Letters()
	if err != nil {
		return nil, err
	}
	return ReadTable(bytes.NewReader(b))
}

// Score is the base score of letter; unknown letters score zero.
func (t *LetterTable) Score(letter string) int {
	return t.scores[strings.ToUpper(letter)]
}

// Count is the number of tiles of letter in a fresh bag.
func (t *LetterTable) Count(letter string) int {
	return t.counts[strings.ToUpper(letter)]
}

// Total is the size of a fresh bag.
func (t *LetterTable) Total() int {
	n := 0
	for _, c := range t.counts {
		n += c
	}
	return n
}

// Letters returns the distribution keys in sorted order.
func (t *LetterTable) Letters() []string {
	keys := make([]string, 0, len(t.counts))
	for k := range t.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TileFor returns the tile a letter of this table represents.
func (t *LetterTable) TileFor(letter string) Tile {
	letter = strings.ToUpper(letter)
	if letter == BlankKey {
		return Tile{Blank: true}
	}
	return Tile{Letter: letter, Points: t.Score(letter)}
}
