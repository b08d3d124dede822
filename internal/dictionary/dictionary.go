// internal/dictionary/dictionary.go
//
// Word membership service for the board games and Wordle.
//
// Responsibilities:
//   - Load a word list from a file (JSON array or one word per line) or fall
//     back to an embedded list.
//   - Case-insensitive membership: every word is folded to upper case on load
//     and on lookup.
//   - Batch validation against a match's used-word list (Validate/Longest).
//   - Random picks (starter words, Wordle answers).
//
// A Dictionary is built once and then only read; it is safe for concurrent use.

package dictionary

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"lukechampine.com/frand"
)

// ErrEmpty is returned when a source yields no usable words.
var ErrEmpty = errors.New("dictionary: no words loaded")

// Dictionary is an immutable word set.
type Dictionary struct {
	name  string
	set   map[string]struct{}
	words []string // sorted, for deterministic iteration and random picks
}

// Verdict is the validation outcome for one candidate word.
type Verdict struct {
	Word         string `json:"word"`
	Length       int    `json:"length"`
	InDictionary bool   `json:"isInDictionary"`
	AlreadyUsed  bool   `json:"alreadyUsed"`
	Valid        bool   `json:"isValid"`
}

// Normalize trims and upper-cases w.
func Normalize(w string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(w))
}

// New builds a dictionary from words. Blank entries and entries containing
// non-letters are dropped.
func New(name string, words []string) *Dictionary {
	d := &Dictionary{name: name, set: make(map[string]struct{}, len(words))}
	for _, w := range words {
		w = Normalize(w)
		if w == "" || !isWord(w) {
			continue
		}
		d.set[w] = struct{}{}
	}
	d.words = lo.Keys(d.set)
	slices.Sort(d.words)
	return d
}

// Load reads path, or calls fallback when path is empty or unreadable.
// A configured file that fails to load is logged, not fatal.
func Load(name, path string, fallback func() ([]string, error)) (*Dictionary, error) {
	if path != "" {
		words, err := readFile(path)
		if err == nil && len(words) > 0 {
			d := New(name, words)
			log.Info().Str("dictionary", name).Str("path", path).Int("words", d.Size()).Msg("dictionary loaded")
			return d, nil
		}
		log.Warn().Err(err).Str("dictionary", name).Str("path", path).Msg("falling back to embedded word list")
	}
	words, err := fallback()
	if err != nil {
		return nil, fmt.Errorf("dictionary %s: %w", name, err)
	}
	d := New(name, words)
	if d.Size() == 0 {
		return nil, fmt.Errorf("dictionary %s: %w", name, ErrEmpty)
	}
	log.Info().Str("dictionary", name).Int("words", d.Size()).Msg("using embedded dictionary")
	return d, nil
}

func readFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read decodes a word list: a JSON array of strings when the input starts
// with '[', otherwise one word per line ('#' starts a comment line).
func Read(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(1)
	for err == nil && unicode.IsSpace(rune(head[0])) {
		_, _ = br.ReadByte()
		head, err = br.Peek(1)
	}
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if head[0] == '[' {
		var words []string
		if err := json.NewDecoder(br).Decode(&words); err != nil {
			return nil, fmt.Errorf("decode word array: %w", err)
		}
		return words, nil
	}

	var words []string
	sc := bufio.NewScanner(br)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		words = append(words, string(line))
	}
	return words, sc.Err()
}

func (d *Dictionary) Name() string { return d.name }
func (d *Dictionary) Size() int    { return len(d.set) }

// Contains reports whether w is a word, ignoring case.
func (d *Dictionary) Contains(w string) bool {
	_, ok := d.set[Normalize(w)]
	return ok
}

// Words returns a copy of the sorted word list.
func (d *Dictionary) Words() []string { return slices.Clone(d.words) }

// Random returns a random word of exactly length letters (any length when
// length <= 0). ok is false when no word qualifies.
func (d *Dictionary) Random(length int) (word string, ok bool) {
	pool := d.words
	if length > 0 {
		pool = lo.Filter(d.words, func(w string, _ int) bool { return len([]rune(w)) == length })
	}
	if len(pool) == 0 {
		return "", false
	}
	return pool[frand.Intn(len(pool))], true
}

// Validate checks every word against the dictionary and the used list.
// A word is valid when it is known and not already used. The context is only
// consulted before work starts; lookups themselves never block.
func (d *Dictionary) Validate(ctx context.Context, words, used []string) ([]Verdict, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	usedSet := make(map[string]struct{}, len(used))
	for _, u := range used {
		usedSet[Normalize(u)] = struct{}{}
	}

	out := make([]Verdict, 0, len(words))
	for _, w := range words {
		n := Normalize(w)
		_, known := d.set[n]
		_, dup := usedSet[n]
		v := Verdict{
			Word:         w,
			Length:       len([]rune(w)),
			InDictionary: known,
			AlreadyUsed:  dup,
			Valid:        known && !dup,
		}
		out = append(out, v)
	}
	log.Debug().
		Str("dictionary", d.name).
		Int("words", len(words)).
		Int("valid", lo.CountBy(out, func(v Verdict) bool { return v.Valid })).
		Msg("validated words")
	return out, nil
}

// Longest returns the longest valid word; the earliest wins ties.
func Longest(verdicts []Verdict) (string, bool) {
	best := -1
	for i, v := range verdicts {
		if v.Valid && (best < 0 || v.Length > verdicts[best].Length) {
			best = i
		}
	}
	if best < 0 {
		return "", false
	}
	return verdicts[best].Word, true
}

func isWord(w string) bool {
	for _, r := range w {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// Merge returns a dictionary holding the words of every input.
func Merge(name string, ds ...*Dictionary) *Dictionary {
	var all []string
	for _, d := range ds {
		all = append(all, d.words...)
	}
	return New(name, all)
}
