// assets/embed.go
//
// Embedded defaults so the server runs without any configured files:
//   - dictionary.txt: word chain / Scrabble fallback dictionary.
//   - answers.txt, allowed.txt: Wordle answer and guess lists.
//   - letters.yaml: tile counts and letter scores.

package assets

import (
	"bufio"
	"embed"
	"io/fs"
	"strings"
)

//go:embed allowed.txt answers.txt dictionary.txt letters.yaml
var FS embed.FS

func readLines(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

func AnswersList() ([]string, error) {
	return readLines("answers.txt")
}

func AllowedList() ([]string, error) {
	return readLines("allowed.txt")
}

// DictionaryList is the fallback dictionary for the board variants.
func DictionaryList() ([]string, error) {
	return readLines("dictionary.txt")
}

// Letters returns the raw letter distribution document.
func Letters() ([]byte, error) {
	return fs.ReadFile(FS, "letters.yaml")
}
