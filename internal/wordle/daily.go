// internal/wordle/daily.go
//
// Daily puzzle selection: HMAC(salt, YYYY-MM-DD) picks the same answer on
// every node without coordination.

package wordle

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// WordIndex returns a deterministic index for a date using
// HMAC(salt, YYYY-MM-DD) % n.
func WordIndex(date time.Time, salt string, n int) int {
	if n <= 0 {
		return 0
	}
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	// first 8 bytes for the modulus
	v := binary.BigEndian.Uint64(sum[:8])
	return int(v % uint64(n))
}

// Daily picks the answer of the day from answers, which must be in a stable
// order across restarts.
func Daily(date time.Time, salt string, answers []string) (key, answer string, ok bool) {
	key = DateKey(date)
	if len(answers) == 0 {
		return key, "", false
	}
	return key, answers[WordIndex(date, salt, len(answers))], true
}

// NewDaily starts a game on the answer of the day.
func NewDaily(date time.Time, salt string, answers []string) (*Game, bool) {
	key, answer, ok := Daily(date, salt, answers)
	if !ok {
		return nil, false
	}
	g := New(answer)
	g.Daily = key
	return g, true
}
