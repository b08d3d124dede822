// internal/session/session.go
//
// Room session tokens.
//
// A token is an HS256 JWT issued when a player creates or joins a room. It
// names the room and the player, and is what HTTP and WebSocket handlers use
// to decide who is acting. There are no accounts: the token is the identity.

package session

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL matches the room lifetime.
const DefaultTTL = 2 * time.Hour

var ErrInvalidToken = errors.New("session: invalid token")

// Claims identify one player in one room.
type Claims struct {
	RoomCode   string `json:"roomCode"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies room tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer. An empty secret falls back to a development
// value.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if secret == "" {
		secret = "dev_secret_change_me"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign issues a token for playerID in roomCode.
func (i *Issuer) Sign(roomCode, playerID, playerName string) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RoomCode:   roomCode,
		PlayerID:   playerID,
		PlayerName: playerName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	ss, err := t.SignedString(i.secret)
	return ss, exp, err
}

// Parse verifies tok and returns its claims.
func (i *Issuer) Parse(tok string) (*Claims, error) {
	var c Claims
	t, err := jwt.ParseWithClaims(tok, &c, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !t.Valid {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if c.RoomCode == "" || c.PlayerID == "" {
		return nil, ErrInvalidToken
	}
	return &c, nil
}

// FromRequest extracts a token from "Authorization: Bearer <token>" or the
// token query parameter (browsers cannot set headers on WebSocket upgrades).
func FromRequest(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	return r.URL.Query().Get("token")
}
