package session

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParse(t *testing.T) {
	iss := NewIssuer("s3cret", time.Hour)
	tok, exp, err := iss.Sign("ABC123", "p1", "Ada")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	c, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "ABC123", c.RoomCode)
	assert.Equal(t, "p1", c.PlayerID)
	assert.Equal(t, "Ada", c.PlayerName)
	assert.Equal(t, "p1", c.Subject)
}

func TestParseRejects(t *testing.T) {
	iss := NewIssuer("s3cret", time.Hour)
	tok, _, err := iss.Sign("ABC123", "p1", "Ada")
	require.NoError(t, err)

	_, err = NewIssuer("other", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = iss.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	iss.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = iss.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")

	blank, _, err := NewIssuer("s3cret", time.Hour).Sign("", "p1", "Ada")
	require.NoError(t, err)
	_, err = NewIssuer("s3cret", time.Hour).Parse(blank)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?room_code=ABC123&token=qtok", nil)
	assert.Equal(t, "qtok", FromRequest(r))

	r.Header.Set("Authorization", "Bearer htok")
	assert.Equal(t, "htok", FromRequest(r))

	r = httptest.NewRequest("GET", "/", nil)
	assert.Empty(t, FromRequest(r))
}
