// internal/httpserver/errors.go
//
// Mapping from domain errors to HTTP responses.
//
// Expected rejections of a move are not errors (they come back as 200 with
// ok=false); everything here is a request the server could not carry out.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordgames/internal/match"
	"github.com/robalobadob/wordgames/internal/rooms"
	"github.com/robalobadob/wordgames/internal/session"
	"github.com/robalobadob/wordgames/internal/store"
	"github.com/robalobadob/wordgames/internal/wordle"
)

// statusFor returns the HTTP status and client message for err.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Room not found"
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable, "Room store unavailable"
	case errors.Is(err, match.ErrDictionary):
		return http.StatusBadGateway, "Dictionary unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Request timed out"
	case errors.Is(err, session.ErrInvalidToken):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, rooms.ErrNotHost), errors.Is(err, match.ErrUnknownPlayer):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, match.ErrNotYourTurn),
		errors.Is(err, match.ErrNotPlaying),
		errors.Is(err, match.ErrNotWaiting),
		errors.Is(err, match.ErrRoomFull),
		errors.Is(err, match.ErrDuplicateID),
		errors.Is(err, match.ErrNoPlayers),
		errors.Is(err, wordle.ErrFinished):
		return http.StatusConflict, err.Error()
	case errors.Is(err, rooms.ErrBadVariant),
		errors.Is(err, rooms.ErrMissingName),
		errors.Is(err, rooms.ErrBadState),
		errors.Is(err, wordle.ErrInvalidGuess),
		errors.Is(err, wordle.ErrUnknownWord):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// fail writes err as a JSON error, logging server-side failures.
func fail(w http.ResponseWriter, err error) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", code).Msg("request failed")
	}
	writeError(w, code, msg)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
