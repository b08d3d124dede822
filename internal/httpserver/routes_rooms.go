// internal/httpserver/routes_rooms.go
//
// HTTP routes for multiplayer rooms (Scrabble and word chain).
//   - POST /api/rooms/create         → open a room, returns a session ticket
//   - POST /api/rooms/join           → join by code, returns a session ticket
//   - GET  /api/rooms/{code}         → current state
//   - POST /api/rooms/{code}/<action> → in-game actions (session token required)
//
// The token's room must match {code}; its player ID is the acting player.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/wordgames/internal/rooms"
	"github.com/robalobadob/wordgames/internal/session"
)

type ctxClaimsKey struct{}

func (s *Server) mountRooms(r chi.Router) {
	r.Route("/api/rooms", func(r chi.Router) {
		r.Post("/create", s.handleCreateRoom)
		r.Post("/join", s.handleJoinRoom)
		r.Get("/{code}", s.handleGetRoom)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Post("/{code}/start", s.roomAction(func(ctx context.Context, code, pid string, _ *http.Request) (rooms.Update, error) {
				return s.deps.Rooms.Start(ctx, code, pid)
			}))
			r.Post("/{code}/select", s.roomAction(func(ctx context.Context, code, pid string, req *http.Request) (rooms.Update, error) {
				var body rooms.Select
				if err := decode(req, &body); err != nil {
					return rooms.Update{}, err
				}
				return s.deps.Rooms.Select(ctx, code, pid, body)
			}))
			r.Post("/{code}/place", s.roomAction(func(ctx context.Context, code, pid string, req *http.Request) (rooms.Update, error) {
				var body rooms.Place
				if err := decode(req, &body); err != nil {
					return rooms.Update{}, err
				}
				return s.deps.Rooms.Place(ctx, code, pid, body)
			}))
			r.Post("/{code}/remove", s.roomAction(func(ctx context.Context, code, pid string, req *http.Request) (rooms.Update, error) {
				var body rooms.Position
				if err := decode(req, &body); err != nil {
					return rooms.Update{}, err
				}
				return s.deps.Rooms.Remove(ctx, code, pid, body)
			}))
			r.Post("/{code}/clear", s.roomAction(func(ctx context.Context, code, pid string, _ *http.Request) (rooms.Update, error) {
				return s.deps.Rooms.Clear(ctx, code, pid)
			}))
			r.Post("/{code}/submit", s.roomAction(func(ctx context.Context, code, pid string, _ *http.Request) (rooms.Update, error) {
				return s.deps.Rooms.Submit(ctx, code, pid)
			}))
			r.Post("/{code}/pass", s.roomAction(func(ctx context.Context, code, pid string, _ *http.Request) (rooms.Update, error) {
				return s.deps.Rooms.Pass(ctx, code, pid)
			}))
			r.Post("/{code}/leave", s.roomAction(func(ctx context.Context, code, pid string, _ *http.Request) (rooms.Update, error) {
				return s.deps.Rooms.Leave(ctx, code, pid)
			}))
			r.Post("/{code}/state", s.roomAction(func(ctx context.Context, code, pid string, req *http.Request) (rooms.Update, error) {
				var body struct {
					GameState json.RawMessage `json:"gameState"`
				}
				if err := decode(req, &body); err != nil {
					return rooms.Update{}, err
				}
				return s.deps.Rooms.ReplaceState(ctx, code, pid, body.GameState)
			}))
		})
	})
}

// requireSession verifies the room session token and checks that it was
// issued for the room in the URL.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := session.FromRequest(r)
		if tok == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		claims, err := s.deps.Rooms.Claims(tok)
		if err != nil {
			fail(w, err)
			return
		}
		if claims.RoomCode != rooms.NormalizeCode(chi.URLParam(r, "code")) {
			writeError(w, http.StatusForbidden, "token not valid for this room")
			return
		}
		ctx := context.WithValue(r.Context(), ctxClaimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type actionFunc func(ctx context.Context, code, playerID string, r *http.Request) (rooms.Update, error)

// roomAction adapts an in-game action to an HTTP handler.
func (s *Server) roomAction(fn actionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := r.Context().Value(ctxClaimsKey{}).(*session.Claims)
		if claims == nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		up, err := fn(r.Context(), claims.RoomCode, claims.PlayerID, r)
		if err != nil {
			if bad, ok := err.(badRequest); ok {
				writeError(w, http.StatusBadRequest, bad.Error())
				return
			}
			fail(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(up)
	}
}

type badRequest struct{ error }

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest{err}
	}
	return nil
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req rooms.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	t, err := s.deps.Rooms.Create(r.Context(), req)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

type joinReq struct {
	RoomCode   string `json:"roomCode"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Token      string `json:"token"` // proves ownership of playerId on rejoin
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var req joinReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.RoomCode == "" {
		writeError(w, http.StatusBadRequest, "Room code is required")
		return
	}
	tok := session.FromRequest(r)
	if tok == "" {
		tok = req.Token
	}
	t, err := s.deps.Rooms.Join(r.Context(), req.RoomCode, req.PlayerID, req.PlayerName, tok)
	if err != nil {
		fail(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(t)
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.deps.Rooms.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		fail(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]json.RawMessage{"room": room})
}
