// internal/httpserver/routes_ws.go
//
// WebSocket endpoint: GET /ws?room_code=&token=
//
// A connection listens to one room. It is bound to a player either by the
// token query parameter or by a join-room message (which also joins the
// room and answers with a "session" event carrying a fresh token). Game
// actions act as the bound player; the service enforces whose turn it is.
//
// Failures are reported to the sender as "error" events; state changes reach
// everybody in the room through the hub broadcast.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordgames/internal/realtime"
	"github.com/robalobadob/wordgames/internal/rooms"
	"github.com/robalobadob/wordgames/internal/session"
)

type wsJoin struct {
	RoomCode   string `json:"roomCode"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Token      string `json:"token"`
}

type wsState struct {
	GameState json.RawMessage `json:"gameState"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.deps.Hub == nil {
		writeError(w, http.StatusServiceUnavailable, "realtime disabled")
		return
	}
	room := rooms.NormalizeCode(r.URL.Query().Get("room_code"))
	var claims *session.Claims
	if tok := session.FromRequest(r); tok != "" {
		c, err := s.deps.Rooms.Claims(tok)
		if err != nil {
			fail(w, err)
			return
		}
		claims = c
		room = c.RoomCode
	}

	ctx := r.Context()
	s.deps.Hub.Serve(w, r, room, func(c *realtime.Client, msg realtime.Message) {
		if claims != nil && c.PlayerID() == "" {
			c.Bind(claims.PlayerID)
		}
		s.dispatch(ctx, c, msg)
	})
}

// dispatch handles one client message.
func (s *Server) dispatch(parent context.Context, c *realtime.Client, msg realtime.Message) {
	ctx, cancel := context.WithTimeout(parent, s.opts.RequestTimeout)
	defer cancel()

	var err error
	switch msg.Event {
	case realtime.MsgJoinRoom:
		err = s.wsJoin(ctx, c, msg.Data)
	case realtime.MsgLeaveRoom:
		err = s.wsLeave(ctx, c)
	case realtime.MsgUpdateGameState:
		var in wsState
		if err = unmarshal(msg.Data, &in); err == nil {
			err = s.wsAct(c, func(code, pid string) (rooms.Update, error) {
				return s.deps.Rooms.ReplaceState(ctx, code, pid, in.GameState)
			})
		}
	case realtime.MsgStart:
		err = s.wsAct(c, func(code, pid string) (rooms.Update, error) { return s.deps.Rooms.Start(ctx, code, pid) })
	case realtime.MsgSelect:
		var in rooms.Select
		if err = unmarshal(msg.Data, &in); err == nil {
			err = s.wsAct(c, func(code, pid string) (rooms.Update, error) { return s.deps.Rooms.Select(ctx, code, pid, in) })
		}
	case realtime.MsgPlace:
		var in rooms.Place
		if err = unmarshal(msg.Data, &in); err == nil {
			err = s.wsAct(c, func(code, pid string) (rooms.Update, error) { return s.deps.Rooms.Place(ctx, code, pid, in) })
		}
	case realtime.MsgRemove:
		var in rooms.Position
		if err = unmarshal(msg.Data, &in); err == nil {
			err = s.wsAct(c, func(code, pid string) (rooms.Update, error) { return s.deps.Rooms.Remove(ctx, code, pid, in) })
		}
	case realtime.MsgClear:
		err = s.wsAct(c, func(code, pid string) (rooms.Update, error) { return s.deps.Rooms.Clear(ctx, code, pid) })
	case realtime.MsgSubmit:
		err = s.wsAct(c, func(code, pid string) (rooms.Update, error) { return s.deps.Rooms.Submit(ctx, code, pid) })
	case realtime.MsgPass:
		err = s.wsAct(c, func(code, pid string) (rooms.Update, error) { return s.deps.Rooms.Pass(ctx, code, pid) })
	default:
		log.Debug().Str("event", msg.Event).Msg("unknown ws message")
		c.EmitError("Unknown event " + msg.Event)
		return
	}
	if err != nil {
		_, text := statusFor(err)
		if _, bad := err.(badRequest); bad {
			text = "Malformed message"
		}
		c.EmitError(text)
	}
}

func unmarshal(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return badRequest{err}
	}
	return nil
}

func (s *Server) wsJoin(ctx context.Context, c *realtime.Client, data json.RawMessage) error {
	var in wsJoin
	if err := unmarshal(data, &in); err != nil {
		return err
	}
	code := rooms.NormalizeCode(in.RoomCode)
	if code == "" || in.PlayerName == "" {
		c.EmitError("Missing required fields")
		return nil
	}
	// Listen first so this connection sees its own room-updated broadcast.
	s.deps.Hub.Join(c, code)
	t, err := s.deps.Rooms.Join(ctx, code, in.PlayerID, in.PlayerName, in.Token)
	if err != nil {
		s.deps.Hub.Leave(c)
		return err
	}
	c.Bind(t.PlayerID)
	c.Emit(realtime.EventSession, map[string]any{
		"roomCode":  t.RoomCode,
		"playerId":  t.PlayerID,
		"token":     t.Token,
		"expiresAt": t.ExpiresAt,
	})
	return nil
}

func (s *Server) wsLeave(ctx context.Context, c *realtime.Client) error {
	code, pid := c.Room(), c.PlayerID()
	s.deps.Hub.Leave(c)
	if code == "" || pid == "" {
		return nil
	}
	_, err := s.deps.Rooms.Leave(ctx, code, pid)
	c.Bind("")
	return err
}

// wsAct runs an in-game action as the connection's player. Rejected moves
// go back to the sender only; accepted ones are broadcast by the service.
func (s *Server) wsAct(c *realtime.Client, fn func(code, pid string) (rooms.Update, error)) error {
	code, pid := c.Room(), c.PlayerID()
	if code == "" || pid == "" {
		c.EmitError("Join a room first")
		return nil
	}
	up, err := fn(code, pid)
	if err != nil {
		return err
	}
	if !up.OK && up.Reason != "" {
		c.EmitError(up.Reason)
	}
	return nil
}
