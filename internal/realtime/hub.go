// internal/realtime/hub.go
//
// WebSocket hub: connections grouped by room code.
//
// Frames are JSON objects {"event": "...", "data": ...} in both directions.
// Each connection owns a buffered send queue drained by a single writer
// goroutine, so broadcasts never block on a slow peer; a full queue or a
// failed write drops the connection.
//
// Broadcast delivers locally and, when a Publisher is attached (NATS relay),
// forwards the frame to the other server nodes.

package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Server → client events.
const (
	EventConnected        = "connected"
	EventRoomUpdated      = "room-updated"
	EventGameStateUpdated = "game-state-updated"
	EventSession          = "session" // token issued to this connection after join-room
	EventError            = "error"
)

// Client → server messages.
const (
	MsgJoinRoom        = "join-room"
	MsgLeaveRoom       = "leave-room"
	MsgUpdateGameState = "update-game-state"
	MsgStart           = "start"
	MsgSelect          = "select"
	MsgPlace           = "place"
	MsgRemove          = "remove"
	MsgClear           = "clear"
	MsgSubmit          = "submit"
	MsgPass            = "pass"
)

const (
	sendBuffer = 32
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 64 << 10
)

// Message is one frame read from a client.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Broadcaster is what the room service needs from the realtime layer.
type Broadcaster interface {
	Broadcast(code, event string, payload any)
}

// Publisher forwards an encoded frame to other nodes.
type Publisher interface {
	Publish(code string, frame []byte) error
}

// Handler processes a client message. It runs on the connection's read
// goroutine.
type Handler func(c *Client, msg Message)

// Client is one WebSocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once

	mu       sync.Mutex
	room     string
	playerID string
}

// Room returns the room the client currently listens to.
func (c *Client) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// PlayerID returns the player bound to the connection, if any.
func (c *Client) PlayerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

// Bind records the authenticated player of the connection.
func (c *Client) Bind(playerID string) {
	c.mu.Lock()
	c.playerID = playerID
	c.mu.Unlock()
}

// Emit sends an event to this client only.
func (c *Client) Emit(event string, payload any) {
	b, err := json.Marshal(frame{Event: event, Data: payload})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("encode frame")
		return
	}
	c.enqueue(b)
}

// EmitError sends an error event with a message.
func (c *Client) EmitError(msg string) {
	c.Emit(EventError, map[string]string{"message": msg})
}

func (c *Client) enqueue(b []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		log.Warn().Str("room", c.Room()).Msg("send queue full, dropping connection")
		c.close()
		return false
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				log.Debug().Err(err).Msg("ws write failed")
				c.hub.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.remove(c)
				return
			}
		}
	}
}

// Hub groups connections by room code.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
	pub   Publisher

	upgrader websocket.Upgrader
}

// NewHub returns an empty hub. Origins are checked by the HTTP layer's CORS
// policy, not here.
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// SetPublisher attaches a cross-node fan-out. Call before serving.
func (h *Hub) SetPublisher(p Publisher) { h.pub = p }

// Serve upgrades the request and pumps messages into handle until the peer
// goes away. room may be empty; the client then joins via a join-room message.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, room string, handle Handler) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	c := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
	go c.writePump()
	if room != "" {
		h.Join(c, room)
	}
	c.Emit(EventConnected, map[string]string{"message": "Welcome!", "room": room})
	log.Debug().Str("room", room).Str("remote", r.RemoteAddr).Msg("ws connected")

	defer func() {
		h.remove(c)
		log.Debug().Str("room", c.Room()).Msg("ws disconnected")
	}()

	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("ws read")
			}
			return
		}
		if handle != nil {
			handle(c, msg)
		}
	}
}

// Join moves c into room, leaving any previous room.
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.mu.Lock()
	prev := c.room
	c.room = room
	c.mu.Unlock()
	if prev != "" {
		h.detach(c, prev)
	}
	set, ok := h.rooms[room]
	if !ok {
		set = make(map[*Client]struct{})
		h.rooms[room] = set
	}
	set[c] = struct{}{}
}

// Leave removes c from its room; the connection stays open.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.mu.Lock()
	prev := c.room
	c.room = ""
	c.mu.Unlock()
	if prev != "" {
		h.detach(c, prev)
	}
}

func (h *Hub) remove(c *Client) {
	h.Leave(c)
	c.close()
}

// detach must run with h.mu held.
func (h *Hub) detach(c *Client, room string) {
	set := h.rooms[room]
	delete(set, c)
	if len(set) == 0 {
		delete(h.rooms, room)
	}
}

// Count returns the number of connections in room.
func (h *Hub) Count(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Broadcast sends event to every connection in room and to the other nodes.
// Delivery is best effort.
func (h *Hub) Broadcast(code, event string, payload any) {
	b, err := json.Marshal(frame{Event: event, Data: payload})
	if err != nil {
		log.Error().Err(err).Str("room", code).Str("event", event).Msg("encode broadcast")
		return
	}
	h.Deliver(code, b)
	if h.pub != nil {
		if err := h.pub.Publish(code, b); err != nil {
			log.Warn().Err(err).Str("room", code).Msg("relay publish failed")
		}
	}
}

// Deliver writes an already encoded frame to the local connections of code.
func (h *Hub) Deliver(code string, b []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[code]))
	for c := range h.rooms[code] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.enqueue(b) {
			h.Leave(c)
		}
	}
}
