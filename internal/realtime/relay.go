// internal/realtime/relay.go
//
// NATS fan-out so that several server nodes can share rooms.
//
// Every local broadcast is published to wordgames.rooms.<code> wrapped with the
// publishing node's ID. Each node subscribes to wordgames.rooms.* and delivers
// frames from other nodes to its own connections; its own frames are skipped
// because they were already delivered locally.

package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// SubjectPrefix namespaces room subjects.
const SubjectPrefix = "wordgames.rooms."

// Subject returns the NATS subject of a room.
func Subject(code string) string { return SubjectPrefix + code }

type envelope struct {
	Node  string          `json:"node"`
	Room  string          `json:"room"`
	Frame json.RawMessage `json:"frame"`
}

// RelayOptions configures the NATS connection.
type RelayOptions struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
}

// Relay bridges a Hub to NATS.
type Relay struct {
	nc   *nats.Conn
	hub  *Hub
	node string
}

// NewRelay connects to NATS and attaches itself to hub as its Publisher.
func NewRelay(hub *Hub, o RelayOptions) (*Relay, error) {
	if o.MaxReconnects == 0 {
		o.MaxReconnects = -1
	}
	if o.ReconnectWait <= 0 {
		o.ReconnectWait = 2 * time.Second
	}
	if o.Name == "" {
		o.Name = "wordgames"
	}
	opts := []nats.Option{
		nats.Name(o.Name),
		nats.MaxReconnects(o.MaxReconnects),
		nats.ReconnectWait(o.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("disconnected from NATS")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("reconnected to NATS")
		}),
		nats.Timeout(5 * time.Second),
	}
	nc, err := nats.Connect(o.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", o.URL, err)
	}
	r := &Relay{nc: nc, hub: hub, node: uuid.NewString()}
	hub.SetPublisher(r)
	return r, nil
}

// Node returns the ID this relay stamps on outgoing frames.
func (r *Relay) Node() string { return r.node }

// Publish implements Publisher.
func (r *Relay) Publish(code string, frame []byte) error {
	b, err := json.Marshal(envelope{Node: r.node, Room: code, Frame: frame})
	if err != nil {
		return err
	}
	return r.nc.Publish(Subject(code), b)
}

// Run subscribes to every room subject and delivers remote frames until ctx
// is done, then drains the connection.
func (r *Relay) Run(ctx context.Context) error {
	sub, err := r.nc.Subscribe(SubjectPrefix+"*", r.handle)
	if err != nil {
		return fmt.Errorf("subscribe rooms: %w", err)
	}
	log.Info().Str("node", r.node).Str("subject", sub.Subject).Msg("nats relay running")

	<-ctx.Done()
	_ = sub.Unsubscribe()
	if err := r.nc.Drain(); err != nil {
		log.Warn().Err(err).Msg("nats drain")
	}
	return nil
}

func (r *Relay) handle(msg *nats.Msg) {
	var env envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		log.Warn().Err(err).Str("subject", msg.Subject).Msg("bad relay frame")
		return
	}
	if env.Node == r.node {
		return
	}
	room := env.Room
	if room == "" {
		room = strings.TrimPrefix(msg.Subject, SubjectPrefix)
	}
	r.hub.Deliver(room, env.Frame)
}

// Close closes the NATS connection without draining.
func (r *Relay) Close() {
	if r.nc != nil {
		r.nc.Close()
	}
}
