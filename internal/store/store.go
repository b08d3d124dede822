// internal/store/store.go
//
// Persistence for room state.
//
// Rooms are stored as opaque JSON blobs keyed by room code; the room service
// owns encoding. Every backend guarantees:
//   - at most one record per code (Create fails with ErrExists),
//   - automatic expiry of rooms not saved for TTL,
//   - ErrNotFound for unknown or expired codes.
//
// Backends: memory (default), redis, sqlite.

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrNotFound    = errors.New("store: room not found")
	ErrExists      = errors.New("store: room code taken")
	ErrUnavailable = errors.New("store: backend unavailable")
)

// DefaultTTL matches the two hour lifetime of an abandoned room.
const DefaultTTL = 2 * time.Hour

// RoomStore defines the persistence interface for rooms.
type RoomStore interface {
	// Create inserts a new room. It fails with ErrExists if code is live.
	Create(ctx context.Context, code string, data []byte) error
	// Load returns the stored blob or ErrNotFound.
	Load(ctx context.Context, code string) ([]byte, error)
	// Save upserts the blob and restarts its expiry clock.
	Save(ctx context.Context, code string, data []byte) error
	Delete(ctx context.Context, code string) error
	Ping(ctx context.Context) error
	Close() error
}

// Sweeper is implemented by backends that must purge expired rows
// themselves (Redis expires keys on its own).
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Options selects and configures a backend.
type Options struct {
	Backend       string // memory | redis | sqlite
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string
	TTL           time.Duration
}

// Open returns the configured backend, verified with Ping.
func Open(ctx context.Context, o Options) (RoomStore, error) {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	var (
		s   RoomStore
		err error
	)
	switch o.Backend {
	case "", "memory":
		s = NewMemory(o.TTL)
	case "redis":
		s = NewRedis(o.RedisAddr, o.RedisPassword, o.RedisDB, o.TTL)
	case "sqlite":
		s, err = OpenSQLite(o.SQLitePath, o.TTL)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", o.Backend)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Ping(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	log.Info().Str("backend", o.Backend).Dur("ttl", o.TTL).Msg("room store ready")
	return s, nil
}

// RunSweeper purges expired rooms every interval until ctx is done. It is a
// no-op when s does not implement Sweeper.
func RunSweeper(ctx context.Context, s any, interval time.Duration) error {
	sw, ok := s.(Sweeper)
	if !ok {
		return nil
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n, err := sw.Sweep(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("room sweep failed")
				continue
			}
			if n > 0 {
				log.Info().Int("rooms", n).Msg("expired rooms purged")
			}
		}
	}
}
