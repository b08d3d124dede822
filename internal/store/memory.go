// internal/store/memory.go
//
// In-memory implementations of RoomStore and GameStore.
//
// Characteristics:
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.
//   - Expired rooms read as missing and are purged by Sweep.

package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/robalobadob/wordgames/internal/wordle"
)

type roomEntry struct {
	data    []byte
	expires time.Time
}

// Memory is a map-backed RoomStore.
type Memory struct {
	mu    sync.RWMutex
	rooms map[string]roomEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewMemory constructs an empty in-memory room store.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{rooms: make(map[string]roomEntry), ttl: ttl, now: time.Now}
}

func (m *Memory) Create(_ context.Context, code string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.rooms[code]; ok && m.now().Before(e.expires) {
		return ErrExists
	}
	m.rooms[code] = roomEntry{data: slices.Clone(data), expires: m.now().Add(m.ttl)}
	return nil
}

func (m *Memory) Load(_ context.Context, code string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.rooms[code]
	if !ok || !m.now().Before(e.expires) {
		return nil, ErrNotFound
	}
	return slices.Clone(e.data), nil
}

func (m *Memory) Save(_ context.Context, code string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[code] = roomEntry{data: slices.Clone(data), expires: m.now().Add(m.ttl)}
	return nil
}

func (m *Memory) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, code)
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }
func (m *Memory) Close() error               { return nil }

// Sweep drops expired rooms and reports how many went.
func (m *Memory) Sweep(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	now := m.now()
	for code, e := range m.rooms {
		if !now.Before(e.expires) {
			delete(m.rooms, code)
			n++
		}
	}
	return n, nil
}

// GameStore persists Wordle sessions.
type GameStore interface {
	// Save persists or updates a game state.
	Save(ctx context.Context, g *wordle.Game) error
	// Get retrieves a game by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*wordle.Game, error)
}

// memoryGames is an in-memory map-based GameStore.
type memoryGames struct {
	mu    sync.RWMutex
	games map[string]*wordle.Game
}

// NewMemoryGames constructs a new in-memory GameStore.
func NewMemoryGames() GameStore {
	return &memoryGames{games: make(map[string]*wordle.Game)}
}

func (m *memoryGames) Save(_ context.Context, g *wordle.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[g.ID] = g
	return nil
}

func (m *memoryGames) Get(_ context.Context, id string) (*wordle.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.games[id]; ok {
		return g, nil
	}
	return nil, ErrNotFound
}
