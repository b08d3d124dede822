// internal/store/redis.go
//
// Redis-backed RoomStore. Each room is one string key with a TTL, so expiry
// is handled by Redis itself. Create relies on SET NX for the one-record-per-
// code guarantee. Writes are retried with backoff before reporting
// ErrUnavailable.

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const roomKeyPrefix = "wordgames:room:"

func roomKey(code string) string { return roomKeyPrefix + code }

// Redis is a RoomStore on a single Redis node.
type Redis struct {
	rdb      *redis.Client
	ttl      time.Duration
	attempts uint
}

// NewRedis creates the client; it does not connect until first use.
func NewRedis(addr, password string, db int, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl:      ttl,
		attempts: 3,
	}
}

func (r *Redis) Create(ctx context.Context, code string, data []byte) error {
	var created bool
	err := r.retry(ctx, "create", func() error {
		ok, err := r.rdb.SetNX(ctx, roomKey(code), data, r.ttl).Result()
		created = ok
		return err
	})
	if err != nil {
		return err
	}
	if !created {
		return ErrExists
	}
	return nil
}

func (r *Redis) Load(ctx context.Context, code string) ([]byte, error) {
	data, err := r.rdb.Get(ctx, roomKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %w", ErrUnavailable, code, err)
	}
	return data, nil
}

func (r *Redis) Save(ctx context.Context, code string, data []byte) error {
	return r.retry(ctx, "save", func() error {
		return r.rdb.Set(ctx, roomKey(code), data, r.ttl).Err()
	})
}

func (r *Redis) Delete(ctx context.Context, code string) error {
	if err := r.rdb.Del(ctx, roomKey(code)).Err(); err != nil {
		return fmt.Errorf("%w: delete %s: %w", ErrUnavailable, code, err)
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) Close() error { return r.rdb.Close() }

// retry runs fn with exponential backoff, logging every failed attempt.
func (r *Redis) retry(ctx context.Context, op string, fn func() error) error {
	err := retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(r.attempts),
		retry.Delay(50*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			log.Warn().Err(err).Str("op", op).Uint("n", n).Msg("redis write failed, retrying")
			return retry.BackOffDelay(n, err, config)
		}),
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
	}
	return nil
}
