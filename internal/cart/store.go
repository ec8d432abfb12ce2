package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by a Store when no snapshot exists for the session.
var ErrMiss = errors.New("cart snapshot miss")

// Store mirrors cart snapshots per session. The mirror is a best-effort
// cache so a reload does not lose the cart; it is never the system of
// record, and corrupt data is discarded rather than surfaced.
type Store interface {
	Load(ctx context.Context, sessionID string) ([]Entry, error)
	Save(ctx context.Context, sessionID string, entries []Entry) error
	Delete(ctx context.Context, sessionID string) error
}

type RedisStore struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:  client,
		baseTTL: 24 * time.Hour,
	}
}

func storeKey(sessionID string) string {
	return "cart:" + sessionID
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) ([]Entry, error) {
	data, err := s.client.Get(ctx, storeKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		// Corrupt snapshot: drop it instead of breaking the load path.
		_ = s.client.Del(ctx, storeKey(sessionID)).Err()
		return nil, ErrMiss
	}

	return entries, nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, entries []Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal cart snapshot failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(10)) * time.Minute
	if err := s.client.Set(ctx, storeKey(sessionID), data, s.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, storeKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}
