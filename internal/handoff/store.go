package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmarinho/campus-eats/internal/domain"
)

// SlotTTL bounds how long a parked snapshot stays claimable. Long enough to
// ride out the authentication redirect, short enough that stale carts die.
const SlotTTL = 15 * time.Minute

// Line is one (item, quantity) pair frozen at handoff time.
type Line struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// Snapshot is what the cart parks before redirecting to authentication.
// SessionID lets the claim side clear the originating cart on success.
type Snapshot struct {
	SessionID string    `json:"session_id"`
	Lines     []Line    `json:"lines"`
	CreatedAt time.Time `json:"created_at"`
}

// Store parks cart snapshots under fresh idempotency tokens. A snapshot can
// be taken exactly once: Take removes the slot atomically, so a page reload
// or back-navigation can never silently resubmit the same cart.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		ttl:    SlotTTL,
	}
}

func slotKey(token string) string {
	return "handoff:" + token
}

// Put serializes the snapshot under a new token and returns the token.
func (s *Store) Put(ctx context.Context, snapshot Snapshot) (string, error) {
	if len(snapshot.Lines) == 0 {
		return "", domain.ErrInvalidInput
	}
	snapshot.CreatedAt = time.Now().UTC()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("marshal handoff snapshot: %w", err)
	}

	token := uuid.New().String()
	if err := s.client.Set(ctx, slotKey(token), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("park handoff snapshot: %w", err)
	}

	return token, nil
}

// Take consumes the slot for token. The read and the delete are one step
// (GETDEL), so the second Take of a token always fails with ErrNotFound
// regardless of whether the first claim succeeded downstream.
func (s *Store) Take(ctx context.Context, token string) (*Snapshot, error) {
	data, err := s.client.GetDel(ctx, slotKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("take handoff snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		// Corrupt slot: already deleted by GETDEL, treat as gone.
		return nil, domain.ErrNotFound
	}

	return &snapshot, nil
}
