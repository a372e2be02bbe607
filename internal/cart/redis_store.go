package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// cartTTL bounds how long an abandoned cart survives in Redis.
const cartTTL = 30 * 24 * time.Hour

// RedisStore persists each cart as a single JSON value so a browser session
// keeps its cart across reloads.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Store backed by the given Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func cartKey(id uuid.UUID) string {
	return fmt.Sprintf("cart:%s", id)
}

// Load reads the persisted cart. A missing key or unparseable payload loads
// as an empty cart; parse failures are swallowed.
func (s *RedisStore) Load(ctx context.Context, id uuid.UUID) ([]LineItem, error) {
	raw, err := s.client.Get(ctx, cartKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	var lines []LineItem
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, nil
	}
	return lines, nil
}

// Save writes the whole cart as one JSON value.
func (s *RedisStore) Save(ctx context.Context, id uuid.UUID, lines []LineItem) error {
	raw, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	if err := s.client.Set(ctx, cartKey(id), raw, cartTTL).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

// Clear removes the persisted cart.
func (s *RedisStore) Clear(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Del(ctx, cartKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
