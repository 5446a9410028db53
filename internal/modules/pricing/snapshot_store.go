// README: Quote hold store backed by Redis; issued quotes stay retrievable until they expire.
package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const quoteKeyPrefix = "pricing:quote:%s"

type HoldStore struct {
	redis *redis.Client
}

func NewHoldStore(redis *redis.Client) *HoldStore {
	return &HoldStore{redis: redis}
}

// Save stores the quote until ttl elapses.
func (s *HoldStore) Save(ctx context.Context, q Quote, ttl time.Duration) error {
	b, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode quote: %w", err)
	}
	if err := s.redis.Set(ctx, quoteKey(q.ID), b, ttl).Err(); err != nil {
		return fmt.Errorf("save quote: %w", err)
	}
	return nil
}

func (s *HoldStore) Get(ctx context.Context, id string) (Quote, error) {
	b, err := s.redis.Get(ctx, quoteKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Quote{}, ErrQuoteNotFound
	}
	if err != nil {
		return Quote{}, fmt.Errorf("get quote: %w", err)
	}
	var q Quote
	if err := json.Unmarshal(b, &q); err != nil {
		return Quote{}, fmt.Errorf("decode quote: %w", err)
	}
	return q, nil
}

func quoteKey(id string) string {
	return fmt.Sprintf(quoteKeyPrefix, id)
}
