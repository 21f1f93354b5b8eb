package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"veriseal/pkg/platform/sentinel"
)

const disclosureKeyPrefix = "veriseal:disclosure:jti:"

// RedisTokenStore shares disclosure token state across instances. Expiry is
// delegated to key TTLs and consumption to GETDEL.
type RedisTokenStore struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func (s *RedisTokenStore) Register(ctx context.Context, jti, shipmentID string, ttl time.Duration) error {
	ok, err := s.client.SetNX(ctx, disclosureKeyPrefix+jti, shipmentID, ttl).Result()
	if err != nil {
		return fmt.Errorf("register disclosure token: %w", err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *RedisTokenStore) Consume(ctx context.Context, jti string) (string, error) {
	shipmentID, err := s.client.GetDel(ctx, disclosureKeyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrAlreadyUsed
	}
	if err != nil {
		return "", fmt.Errorf("consume disclosure token: %w", err)
	}
	return shipmentID, nil
}
