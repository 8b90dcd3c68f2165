package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/walletledger/internal/usecase"
)

// PendingMarker is stored under a key while its first request is still running.
const PendingMarker = usecase.IdempotencyPending

// IdempotencyStore implements usecase.IdempotencyStore using Redis.
type IdempotencyStore struct {
	client *redis.Client
	prefix string
	guard  guard
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(client *redis.Client, opts ...Option) *IdempotencyStore {
	return &IdempotencyStore{
		client: client,
		prefix: "idempotency:",
		guard:  newGuard(opts),
	}
}

// CheckAndSet claims key with SETNX. When the key was already claimed it reports
// exists=true with the stored value, which is PendingMarker while the first request runs.
// A nil response claims the key with PendingMarker.
func (s *IdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	fullKey := s.prefix + key
	if response == nil {
		response = []byte(PendingMarker)
	}

	var (
		exists   bool
		existing []byte
	)
	err := s.guard.do(func() error {
		set, err := s.client.SetNX(ctx, fullKey, response, ttl).Result()
		if err != nil {
			return err
		}
		if set {
			return nil
		}

		exists = true
		existing, err = s.client.Get(ctx, fullKey).Bytes()
		if errors.Is(err, redis.Nil) {
			// expired between the two calls
			existing = []byte(PendingMarker)
			return nil
		}
		return err
	})
	if err != nil {
		return false, nil, err
	}
	return exists, existing, nil
}

// Update replaces the stored value for key with the final response.
func (s *IdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	return s.guard.do(func() error {
		return s.client.Set(ctx, s.prefix+key, response, ttl).Err()
	})
}

// Release drops a claimed key so the request can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.guard.do(func() error {
		return s.client.Del(ctx, s.prefix+key).Err()
	})
}
