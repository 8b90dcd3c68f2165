package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/walletledger/internal/infrastructure/breaker"
)

// ErrCacheMiss is returned by Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Option configures the Redis adapters.
type Option func(*guard)

// WithBreaker routes every Redis call through b.
func WithBreaker(b *breaker.Breaker) Option {
	return func(g *guard) { g.breaker = b }
}

type guard struct {
	breaker *breaker.Breaker
}

func newGuard(opts []Option) guard {
	var g guard
	for _, opt := range opts {
		opt(&g)
	}
	return g
}

func (g guard) do(fn func() error) error {
	if g.breaker == nil {
		return fn()
	}
	return g.breaker.Execute(fn)
}

// Cache implements usecase.Cache using Redis.
type Cache struct {
	client *redis.Client
	prefix string
	guard  guard
}

// NewCache creates a new Cache.
func NewCache(client *redis.Client, opts ...Option) *Cache {
	return &Cache{
		client: client,
		prefix: "cache:",
		guard:  newGuard(opts),
	}
}

// Get retrieves a value by key. A miss does not count against the breaker.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		val  []byte
		miss bool
	)
	err := c.guard.do(func() error {
		var err error
		val, err = c.client.Get(ctx, c.prefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			miss = true
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if miss {
		return nil, ErrCacheMiss
	}
	return val, nil
}

// Set stores a value with TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.guard.do(func() error {
		return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
	})
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.guard.do(func() error {
		return c.client.Del(ctx, c.prefix+key).Err()
	})
}
