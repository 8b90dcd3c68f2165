package usecase

import "time"

const (
	// DefaultScopeTimeout bounds a single ledger operation so row locks are never held indefinitely.
	DefaultScopeTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// AccountCacheTTL is how long the owner to account mapping is cached.
	AccountCacheTTL = time.Hour

	// IdempotencyPending is the value held under an idempotency key while its first request runs.
	IdempotencyPending = "processing"

	ownerCachePrefix = "owner:"
)
