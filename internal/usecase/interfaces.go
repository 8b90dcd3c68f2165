package usecase

import (
	"context"
	"time"

	"github.com/iho/walletledger/internal/domain"
)

// AccountStore defines data access for accounts. Only the balance changes after creation.
type AccountStore interface {
	Create(ctx context.Context, scope Scope, account *domain.Account) error
	Get(ctx context.Context, id string) (*domain.Account, error)
	GetByOwner(ctx context.Context, ownerID string) (*domain.Account, error)
	// LockForUpdate locks the accounts in the given order and returns the ones that exist.
	LockForUpdate(ctx context.Context, scope Scope, ids []string) ([]*domain.Account, error)
	// AdjustBalance atomically applies delta, failing with domain.ErrInsufficientFunds
	// and no mutation when the balance would go negative.
	AdjustBalance(ctx context.Context, scope Scope, id string, delta int64) (*domain.Account, error)
}

// TransactionLedger defines data access for the append-only transaction log.
type TransactionLedger interface {
	Append(ctx context.Context, scope Scope, record *domain.TransactionRecord) error
	// ListByAccount returns records where the account is the actor or the receiver, newest first,
	// together with the total number of such records.
	ListByAccount(ctx context.Context, accountID string, offset, limit int) ([]*domain.TransactionRecord, int64, error)
	NetByAccount(ctx context.Context, accountID string) (int64, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, scope Scope, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// UserStore defines data access for registered users.
type UserStore interface {
	// Create stores a new user, failing with domain.ErrUserAlreadyExists when the email is taken.
	Create(ctx context.Context, user *domain.User) error
	// GetByEmail looks a user up by normalized email, failing with domain.ErrUserNotFound.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// TokenIssuer signs access tokens whose subject is the owner id.
type TokenIssuer interface {
	Generate(ownerID string) (string, error)
}

// Scope is an atomic unit of work. Rollback after Commit is a no-op.
type Scope interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// ScopeManager opens scopes.
type ScopeManager interface {
	Begin(ctx context.Context) (Scope, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claimed key so the request can be retried.
	Release(ctx context.Context, key string) error
}
