package usecase

import (
	"context"
	"time"

	"github.com/iho/walletledger/internal/domain"
)

// AccountUseCase handles account business logic.
type AccountUseCase struct {
	scopes   ScopeManager
	accounts AccountStore
	outbox   OutboxRepository
	idGen    IDGenerator
	cache    Cache
	cacheTTL time.Duration
}

// NewAccountUseCase creates a new AccountUseCase. outbox and cache may be nil.
func NewAccountUseCase(scopes ScopeManager, accounts AccountStore, outbox OutboxRepository, idGen IDGenerator, cache Cache) *AccountUseCase {
	return &AccountUseCase{
		scopes:   scopes,
		accounts: accounts,
		outbox:   outbox,
		idGen:    idGen,
		cache:    cache,
		cacheTTL: AccountCacheTTL,
	}
}

// WithCacheTTL overrides how long the owner mapping stays cached.
func (uc *AccountUseCase) WithCacheTTL(ttl time.Duration) *AccountUseCase {
	if ttl > 0 {
		uc.cacheTTL = ttl
	}
	return uc
}

// CreateAccount opens a zero-balance account for ownerID.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, ownerID, currency string) (*domain.Account, error) {
	if err := domain.ValidateCurrency(currency); err != nil {
		return nil, err
	}

	account := domain.NewAccount(uc.idGen.Generate(), ownerID, currency, time.Now())

	scope, err := uc.scopes.Begin(ctx)
	if err != nil {
		return nil, domain.StorageFailure("create account", err)
	}
	defer scope.Rollback(ctx)

	if err := uc.accounts.Create(ctx, scope, account); err != nil {
		return nil, domain.StorageFailure("create account", err)
	}

	if uc.outbox != nil {
		if err := uc.outbox.Create(ctx, scope, domain.NewAccountCreatedEvent(uc.idGen.Generate(), account)); err != nil {
			return nil, domain.StorageFailure("create account", err)
		}
	}

	if err := scope.Commit(ctx); err != nil {
		return nil, domain.StorageFailure("create account", err)
	}

	uc.remember(ctx, account)
	return account, nil
}

// GetAccount returns the account owned by ownerID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, ownerID string) (*domain.Account, error) {
	if uc.cache != nil {
		if id, err := uc.cache.Get(ctx, ownerCachePrefix+ownerID); err == nil && len(id) > 0 {
			account, err := uc.accounts.Get(ctx, string(id))
			if err == nil && account.OwnerID == ownerID {
				return account, nil
			}
		}
	}

	account, err := uc.accounts.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, domain.StorageFailure("get account", err)
	}
	uc.remember(ctx, account)
	return account, nil
}

// GetAccountByID retrieves an account by ID.
func (uc *AccountUseCase) GetAccountByID(ctx context.Context, id string) (*domain.Account, error) {
	account, err := uc.accounts.Get(ctx, id)
	if err != nil {
		return nil, domain.StorageFailure("get account", err)
	}
	return account, nil
}

// remember caches the owner mapping. Cache errors are ignored; the store stays authoritative.
func (uc *AccountUseCase) remember(ctx context.Context, account *domain.Account) {
	if uc.cache == nil {
		return
	}
	_ = uc.cache.Set(ctx, ownerCachePrefix+account.OwnerID, []byte(account.ID), uc.cacheTTL)
}
