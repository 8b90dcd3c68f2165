package memory

import (
	"context"
	"time"

	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/usecase"
)

// AccountRepository implements usecase.AccountStore.
type AccountRepository struct {
	store *Store
}

func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

// Create stages a new account. Owner uniqueness is checked now and again at commit.
func (r *AccountRepository) Create(_ context.Context, scope usecase.Scope, account *domain.Account) error {
	sc, err := scopeOf(scope)
	if err != nil {
		return err
	}

	r.store.mu.Lock()
	_, taken := r.store.byOwner[account.OwnerID]
	r.store.mu.Unlock()
	if taken {
		return domain.ErrAccountAlreadyExists
	}
	for _, a := range sc.created {
		if a.OwnerID == account.OwnerID {
			return domain.ErrAccountAlreadyExists
		}
	}

	cp := *account
	sc.created = append(sc.created, &cp)
	return nil
}

func (r *AccountRepository) Get(_ context.Context, id string) (*domain.Account, error) {
	a, ok := r.store.account(id)
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return a, nil
}

func (r *AccountRepository) GetByOwner(ctx context.Context, ownerID string) (*domain.Account, error) {
	r.store.mu.Lock()
	id, ok := r.store.byOwner[ownerID]
	r.store.mu.Unlock()
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return r.Get(ctx, id)
}

// LockForUpdate acquires account locks in the order given.
func (r *AccountRepository) LockForUpdate(ctx context.Context, scope usecase.Scope, ids []string) ([]*domain.Account, error) {
	sc, err := scopeOf(scope)
	if err != nil {
		return nil, err
	}

	accounts := make([]*domain.Account, 0, len(ids))
	for _, id := range ids {
		if err := sc.lock(ctx, id); err != nil {
			return nil, err
		}
		if a, ok := sc.view(id); ok {
			cp := *a
			accounts = append(accounts, &cp)
		}
	}
	return accounts, nil
}

// AdjustBalance locks the account and stages balance+delta when it stays non-negative.
func (r *AccountRepository) AdjustBalance(ctx context.Context, scope usecase.Scope, id string, delta int64) (*domain.Account, error) {
	if delta == 0 {
		return nil, domain.ErrInvalidAmount
	}
	sc, err := scopeOf(scope)
	if err != nil {
		return nil, err
	}
	if err := sc.lock(ctx, id); err != nil {
		return nil, err
	}

	a, ok := sc.view(id)
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	next, err := a.Apply(delta)
	if err != nil {
		return nil, err
	}
	a.Balance = next
	a.Version++
	a.UpdatedAt = time.Now().UTC()

	cp := *a
	return &cp, nil
}
