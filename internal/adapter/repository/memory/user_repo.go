package memory

import (
	"context"

	"github.com/iho/walletledger/internal/domain"
)

// UserRepository implements usecase.UserStore. Users are keyed by normalized email.
type UserRepository struct {
	store *Store
}

func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, taken := r.store.users[user.Email]; taken {
		return domain.ErrUserAlreadyExists
	}
	cp := *user
	r.store.users[user.Email] = &cp
	return nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	u, ok := r.store.users[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}
