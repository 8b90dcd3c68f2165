package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/infrastructure/postgres/generated"
	"github.com/iho/walletledger/internal/usecase"
)

// AccountRepository implements usecase.AccountStore.
type AccountRepository struct {
	queries *generated.Queries
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db generated.DBTX) *AccountRepository {
	return &AccountRepository{
		queries: generated.New(db),
	}
}

// Create inserts the account within tx.
func (r *AccountRepository) Create(ctx context.Context, scope usecase.Scope, account *domain.Account) error {
	tx, err := txOf(scope)
	if err != nil {
		return err
	}

	_, err = r.queries.WithTx(tx).CreateAccount(ctx, generated.CreateAccountParams{
		ID:        account.ID,
		OwnerID:   account.OwnerID,
		Currency:  account.Currency,
		Balance:   account.Balance,
		Version:   account.Version,
		CreatedAt: account.CreatedAt,
		UpdatedAt: account.UpdatedAt,
	})
	if pgCode(err) == pgErrUniqueViolation {
		return domain.ErrAccountAlreadyExists
	}
	return err
}

// Get retrieves an account by ID.
func (r *AccountRepository) Get(ctx context.Context, id string) (*domain.Account, error) {
	row, err := r.queries.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}

	return rowToAccount(row), nil
}

// GetByOwner retrieves the account of ownerID.
func (r *AccountRepository) GetByOwner(ctx context.Context, ownerID string) (*domain.Account, error) {
	row, err := r.queries.GetAccountByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}

	return rowToAccount(row), nil
}

// LockForUpdate takes row locks with SELECT ... FOR UPDATE ordered by id.
func (r *AccountRepository) LockForUpdate(ctx context.Context, scope usecase.Scope, ids []string) ([]*domain.Account, error) {
	tx, err := txOf(scope)
	if err != nil {
		return nil, err
	}

	rows, err := r.queries.WithTx(tx).GetAccountsByIDsForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}

	accounts := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, rowToAccount(row))
	}

	return accounts, nil
}

// AdjustBalance runs a conditional UPDATE; when no row matches, the account is either
// missing or would go negative.
func (r *AccountRepository) AdjustBalance(ctx context.Context, scope usecase.Scope, id string, delta int64) (*domain.Account, error) {
	if delta == 0 {
		return nil, domain.ErrInvalidAmount
	}
	tx, err := txOf(scope)
	if err != nil {
		return nil, err
	}
	q := r.queries.WithTx(tx)

	row, err := q.AdjustAccountBalance(ctx, generated.AdjustAccountBalanceParams{
		Delta:     delta,
		UpdatedAt: time.Now().UTC(),
		ID:        id,
	})
	if err == nil {
		return rowToAccount(row), nil
	}
	switch pgCode(err) {
	case pgErrCheckViolation:
		return nil, domain.ErrInsufficientFunds
	case pgErrNumericOutOfRange:
		return nil, domain.ErrBalanceOverflow
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	if _, err := q.GetAccountByID(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return nil, domain.ErrInsufficientFunds
}

func rowToAccount(row generated.Account) *domain.Account {
	return &domain.Account{
		ID:        row.ID,
		OwnerID:   row.OwnerID,
		Currency:  row.Currency,
		Balance:   row.Balance,
		Version:   row.Version,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}
