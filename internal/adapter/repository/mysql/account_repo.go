package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/usecase"
)

// AccountRepository implements usecase.AccountStore on MySQL.
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, scope usecase.Scope, account *domain.Account) error {
	tx, err := txOf(ctx, scope)
	if err != nil {
		return err
	}
	err = tx.Create(toAccountModel(account)).Error
	if isDuplicate(err) {
		return domain.ErrAccountAlreadyExists
	}
	return err
}

func (r *AccountRepository) Get(ctx context.Context, id string) (*domain.Account, error) {
	return findAccount(r.db.WithContext(ctx), "id = ?", id)
}

func (r *AccountRepository) GetByOwner(ctx context.Context, ownerID string) (*domain.Account, error) {
	return findAccount(r.db.WithContext(ctx), "owner_id = ?", ownerID)
}

// LockForUpdate takes row locks with SELECT ... FOR UPDATE ordered by id.
func (r *AccountRepository) LockForUpdate(ctx context.Context, scope usecase.Scope, ids []string) ([]*domain.Account, error) {
	tx, err := txOf(ctx, scope)
	if err != nil {
		return nil, err
	}

	var rows []accountModel
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	accounts := make([]*domain.Account, 0, len(rows))
	for i := range rows {
		accounts = append(accounts, rows[i].toDomain())
	}
	return accounts, nil
}

// AdjustBalance applies delta with a guarded UPDATE. Zero affected rows means the
// account is missing or the balance would go negative.
func (r *AccountRepository) AdjustBalance(ctx context.Context, scope usecase.Scope, id string, delta int64) (*domain.Account, error) {
	if delta == 0 {
		return nil, domain.ErrInvalidAmount
	}
	tx, err := txOf(ctx, scope)
	if err != nil {
		return nil, err
	}

	res := tx.Model(&accountModel{}).
		Where("id = ? AND balance + ? >= 0", id, delta).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance + ?", delta),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		if errNumber(res.Error) == errOutOfRange {
			return nil, domain.ErrBalanceOverflow
		}
		return nil, res.Error
	}

	acc, err := findAccount(tx, "id = ?", id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrInsufficientFunds
	}
	return acc, nil
}

func findAccount(db *gorm.DB, query string, arg string) (*domain.Account, error) {
	var m accountModel
	if err := db.Where(query, arg).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return m.toDomain(), nil
}
