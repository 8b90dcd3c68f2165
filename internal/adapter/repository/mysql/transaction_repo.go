package mysql

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/usecase"
)

const involvesAccount = "account_id = ? OR receiver_account_id = ?"

// TransactionRepository implements usecase.TransactionLedger on MySQL.
type TransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Append(ctx context.Context, scope usecase.Scope, record *domain.TransactionRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	tx, err := txOf(ctx, scope)
	if err != nil {
		return err
	}
	return tx.Create(toTransactionModel(record)).Error
}

// snapshotReads makes the count and the page of one listing read the same InnoDB snapshot.
var snapshotReads = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

// ListByAccount returns newest first; Seq breaks timestamp ties. The count and the
// page are read inside one read-only transaction.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string, offset, limit int) ([]*domain.TransactionRecord, int64, error) {
	records := []*domain.TransactionRecord{}
	var total int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&transactionModel{}).Where(involvesAccount, accountID, accountID).Count(&total).Error; err != nil {
			return err
		}
		if total == 0 || offset < 0 || int64(offset) >= total {
			return nil
		}

		var rows []transactionModel
		err := tx.Where(involvesAccount, accountID, accountID).
			Order("created_at DESC").
			Order("seq DESC").
			Offset(offset).
			Limit(limit).
			Find(&rows).Error
		if err != nil {
			return err
		}
		for i := range rows {
			records = append(records, rows[i].toDomain())
		}
		return nil
	}, snapshotReads)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *TransactionRepository) NetByAccount(ctx context.Context, accountID string) (int64, error) {
	var net int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(CASE
			WHEN type = 'deposit' THEN amount
			WHEN type = 'withdrawal' THEN -amount
			WHEN receiver_account_id = ? THEN amount
			ELSE -amount
		END), 0)
		FROM transactions
		WHERE `+involvesAccount, accountID, accountID, accountID).Scan(&net).Error
	return net, err
}
