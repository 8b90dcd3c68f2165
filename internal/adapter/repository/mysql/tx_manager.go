package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/iho/walletledger/internal/usecase"
)

// TxManager implements usecase.ScopeManager over gorm transactions.
type TxManager struct {
	db *gorm.DB
}

// NewTxManager creates a new TxManager.
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// Begin starts a new transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Scope, error) {
	tx := m.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &Tx{db: tx}, nil
}

// Tx wraps a gorm transaction handle.
type Tx struct {
	db   *gorm.DB
	done bool
}

// Commit commits the transaction.
func (t *Tx) Commit(context.Context) error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	return t.db.Commit().Error
}

// Rollback rolls back the transaction. Rolling back a finished transaction is a no-op.
func (t *Tx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.db.Rollback().Error; err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func txOf(ctx context.Context, scope usecase.Scope) (*gorm.DB, error) {
	tx, ok := scope.(*Tx)
	if !ok {
		return nil, fmt.Errorf("mysql: unsupported scope %T", scope)
	}
	if tx.done {
		return nil, sql.ErrTxDone
	}
	return tx.db.WithContext(ctx), nil
}
