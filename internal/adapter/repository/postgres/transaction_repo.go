package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/infrastructure/postgres/generated"
	"github.com/iho/walletledger/internal/usecase"
)

// snapshotReads makes the count and the page of one listing see the same snapshot.
var snapshotReads = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

type txBeginner interface {
	generated.DBTX
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// TransactionRepository implements usecase.TransactionLedger.
type TransactionRepository struct {
	db      txBeginner
	queries *generated.Queries
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db txBeginner) *TransactionRepository {
	return &TransactionRepository{
		db:      db,
		queries: generated.New(db),
	}
}

// Append inserts an immutable record within tx.
func (r *TransactionRepository) Append(ctx context.Context, scope usecase.Scope, record *domain.TransactionRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	tx, err := txOf(scope)
	if err != nil {
		return err
	}

	err = r.queries.WithTx(tx).CreateTransaction(ctx, generated.CreateTransactionParams{
		ID:                record.ID,
		AccountID:         record.AccountID,
		Type:              string(record.Type),
		Amount:            record.Amount,
		SenderAccountID:   nullable(record.SenderAccountID),
		ReceiverAccountID: nullable(record.ReceiverAccountID),
		CreatedAt:         record.CreatedAt,
	})
	if pgCode(err) == pgErrForeignKeyViolation {
		return domain.ErrAccountNotFound
	}
	return err
}

// ListByAccount returns a page of the account's records and the total count, both
// read inside one read-only repeatable-read transaction.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string, offset, limit int) ([]*domain.TransactionRecord, int64, error) {
	tx, err := r.db.BeginTx(ctx, snapshotReads)
	if err != nil {
		return nil, 0, err
	}
	records, total, err := r.listPage(ctx, r.queries.WithTx(tx), accountID, offset, limit)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *TransactionRepository) listPage(ctx context.Context, q *generated.Queries, accountID string, offset, limit int) ([]*domain.TransactionRecord, int64, error) {
	total, err := q.CountTransactionsByAccount(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 || offset < 0 || int64(offset) >= total {
		return []*domain.TransactionRecord{}, total, nil
	}

	rows, err := q.ListTransactionsByAccount(ctx, generated.ListTransactionsByAccountParams{
		AccountID: accountID,
		Limit:     int32(limit),
		Offset:    int32(offset),
	})
	if err != nil {
		return nil, 0, err
	}

	records := make([]*domain.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, rowToRecord(row))
	}
	return records, total, nil
}

// NetByAccount sums the account's records with their signs.
func (r *TransactionRepository) NetByAccount(ctx context.Context, accountID string) (int64, error) {
	return r.queries.NetByAccount(ctx, accountID)
}

func rowToRecord(row generated.Transaction) *domain.TransactionRecord {
	return &domain.TransactionRecord{
		ID:                row.ID,
		AccountID:         row.AccountID,
		Type:              domain.TransactionType(row.Type),
		Amount:            row.Amount,
		SenderAccountID:   deref(row.SenderAccountID),
		ReceiverAccountID: deref(row.ReceiverAccountID),
		CreatedAt:         row.CreatedAt.UTC(),
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
