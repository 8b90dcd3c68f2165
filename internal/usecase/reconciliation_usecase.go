package usecase

import (
	"context"
	"time"

	"github.com/iho/walletledger/internal/domain"
)

// ReconciliationUseCase compares stored balances with the transaction log.
type ReconciliationUseCase struct {
	accounts AccountStore
	ledger   TransactionLedger
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(accounts AccountStore, ledger TransactionLedger) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		accounts: accounts,
		ledger:   ledger,
	}
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	AccountID         string
	Currency          string
	RecordedBalance   int64
	CalculatedBalance int64
	Difference        int64
	IsReconciled      bool
	LastChecked       time.Time
}

// ReconcileAccount recomputes the balance of accountID from its records.
// Balances start at zero, so the signed sum of records must equal the stored balance.
func (uc *ReconciliationUseCase) ReconcileAccount(ctx context.Context, accountID string) (*ReconciliationResult, error) {
	account, err := uc.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, domain.StorageFailure("reconcile", err)
	}

	net, err := uc.ledger.NetByAccount(ctx, accountID)
	if err != nil {
		return nil, domain.StorageFailure("reconcile", err)
	}

	diff := account.Balance - net
	return &ReconciliationResult{
		AccountID:         accountID,
		Currency:          account.Currency,
		RecordedBalance:   account.Balance,
		CalculatedBalance: net,
		Difference:        diff,
		IsReconciled:      diff == 0,
		LastChecked:       time.Now().UTC(),
	}, nil
}
