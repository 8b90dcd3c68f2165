package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/iho/walletledger/internal/domain"
)

// LedgerEngine moves money between accounts and records every movement.
// Each mutating operation is all-or-nothing and never retried internally.
type LedgerEngine struct {
	scopes       ScopeManager
	accounts     AccountStore
	ledger       TransactionLedger
	outbox       OutboxRepository
	idGen        IDGenerator
	now          func() time.Time
	scopeTimeout time.Duration
}

// EngineOption configures a LedgerEngine.
type EngineOption func(*LedgerEngine)

// WithClock overrides the clock used to stamp records. Records are stamped inside
// the scope, after every balance they touch has been locked and adjusted.
func WithClock(now func() time.Time) EngineOption {
	return func(e *LedgerEngine) { e.now = now }
}

// WithScopeTimeout overrides DefaultScopeTimeout.
func WithScopeTimeout(d time.Duration) EngineOption {
	return func(e *LedgerEngine) { e.scopeTimeout = d }
}

// NewLedgerEngine creates a new LedgerEngine. outbox may be nil.
func NewLedgerEngine(
	scopes ScopeManager,
	accounts AccountStore,
	ledger TransactionLedger,
	outbox OutboxRepository,
	idGen IDGenerator,
	opts ...EngineOption,
) *LedgerEngine {
	e := &LedgerEngine{
		scopes:       scopes,
		accounts:     accounts,
		ledger:       ledger,
		outbox:       outbox,
		idGen:        idGen,
		now:          time.Now,
		scopeTimeout: DefaultScopeTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Deposit credits amount to accountID.
func (e *LedgerEngine) Deposit(ctx context.Context, accountID string, amount int64) (*domain.TransactionRecord, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if _, err := e.accounts.Get(ctx, accountID); err != nil {
		return nil, domain.StorageFailure("deposit", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.scopeTimeout)
	defer cancel()

	var rec *domain.TransactionRecord
	err := e.inScope(ctx, "deposit", func(scope Scope) error {
		if _, err := e.accounts.AdjustBalance(ctx, scope, accountID, amount); err != nil {
			return err
		}
		rec = domain.NewDeposit(e.idGen.Generate(), accountID, amount, e.now())
		return e.record(ctx, scope, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Withdraw debits amount from accountID.
func (e *LedgerEngine) Withdraw(ctx context.Context, accountID string, amount int64) (*domain.TransactionRecord, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}
	account, err := e.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, domain.StorageFailure("withdraw", err)
	}
	if err := account.CanDebit(amount); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.scopeTimeout)
	defer cancel()

	var rec *domain.TransactionRecord
	err = e.inScope(ctx, "withdraw", func(scope Scope) error {
		if _, err := e.accounts.AdjustBalance(ctx, scope, accountID, -amount); err != nil {
			return err
		}
		rec = domain.NewWithdrawal(e.idGen.Generate(), accountID, amount, e.now())
		return e.record(ctx, scope, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Transfer moves amount from senderID to receiverID as a single record.
func (e *LedgerEngine) Transfer(ctx context.Context, senderID, receiverID string, amount int64) (*domain.TransactionRecord, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if senderID == receiverID {
		return nil, domain.ErrSameAccount
	}

	sender, err := e.accounts.Get(ctx, senderID)
	if err != nil {
		return nil, domain.StorageFailure("transfer", asParty(err, domain.ErrSenderNotFound))
	}
	if _, err := e.accounts.Get(ctx, receiverID); err != nil {
		return nil, domain.StorageFailure("transfer", asParty(err, domain.ErrReceiverNotFound))
	}
	if err := sender.CanDebit(amount); err != nil {
		return nil, err
	}

	ids := []string{senderID, receiverID}
	sort.Strings(ids)

	ctx, cancel := context.WithTimeout(ctx, e.scopeTimeout)
	defer cancel()

	var rec *domain.TransactionRecord
	err = e.inScope(ctx, "transfer", func(scope Scope) error {
		locked, err := e.accounts.LockForUpdate(ctx, scope, ids)
		if err != nil {
			return err
		}
		if err := lockedParties(locked, senderID, receiverID); err != nil {
			return err
		}
		if _, err := e.accounts.AdjustBalance(ctx, scope, senderID, -amount); err != nil {
			return asParty(err, domain.ErrSenderNotFound)
		}
		if _, err := e.accounts.AdjustBalance(ctx, scope, receiverID, amount); err != nil {
			return asParty(err, domain.ErrReceiverNotFound)
		}
		rec = domain.NewTransfer(e.idGen.Generate(), senderID, receiverID, amount, e.now())
		return e.record(ctx, scope, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListTransactions returns one page of accountID's history, newest first.
func (e *LedgerEngine) ListTransactions(ctx context.Context, accountID string, page, pageSize int) (*domain.PagedResult, error) {
	if _, err := e.accounts.Get(ctx, accountID); err != nil {
		return nil, domain.StorageFailure("list transactions", err)
	}

	page, pageSize, err := domain.NormalizePage(page, pageSize)
	if err != nil {
		return nil, err
	}

	records, total, err := e.ledger.ListByAccount(ctx, accountID, domain.Offset(page, pageSize), pageSize)
	if err != nil {
		return nil, domain.StorageFailure("list transactions", err)
	}

	totalPages := domain.TotalPages(total, pageSize)
	if total > 0 && page > totalPages {
		return nil, domain.ErrPageOutOfRange
	}
	if records == nil {
		records = []*domain.TransactionRecord{}
	}

	return &domain.PagedResult{
		Records:    records,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		TotalCount: total,
	}, nil
}

// inScope runs fn inside a fresh scope and commits it. Any failure rolls the scope back.
func (e *LedgerEngine) inScope(ctx context.Context, op string, fn func(Scope) error) error {
	scope, err := e.scopes.Begin(ctx)
	if err != nil {
		return domain.StorageFailure(op, err)
	}
	defer scope.Rollback(ctx)

	if err := fn(scope); err != nil {
		return domain.StorageFailure(op, err)
	}

	if err := scope.Commit(ctx); err != nil {
		return domain.StorageFailure(op, err)
	}
	return nil
}

func (e *LedgerEngine) record(ctx context.Context, scope Scope, rec *domain.TransactionRecord) error {
	if err := e.ledger.Append(ctx, scope, rec); err != nil {
		return err
	}
	if e.outbox == nil {
		return nil
	}
	return e.outbox.Create(ctx, scope, domain.NewTransactionCommittedEvent(e.idGen.Generate(), rec))
}

// asParty rewrites a generic not-found into the party-specific kind.
func asParty(err, party error) error {
	if domain.KindOf(err) == domain.KindAccountNotFound {
		return party
	}
	return err
}

func lockedParties(locked []*domain.Account, senderID, receiverID string) error {
	var haveSender, haveReceiver bool
	for _, a := range locked {
		switch a.ID {
		case senderID:
			haveSender = true
		case receiverID:
			haveReceiver = true
		}
	}
	if !haveSender {
		return domain.ErrSenderNotFound
	}
	if !haveReceiver {
		return domain.ErrReceiverNotFound
	}
	return nil
}
