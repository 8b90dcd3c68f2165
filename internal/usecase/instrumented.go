package usecase

import (
	"context"
	"time"

	"github.com/iho/walletledger/internal/domain"
)

// Ledger is the operation surface of LedgerEngine.
type Ledger interface {
	Deposit(ctx context.Context, accountID string, amount int64) (*domain.TransactionRecord, error)
	Withdraw(ctx context.Context, accountID string, amount int64) (*domain.TransactionRecord, error)
	Transfer(ctx context.Context, senderID, receiverID string, amount int64) (*domain.TransactionRecord, error)
	ListTransactions(ctx context.Context, accountID string, page, pageSize int) (*domain.PagedResult, error)
}

// Observer receives ledger operation outcomes. outcome is "ok" or an error kind name.
type Observer interface {
	ObserveLedgerOperation(op, outcome string, duration time.Duration)
	ObserveLedgerAmount(op string, amount int64)
}

// InstrumentedLedger reports every call on the wrapped Ledger to an Observer.
type InstrumentedLedger struct {
	next Ledger
	obs  Observer
}

func NewInstrumentedLedger(next Ledger, obs Observer) *InstrumentedLedger {
	return &InstrumentedLedger{next: next, obs: obs}
}

func (l *InstrumentedLedger) Deposit(ctx context.Context, accountID string, amount int64) (*domain.TransactionRecord, error) {
	start := time.Now()
	rec, err := l.next.Deposit(ctx, accountID, amount)
	l.observe("deposit", start, amount, err)
	return rec, err
}

func (l *InstrumentedLedger) Withdraw(ctx context.Context, accountID string, amount int64) (*domain.TransactionRecord, error) {
	start := time.Now()
	rec, err := l.next.Withdraw(ctx, accountID, amount)
	l.observe("withdraw", start, amount, err)
	return rec, err
}

func (l *InstrumentedLedger) Transfer(ctx context.Context, senderID, receiverID string, amount int64) (*domain.TransactionRecord, error) {
	start := time.Now()
	rec, err := l.next.Transfer(ctx, senderID, receiverID, amount)
	l.observe("transfer", start, amount, err)
	return rec, err
}

func (l *InstrumentedLedger) ListTransactions(ctx context.Context, accountID string, page, pageSize int) (*domain.PagedResult, error) {
	start := time.Now()
	res, err := l.next.ListTransactions(ctx, accountID, page, pageSize)
	l.observe("list_transactions", start, 0, err)
	return res, err
}

func (l *InstrumentedLedger) observe(op string, start time.Time, amount int64, err error) {
	outcome := "ok"
	if err != nil {
		outcome = domain.KindOf(err).String()
	} else if amount > 0 {
		l.obs.ObserveLedgerAmount(op, amount)
	}
	l.obs.ObserveLedgerOperation(op, outcome, time.Since(start))
}
