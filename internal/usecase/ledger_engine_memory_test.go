package usecase_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/walletledger/internal/adapter/repository/memory"
	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/infrastructure/idgen"
	"github.com/iho/walletledger/internal/usecase"
)

type memoryLedger struct {
	store    *memory.Store
	scopes   *memory.ScopeManager
	accounts *memory.AccountRepository
	txs      *memory.TransactionRepository
	outbox   *memory.OutboxRepository
	idGen    usecase.IDGenerator
}

func newMemoryLedger() *memoryLedger {
	s := memory.NewStore()
	return &memoryLedger{
		store:    s,
		scopes:   memory.NewScopeManager(s),
		accounts: memory.NewAccountRepository(s),
		txs:      memory.NewTransactionRepository(s),
		outbox:   memory.NewOutboxRepository(s),
		idGen:    idgen.NewULIDGenerator(),
	}
}

func (l *memoryLedger) engine(ledger usecase.TransactionLedger, opts ...usecase.EngineOption) *usecase.LedgerEngine {
	if ledger == nil {
		ledger = l.txs
	}
	return usecase.NewLedgerEngine(l.scopes, l.accounts, ledger, l.outbox, l.idGen, opts...)
}

func (l *memoryLedger) open(t *testing.T, owner string) *domain.Account {
	t.Helper()
	uc := usecase.NewAccountUseCase(l.scopes, l.accounts, l.outbox, l.idGen, nil)
	acc, err := uc.CreateAccount(context.Background(), owner, "NGN")
	require.NoError(t, err)
	return acc
}

func (l *memoryLedger) balance(t *testing.T, id string) int64 {
	t.Helper()
	acc, err := l.accounts.Get(context.Background(), id)
	require.NoError(t, err)
	return acc.Balance
}

// failingLedger fails every Append after the balance has already been staged.
type failingLedger struct {
	*memory.TransactionRepository
}

func (f failingLedger) Append(context.Context, usecase.Scope, *domain.TransactionRecord) error {
	return errors.New("injected append failure")
}

// adjustLog notes every balance adjustment so tests can order it against clock reads.
type adjustLog struct {
	*memory.AccountRepository
	log *[]string
}

func (a adjustLog) AdjustBalance(ctx context.Context, scope usecase.Scope, id string, delta int64) (*domain.Account, error) {
	*a.log = append(*a.log, "adjust")
	return a.AccountRepository.AdjustBalance(ctx, scope, id, delta)
}

func TestLedger_Scenario(t *testing.T) {
	l := newMemoryLedger()
	e := l.engine(nil)
	ctx := context.Background()

	a := l.open(t, "owner-a")
	b := l.open(t, "owner-b")

	_, err := e.Deposit(ctx, a.ID, 100)
	require.NoError(t, err)

	_, err = e.Transfer(ctx, a.ID, b.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(70), l.balance(t, a.ID))
	assert.Equal(t, int64(30), l.balance(t, b.ID))

	_, err = e.Withdraw(ctx, b.ID, 50)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, int64(30), l.balance(t, b.ID))

	_, err = e.Transfer(ctx, a.ID, a.ID, 10)
	assert.ErrorIs(t, err, domain.ErrSameAccount)

	hist, err := e.ListTransactions(ctx, a.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, hist.Records, 2)
	assert.Equal(t, domain.TransactionTransfer, hist.Records[0].Type)
	assert.Equal(t, domain.TransactionDeposit, hist.Records[1].Type)

	hist, err = e.ListTransactions(ctx, b.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, hist.Records, 1)
	assert.Equal(t, b.ID, hist.Records[0].ReceiverAccountID)
}

func TestLedger_DepositWithdrawRoundTrip(t *testing.T) {
	l := newMemoryLedger()
	e := l.engine(nil)
	ctx := context.Background()
	a := l.open(t, "owner-a")

	_, err := e.Deposit(ctx, a.ID, 40)
	require.NoError(t, err)
	before := l.balance(t, a.ID)

	_, err = e.Deposit(ctx, a.ID, 25)
	require.NoError(t, err)
	_, err = e.Withdraw(ctx, a.ID, 25)
	require.NoError(t, err)

	assert.Equal(t, before, l.balance(t, a.ID))

	res, err := e.ListTransactions(ctx, a.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.TotalCount)
}

func TestLedger_TransferConservesMoney(t *testing.T) {
	l := newMemoryLedger()
	e := l.engine(nil)
	ctx := context.Background()
	a := l.open(t, "owner-a")
	b := l.open(t, "owner-b")

	_, err := e.Deposit(ctx, a.ID, 500)
	require.NoError(t, err)
	_, err = e.Deposit(ctx, b.ID, 200)
	require.NoError(t, err)

	amounts := []int64{1, 50, 199, 500, 3}
	for i, amt := range amounts {
		from, to := a.ID, b.ID
		if i%2 == 1 {
			from, to = b.ID, a.ID
		}
		_, _ = e.Transfer(ctx, from, to, amt)
		assert.Equal(t, int64(700), l.balance(t, a.ID)+l.balance(t, b.ID))
		assert.GreaterOrEqual(t, l.balance(t, a.ID), int64(0))
		assert.GreaterOrEqual(t, l.balance(t, b.ID), int64(0))
	}
}

func TestLedger_AtomicityOnInjectedFault(t *testing.T) {
	l := newMemoryLedger()
	ctx := context.Background()
	a := l.open(t, "owner-a")
	b := l.open(t, "owner-b")

	_, err := l.engine(nil).Deposit(ctx, a.ID, 100)
	require.NoError(t, err)

	broken := l.engine(failingLedger{l.txs})

	_, err = broken.Transfer(ctx, a.ID, b.ID, 60)
	assert.Equal(t, domain.KindStorageFailure, domain.KindOf(err))

	_, err = broken.Deposit(ctx, b.ID, 10)
	assert.Equal(t, domain.KindStorageFailure, domain.KindOf(err))

	assert.Equal(t, int64(100), l.balance(t, a.ID))
	assert.Equal(t, int64(0), l.balance(t, b.ID))

	hist, err := l.engine(nil).ListTransactions(ctx, a.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), hist.TotalCount)

	// the failed scopes released their locks
	_, err = l.engine(nil).Transfer(ctx, a.ID, b.ID, 60)
	require.NoError(t, err)
}

func TestLedger_ConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	l := newMemoryLedger()
	e := l.engine(nil)
	ctx := context.Background()
	a := l.open(t, "owner-a")

	_, err := e.Deposit(ctx, a.ID, 100)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var ok, insufficient atomic.Int32
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Withdraw(ctx, a.ID, 80)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrInsufficientFunds):
				insufficient.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(1), insufficient.Load())
	assert.Equal(t, int64(20), l.balance(t, a.ID))
}

func TestLedger_OpposingTransfersDoNotDeadlock(t *testing.T) {
	l := newMemoryLedger()
	e := l.engine(nil, usecase.WithScopeTimeout(5*time.Second))
	ctx := context.Background()
	a := l.open(t, "owner-a")
	b := l.open(t, "owner-b")

	_, err := e.Deposit(ctx, a.ID, 1000)
	require.NoError(t, err)
	_, err = e.Deposit(ctx, b.ID, 1000)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := e.Transfer(ctx, a.ID, b.ID, 7)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := e.Transfer(ctx, b.ID, a.ID, 7)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(2000), l.balance(t, a.ID)+l.balance(t, b.ID))
	assert.Equal(t, int64(1000), l.balance(t, a.ID))
}

func TestLedger_Pagination(t *testing.T) {
	l := newMemoryLedger()
	fixed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	e := l.engine(nil, usecase.WithClock(func() time.Time { return fixed }))
	ctx := context.Background()
	a := l.open(t, "owner-a")

	var ids []string
	for i := 1; i <= 25; i++ {
		rec, err := e.Deposit(ctx, a.ID, int64(i))
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	seen := make([]string, 0, 25)
	for page := 1; page <= 3; page++ {
		res, err := e.ListTransactions(ctx, a.ID, page, 10)
		require.NoError(t, err)
		assert.Equal(t, 3, res.TotalPages)
		assert.Equal(t, int64(25), res.TotalCount)
		for _, r := range res.Records {
			seen = append(seen, r.ID)
		}
	}
	require.Len(t, seen, 25)

	// identical timestamps fall back to insertion order, newest first
	for i, id := range seen {
		assert.Equal(t, ids[len(ids)-1-i], id)
	}

	last, err := e.ListTransactions(ctx, a.ID, 3, 10)
	require.NoError(t, err)
	assert.Len(t, last.Records, 5)

	_, err = e.ListTransactions(ctx, a.ID, 4, 10)
	assert.ErrorIs(t, err, domain.ErrPageOutOfRange)
}

func TestLedger_PageOffsetOverflow(t *testing.T) {
	l := newMemoryLedger()
	e := l.engine(nil)
	ctx := context.Background()
	a := l.open(t, "owner-a")

	_, err := e.Deposit(ctx, a.ID, 5)
	require.NoError(t, err)

	for _, tc := range []struct{ page, size int }{
		{math.MaxInt, 10},
		{math.MaxInt / 10, 10},
		{math.MaxInt/100 + 2, domain.MaxPageSize},
		{math.MaxInt, 1},
	} {
		require.NotPanics(t, func() {
			_, err = e.ListTransactions(ctx, a.ID, tc.page, tc.size)
		})
		assert.ErrorIs(t, err, domain.ErrPageOutOfRange, "page %d size %d", tc.page, tc.size)
	}

	fresh := l.open(t, "owner-b")
	_, err = e.ListTransactions(ctx, fresh.ID, math.MaxInt, 10)
	assert.ErrorIs(t, err, domain.ErrPageOutOfRange)
}

func TestLedger_DepositRejectsOverflow(t *testing.T) {
	l := newMemoryLedger()
	e := l.engine(nil)
	ctx := context.Background()
	a := l.open(t, "owner-a")

	_, err := e.Deposit(ctx, a.ID, math.MaxInt64)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = e.Deposit(ctx, a.ID, domain.MaxAmount+1)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = e.Withdraw(ctx, a.ID, domain.MaxAmount+1)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.Zero(t, l.balance(t, a.ID))

	// stage a balance one short of the int64 ceiling
	scope, err := l.scopes.Begin(ctx)
	require.NoError(t, err)
	_, err = l.accounts.AdjustBalance(ctx, scope, a.ID, math.MaxInt64-1)
	require.NoError(t, err)
	require.NoError(t, scope.Commit(ctx))

	_, err = e.Deposit(ctx, a.ID, 1)
	require.NoError(t, err)

	_, err = e.Deposit(ctx, a.ID, 1)
	assert.ErrorIs(t, err, domain.ErrBalanceOverflow)
	assert.Equal(t, domain.KindInvalidAmount, domain.KindOf(err))
	assert.NotErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, int64(math.MaxInt64), l.balance(t, a.ID))

	b := l.open(t, "owner-b")
	_, err = e.Deposit(ctx, b.ID, 10)
	require.NoError(t, err)
	_, err = e.Transfer(ctx, b.ID, a.ID, 10)
	assert.ErrorIs(t, err, domain.ErrBalanceOverflow)
	assert.Equal(t, int64(10), l.balance(t, b.ID))
}

func TestLedger_RecordsStampedAfterBalanceChange(t *testing.T) {
	l := newMemoryLedger()
	ctx := context.Background()
	a := l.open(t, "owner-a")
	b := l.open(t, "owner-b")

	var log []string
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		log = append(log, "clock")
		return base.Add(time.Duration(len(log)) * time.Second)
	}
	e := usecase.NewLedgerEngine(l.scopes, adjustLog{l.accounts, &log}, l.txs, l.outbox, l.idGen, usecase.WithClock(clock))

	_, err := e.Deposit(ctx, a.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"adjust", "clock"}, log)

	log = nil
	_, err = e.Transfer(ctx, a.ID, b.ID, 40)
	require.NoError(t, err)
	assert.Equal(t, []string{"adjust", "adjust", "clock"}, log)

	log = nil
	_, err = e.Withdraw(ctx, b.ID, 40)
	require.NoError(t, err)
	assert.Equal(t, []string{"adjust", "clock"}, log)

	log = nil
	_, err = e.Withdraw(ctx, b.ID, 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Empty(t, log)
}

func TestLedger_ConcurrentDepositsListInCommitOrder(t *testing.T) {
	l := newMemoryLedger()
	var tick atomic.Int64
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	e := l.engine(nil, usecase.WithClock(func() time.Time {
		return base.Add(time.Duration(tick.Add(1)) * time.Millisecond)
	}))
	ctx := context.Background()
	a := l.open(t, "owner-a")

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(amount int64) {
			defer wg.Done()
			_, err := e.Deposit(ctx, a.ID, amount)
			assert.NoError(t, err)
		}(int64(i + 1))
	}
	wg.Wait()

	res, err := e.ListTransactions(ctx, a.ID, 1, 40)
	require.NoError(t, err)
	require.Len(t, res.Records, 40)

	events, err := l.outbox.GetUnpublished(ctx, 100)
	require.NoError(t, err)
	var committed []string
	for _, ev := range events {
		if ev.EventType == domain.EventTypeTransactionCommitted {
			committed = append(committed, ev.AggregateID)
		}
	}
	require.Len(t, committed, 40)

	for i, rec := range res.Records {
		assert.Equal(t, committed[len(committed)-1-i], rec.ID)
		if i > 0 {
			assert.True(t, rec.CreatedAt.Before(res.Records[i-1].CreatedAt))
		}
	}
}

func TestLedger_OutboxEventsCommittedWithMovement(t *testing.T) {
	l := newMemoryLedger()
	e := l.engine(nil)
	ctx := context.Background()
	a := l.open(t, "owner-a")

	_, err := e.Deposit(ctx, a.ID, 10)
	require.NoError(t, err)
	_, err = e.Withdraw(ctx, a.ID, 20)
	require.Error(t, err)

	events, err := l.outbox.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventTypeAccountCreated, events[0].EventType)
	assert.Equal(t, domain.EventTypeTransactionCommitted, events[1].EventType)
	assert.Equal(t, "10", events[1].Payload["amount"])
}
