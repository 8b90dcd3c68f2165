// Package ledgertest runs the same ledger behaviour checks against any storage backend.
package ledgertest

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/infrastructure/idgen"
	"github.com/iho/walletledger/internal/infrastructure/retry"
	"github.com/iho/walletledger/internal/usecase"
)

// Backend is one storage implementation of the ledger ports.
type Backend struct {
	Scopes    usecase.ScopeManager
	Accounts  usecase.AccountStore
	Ledger    usecase.TransactionLedger
	Outbox    usecase.OutboxRepository
	Retryable retry.Classifier
	// Users is optional; the users subtest is skipped when it is nil.
	Users usecase.UserStore
}

type harness struct {
	t        *testing.T
	backend  Backend
	idGen    usecase.IDGenerator
	accounts *usecase.AccountUseCase
	engine   *usecase.LedgerEngine
	retrier  *retry.Retrier
}

// Run exercises deposits, withdrawals, transfers, history paging and the outbox.
// Owners are unique per run, so backends may share a database between runs.
func Run(t *testing.T, b Backend) {
	t.Helper()

	h := &harness{
		t:       t,
		backend: b,
		idGen:   idgen.NewULIDGenerator(),
		retrier: retry.New(b.Retryable, 25, zerolog.Nop()),
	}
	h.accounts = usecase.NewAccountUseCase(b.Scopes, b.Accounts, b.Outbox, h.idGen, nil)
	h.engine = usecase.NewLedgerEngine(b.Scopes, b.Accounts, b.Ledger, b.Outbox, h.idGen,
		usecase.WithScopeTimeout(10*time.Second))

	t.Run("scenario", h.scenario)
	t.Run("one account per owner", h.oneAccountPerOwner)
	t.Run("concurrent withdrawals never overdraw", h.concurrentWithdrawals)
	t.Run("opposing transfers conserve money", h.opposingTransfers)
	t.Run("pagination", h.pagination)
	t.Run("balance overflow", h.overflow)
	t.Run("outbox", h.outbox)
	if b.Users != nil {
		t.Run("users", h.users)
	}
}

func (h *harness) open(t *testing.T) *domain.Account {
	t.Helper()
	acc, err := h.accounts.CreateAccount(context.Background(), "owner-"+h.idGen.Generate(), "NGN")
	require.NoError(t, err)
	assert.Zero(t, acc.Balance)
	return acc
}

func (h *harness) balance(t *testing.T, id string) int64 {
	t.Helper()
	acc, err := h.backend.Accounts.Get(context.Background(), id)
	require.NoError(t, err)
	return acc.Balance
}

func (h *harness) retry(ctx context.Context, fn func() error) error {
	return h.retrier.Retry(ctx, fn)
}

func (h *harness) reconciled(t *testing.T, ids ...string) {
	t.Helper()
	uc := usecase.NewReconciliationUseCase(h.backend.Accounts, h.backend.Ledger)
	for _, id := range ids {
		res, err := uc.ReconcileAccount(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, res.IsReconciled, "account %s off by %d", id, res.Difference)
	}
}

func (h *harness) scenario(t *testing.T) {
	ctx := context.Background()
	a := h.open(t)
	b := h.open(t)

	_, err := h.engine.Deposit(ctx, a.ID, 100)
	require.NoError(t, err)

	rec, err := h.engine.Transfer(ctx, a.ID, b.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, a.ID, rec.SenderAccountID)
	assert.Equal(t, b.ID, rec.ReceiverAccountID)

	assert.Equal(t, int64(70), h.balance(t, a.ID))
	assert.Equal(t, int64(30), h.balance(t, b.ID))

	_, err = h.engine.Withdraw(ctx, b.ID, 50)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, int64(30), h.balance(t, b.ID))

	_, err = h.engine.Transfer(ctx, a.ID, a.ID, 1)
	assert.ErrorIs(t, err, domain.ErrSameAccount)

	_, err = h.engine.Transfer(ctx, "missing-"+h.idGen.Generate(), b.ID, 1)
	assert.ErrorIs(t, err, domain.ErrSenderNotFound)

	_, err = h.engine.Transfer(ctx, a.ID, "missing-"+h.idGen.Generate(), 1)
	assert.ErrorIs(t, err, domain.ErrReceiverNotFound)
	assert.Equal(t, int64(70), h.balance(t, a.ID))

	_, err = h.engine.Deposit(ctx, a.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	hist, err := h.engine.ListTransactions(ctx, b.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, hist.Records, 1)
	assert.Equal(t, domain.TransactionTransfer, hist.Records[0].Type)

	h.reconciled(t, a.ID, b.ID)
}

func (h *harness) oneAccountPerOwner(t *testing.T) {
	ctx := context.Background()
	owner := "owner-" + h.idGen.Generate()

	_, err := h.accounts.CreateAccount(ctx, owner, "NGN")
	require.NoError(t, err)

	_, err = h.accounts.CreateAccount(ctx, owner, "USD")
	assert.ErrorIs(t, err, domain.ErrAccountAlreadyExists)

	got, err := h.accounts.GetAccount(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, "NGN", got.Currency)
}

func (h *harness) concurrentWithdrawals(t *testing.T) {
	ctx := context.Background()
	a := h.open(t)

	_, err := h.engine.Deposit(ctx, a.ID, 100)
	require.NoError(t, err)

	var (
		wg               sync.WaitGroup
		ok, insufficient atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := h.retry(ctx, func() error {
				_, err := h.engine.Withdraw(ctx, a.ID, 20)
				return err
			})
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

	assert.Equal(t, int32(5), ok.Load())
	assert.Equal(t, int32(5), insufficient.Load())
	assert.Zero(t, h.balance(t, a.ID))
	h.reconciled(t, a.ID)
}

func (h *harness) opposingTransfers(t *testing.T) {
	ctx := context.Background()
	a := h.open(t)
	b := h.open(t)

	_, err := h.engine.Deposit(ctx, a.ID, 1000)
	require.NoError(t, err)
	_, err = h.engine.Deposit(ctx, b.ID, 1000)
	require.NoError(t, err)

	var wg sync.WaitGroup
	move := func(from, to string) {
		defer wg.Done()
		err := h.retry(ctx, func() error {
			_, err := h.engine.Transfer(ctx, from, to, 7)
			return err
		})
		assert.NoError(t, err)
	}
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go move(a.ID, b.ID)
		go move(b.ID, a.ID)
	}
	wg.Wait()

	assert.Equal(t, int64(1000), h.balance(t, a.ID))
	assert.Equal(t, int64(1000), h.balance(t, b.ID))
	h.reconciled(t, a.ID, b.ID)
}

func (h *harness) pagination(t *testing.T) {
	ctx := context.Background()
	a := h.open(t)

	for i := 1; i <= 12; i++ {
		_, err := h.engine.Deposit(ctx, a.ID, int64(i))
		require.NoError(t, err)
	}

	first, err := h.engine.ListTransactions(ctx, a.ID, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(12), first.TotalCount)
	assert.Equal(t, 3, first.TotalPages)
	require.Len(t, first.Records, 5)
	assert.Equal(t, int64(12), first.Records[0].Amount)

	last, err := h.engine.ListTransactions(ctx, a.ID, 3, 5)
	require.NoError(t, err)
	require.Len(t, last.Records, 2)
	assert.Equal(t, int64(1), last.Records[1].Amount)

	_, err = h.engine.ListTransactions(ctx, a.ID, 4, 5)
	assert.ErrorIs(t, err, domain.ErrPageOutOfRange)
	_, err = h.engine.ListTransactions(ctx, a.ID, math.MaxInt, 5)
	assert.ErrorIs(t, err, domain.ErrPageOutOfRange)
	_, err = h.engine.ListTransactions(ctx, a.ID, math.MaxInt/5, 5)
	assert.ErrorIs(t, err, domain.ErrPageOutOfRange)

	fresh := h.open(t)
	empty, err := h.engine.ListTransactions(ctx, fresh.ID, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, empty.Records)
	assert.Zero(t, empty.TotalPages)
}

func (h *harness) overflow(t *testing.T) {
	ctx := context.Background()
	a := h.open(t)

	scope, err := h.backend.Scopes.Begin(ctx)
	require.NoError(t, err)
	_, err = h.backend.Accounts.AdjustBalance(ctx, scope, a.ID, math.MaxInt64-1)
	require.NoError(t, err)
	require.NoError(t, scope.Commit(ctx))

	_, err = h.engine.Deposit(ctx, a.ID, 1)
	require.NoError(t, err)

	_, err = h.engine.Deposit(ctx, a.ID, 1)
	assert.ErrorIs(t, err, domain.ErrBalanceOverflow)
	assert.NotErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, int64(math.MaxInt64), h.balance(t, a.ID))
}

func (h *harness) outbox(t *testing.T) {
	ctx := context.Background()
	a := h.open(t)

	rec, err := h.engine.Deposit(ctx, a.ID, 42)
	require.NoError(t, err)

	event := h.findEvent(t, rec.ID)
	require.NotNil(t, event, "no outbox event for %s", rec.ID)
	assert.Equal(t, domain.EventTypeTransactionCommitted, event.EventType)

	require.NoError(t, h.backend.Outbox.MarkPublished(ctx, event.ID, time.Now().UTC()))
	assert.Nil(t, h.findEvent(t, rec.ID))
}

func (h *harness) users(t *testing.T) {
	ctx := context.Background()
	email := strings.ToLower(h.idGen.Generate()) + "@example.com"
	user := domain.NewUser(h.idGen.Generate(), email, "Jaden", "", "hash", time.Now())

	require.NoError(t, h.backend.Users.Create(ctx, user))

	got, err := h.backend.Users.GetByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.Equal(t, "Jaden", got.FirstName)

	dup := domain.NewUser(h.idGen.Generate(), email, "", "", "other", time.Now())
	assert.ErrorIs(t, h.backend.Users.Create(ctx, dup), domain.ErrUserAlreadyExists)

	_, err = h.backend.Users.GetByEmail(ctx, "missing-"+email)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func (h *harness) findEvent(t *testing.T, aggregateID string) *domain.OutboxEvent {
	t.Helper()
	events, err := h.backend.Outbox.GetUnpublished(context.Background(), 10000)
	require.NoError(t, err)
	for _, e := range events {
		if e.AggregateID == aggregateID {
			return e
		}
	}
	return nil
}
