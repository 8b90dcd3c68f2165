package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/usecase"
	"github.com/iho/walletledger/internal/usecase/mocks"
)

type engineMocks struct {
	scopes   *mocks.MockScopeManager
	scope    *mocks.MockScope
	accounts *mocks.MockAccountStore
	ledger   *mocks.MockTransactionLedger
	outbox   *mocks.MockOutboxRepository
	idGen    *mocks.MockIDGenerator
}

func newEngine(t *testing.T) (*usecase.LedgerEngine, *engineMocks) {
	ctrl := gomock.NewController(t)
	m := &engineMocks{
		scopes:   mocks.NewMockScopeManager(ctrl),
		scope:    mocks.NewMockScope(ctrl),
		accounts: mocks.NewMockAccountStore(ctrl),
		ledger:   mocks.NewMockTransactionLedger(ctrl),
		outbox:   mocks.NewMockOutboxRepository(ctrl),
		idGen:    mocks.NewMockIDGenerator(ctrl),
	}
	m.idGen.EXPECT().Generate().Return("01HZX0000000000000000000ID").AnyTimes()
	return usecase.NewLedgerEngine(m.scopes, m.accounts, m.ledger, m.outbox, m.idGen), m
}

func (m *engineMocks) expectScope() {
	m.scopes.EXPECT().Begin(gomock.Any()).Return(m.scope, nil)
	m.scope.EXPECT().Rollback(gomock.Any()).Return(nil)
}

func TestLedgerEngine_Deposit(t *testing.T) {
	tests := []struct {
		name       string
		amount     int64
		setupMocks func(m *engineMocks)
		wantKind   *domain.ErrorKind
	}{
		{
			name:       "zero amount",
			amount:     0,
			setupMocks: func(m *engineMocks) {},
			wantKind:   kind(domain.KindInvalidAmount),
		},
		{
			name:       "above maximum amount",
			amount:     domain.MaxAmount + 1,
			setupMocks: func(m *engineMocks) {},
			wantKind:   kind(domain.KindInvalidAmount),
		},
		{
			name:   "balance overflow",
			amount: 100,
			setupMocks: func(m *engineMocks) {
				m.accounts.EXPECT().Get(gomock.Any(), "acc-1").Return(&domain.Account{ID: "acc-1"}, nil)
				m.expectScope()
				m.accounts.EXPECT().AdjustBalance(gomock.Any(), m.scope, "acc-1", int64(100)).Return(nil, domain.ErrBalanceOverflow)
			},
			wantKind: kind(domain.KindInvalidAmount),
		},
		{
			name:   "unknown account",
			amount: 100,
			setupMocks: func(m *engineMocks) {
				m.accounts.EXPECT().Get(gomock.Any(), "acc-1").Return(nil, domain.ErrAccountNotFound)
			},
			wantKind: kind(domain.KindAccountNotFound),
		},
		{
			name:   "success",
			amount: 100,
			setupMocks: func(m *engineMocks) {
				m.accounts.EXPECT().Get(gomock.Any(), "acc-1").Return(&domain.Account{ID: "acc-1"}, nil)
				m.expectScope()
				gomock.InOrder(
					m.accounts.EXPECT().AdjustBalance(gomock.Any(), m.scope, "acc-1", int64(100)).Return(&domain.Account{ID: "acc-1", Balance: 100}, nil),
					m.ledger.EXPECT().Append(gomock.Any(), m.scope, gomock.Any()).DoAndReturn(
						func(_ context.Context, _ usecase.Scope, rec *domain.TransactionRecord) error {
							if rec.Type != domain.TransactionDeposit || rec.Amount != 100 || rec.AccountID != "acc-1" {
								return errors.New("unexpected record")
							}
							return nil
						}),
					m.outbox.EXPECT().Create(gomock.Any(), m.scope, gomock.Any()).Return(nil),
					m.scope.EXPECT().Commit(gomock.Any()).Return(nil),
				)
			},
		},
		{
			name:   "append failure rolls back",
			amount: 100,
			setupMocks: func(m *engineMocks) {
				m.accounts.EXPECT().Get(gomock.Any(), "acc-1").Return(&domain.Account{ID: "acc-1"}, nil)
				m.expectScope()
				m.accounts.EXPECT().AdjustBalance(gomock.Any(), m.scope, "acc-1", int64(100)).Return(&domain.Account{}, nil)
				m.ledger.EXPECT().Append(gomock.Any(), m.scope, gomock.Any()).Return(errors.New("disk full"))
			},
			wantKind: kind(domain.KindStorageFailure),
		},
		{
			name:   "begin failure",
			amount: 100,
			setupMocks: func(m *engineMocks) {
				m.accounts.EXPECT().Get(gomock.Any(), "acc-1").Return(&domain.Account{ID: "acc-1"}, nil)
				m.scopes.EXPECT().Begin(gomock.Any()).Return(nil, errors.New("pool exhausted"))
			},
			wantKind: kind(domain.KindStorageFailure),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, m := newEngine(t)
			tt.setupMocks(m)

			rec, err := engine.Deposit(context.Background(), "acc-1", tt.amount)
			if tt.wantKind != nil {
				require.Error(t, err)
				assert.Equal(t, *tt.wantKind, domain.KindOf(err))
				assert.Nil(t, rec)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(100), rec.Amount)
		})
	}
}

func TestLedgerEngine_Withdraw(t *testing.T) {
	t.Run("pre-check rejects without opening a scope", func(t *testing.T) {
		engine, m := newEngine(t)
		m.accounts.EXPECT().Get(gomock.Any(), "acc-1").Return(&domain.Account{ID: "acc-1", Balance: 5}, nil)

		_, err := engine.Withdraw(context.Background(), "acc-1", 10)
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	})

	t.Run("atomic re-check inside scope", func(t *testing.T) {
		engine, m := newEngine(t)
		m.accounts.EXPECT().Get(gomock.Any(), "acc-1").Return(&domain.Account{ID: "acc-1", Balance: 100}, nil)
		m.expectScope()
		m.accounts.EXPECT().AdjustBalance(gomock.Any(), m.scope, "acc-1", int64(-80)).Return(nil, domain.ErrInsufficientFunds)

		_, err := engine.Withdraw(context.Background(), "acc-1", 80)
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	})

	t.Run("negative amount", func(t *testing.T) {
		engine, _ := newEngine(t)
		_, err := engine.Withdraw(context.Background(), "acc-1", -1)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("commit failure", func(t *testing.T) {
		engine, m := newEngine(t)
		m.accounts.EXPECT().Get(gomock.Any(), "acc-1").Return(&domain.Account{ID: "acc-1", Balance: 100}, nil)
		m.expectScope()
		m.accounts.EXPECT().AdjustBalance(gomock.Any(), m.scope, "acc-1", int64(-30)).Return(&domain.Account{Balance: 70}, nil)
		m.ledger.EXPECT().Append(gomock.Any(), m.scope, gomock.Any()).Return(nil)
		m.outbox.EXPECT().Create(gomock.Any(), m.scope, gomock.Any()).Return(nil)
		m.scope.EXPECT().Commit(gomock.Any()).Return(errors.New("connection lost"))

		_, err := engine.Withdraw(context.Background(), "acc-1", 30)
		assert.Equal(t, domain.KindStorageFailure, domain.KindOf(err))
	})
}

func TestLedgerEngine_Transfer(t *testing.T) {
	t.Run("same account", func(t *testing.T) {
		engine, _ := newEngine(t)
		_, err := engine.Transfer(context.Background(), "a", "a", 10)
		assert.ErrorIs(t, err, domain.ErrSameAccount)
	})

	t.Run("invalid amount wins over same account", func(t *testing.T) {
		engine, _ := newEngine(t)
		_, err := engine.Transfer(context.Background(), "a", "a", 0)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("sender not found", func(t *testing.T) {
		engine, m := newEngine(t)
		m.accounts.EXPECT().Get(gomock.Any(), "a").Return(nil, domain.ErrAccountNotFound)

		_, err := engine.Transfer(context.Background(), "a", "b", 10)
		assert.ErrorIs(t, err, domain.ErrSenderNotFound)
	})

	t.Run("receiver not found", func(t *testing.T) {
		engine, m := newEngine(t)
		m.accounts.EXPECT().Get(gomock.Any(), "a").Return(&domain.Account{ID: "a", Balance: 100}, nil)
		m.accounts.EXPECT().Get(gomock.Any(), "b").Return(nil, domain.ErrAccountNotFound)

		_, err := engine.Transfer(context.Background(), "a", "b", 10)
		assert.ErrorIs(t, err, domain.ErrReceiverNotFound)
	})

	t.Run("locks in ascending id order", func(t *testing.T) {
		engine, m := newEngine(t)
		m.accounts.EXPECT().Get(gomock.Any(), "zeta").Return(&domain.Account{ID: "zeta", Balance: 100}, nil)
		m.accounts.EXPECT().Get(gomock.Any(), "alpha").Return(&domain.Account{ID: "alpha"}, nil)
		m.expectScope()
		gomock.InOrder(
			m.accounts.EXPECT().LockForUpdate(gomock.Any(), m.scope, []string{"alpha", "zeta"}).
				Return([]*domain.Account{{ID: "alpha"}, {ID: "zeta", Balance: 100}}, nil),
			m.accounts.EXPECT().AdjustBalance(gomock.Any(), m.scope, "zeta", int64(-40)).Return(&domain.Account{Balance: 60}, nil),
			m.accounts.EXPECT().AdjustBalance(gomock.Any(), m.scope, "alpha", int64(40)).Return(&domain.Account{Balance: 40}, nil),
			m.ledger.EXPECT().Append(gomock.Any(), m.scope, gomock.Any()).Return(nil),
			m.outbox.EXPECT().Create(gomock.Any(), m.scope, gomock.Any()).Return(nil),
			m.scope.EXPECT().Commit(gomock.Any()).Return(nil),
		)

		rec, err := engine.Transfer(context.Background(), "zeta", "alpha", 40)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionTransfer, rec.Type)
		assert.Equal(t, "zeta", rec.SenderAccountID)
		assert.Equal(t, "alpha", rec.ReceiverAccountID)
		assert.Equal(t, "zeta", rec.AccountID)
	})

	t.Run("receiver vanished after lock", func(t *testing.T) {
		engine, m := newEngine(t)
		m.accounts.EXPECT().Get(gomock.Any(), "a").Return(&domain.Account{ID: "a", Balance: 100}, nil)
		m.accounts.EXPECT().Get(gomock.Any(), "b").Return(&domain.Account{ID: "b"}, nil)
		m.expectScope()
		m.accounts.EXPECT().LockForUpdate(gomock.Any(), m.scope, []string{"a", "b"}).
			Return([]*domain.Account{{ID: "a", Balance: 100}}, nil)

		_, err := engine.Transfer(context.Background(), "a", "b", 10)
		assert.ErrorIs(t, err, domain.ErrReceiverNotFound)
	})
}

func TestLedgerEngine_ListTransactions(t *testing.T) {
	t.Run("page beyond last", func(t *testing.T) {
		engine, m := newEngine(t)
		m.accounts.EXPECT().Get(gomock.Any(), "acc-1").Return(&domain.Account{ID: "acc-1"}, nil)
		m.ledger.EXPECT().ListByAccount(gomock.Any(), "acc-1", 30, 10).Return(nil, int64(25), nil)

		_, err := engine.ListTransactions(context.Background(), "acc-1", 4, 10)
		assert.ErrorIs(t, err, domain.ErrPageOutOfRange)
	})

	t.Run("empty history is not an error", func(t *testing.T) {
		engine, m := newEngine(t)
		m.accounts.EXPECT().Get(gomock.Any(), "acc-1").Return(&domain.Account{ID: "acc-1"}, nil)
		m.ledger.EXPECT().ListByAccount(gomock.Any(), "acc-1", 40, 10).Return(nil, int64(0), nil)

		res, err := engine.ListTransactions(context.Background(), "acc-1", 5, 10)
		require.NoError(t, err)
		assert.Empty(t, res.Records)
		assert.NotNil(t, res.Records)
		assert.Equal(t, 0, res.TotalPages)
	})

	t.Run("page size is clamped", func(t *testing.T) {
		engine, m := newEngine(t)
		m.accounts.EXPECT().Get(gomock.Any(), "acc-1").Return(&domain.Account{ID: "acc-1"}, nil)
		m.ledger.EXPECT().ListByAccount(gomock.Any(), "acc-1", 0, domain.MaxPageSize).Return(nil, int64(3), nil)

		res, err := engine.ListTransactions(context.Background(), "acc-1", 1, 1000)
		require.NoError(t, err)
		assert.Equal(t, domain.MaxPageSize, res.PageSize)
		assert.Equal(t, 1, res.TotalPages)
	})

	t.Run("unknown account", func(t *testing.T) {
		engine, m := newEngine(t)
		m.accounts.EXPECT().Get(gomock.Any(), "acc-1").Return(nil, domain.ErrAccountNotFound)

		_, err := engine.ListTransactions(context.Background(), "acc-1", 1, 10)
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	})

	t.Run("storage error", func(t *testing.T) {
		engine, m := newEngine(t)
		m.accounts.EXPECT().Get(gomock.Any(), "acc-1").Return(&domain.Account{ID: "acc-1"}, nil)
		m.ledger.EXPECT().ListByAccount(gomock.Any(), "acc-1", 0, 10).Return(nil, int64(0), errors.New("timeout"))

		_, err := engine.ListTransactions(context.Background(), "acc-1", 1, 10)
		assert.Equal(t, domain.KindStorageFailure, domain.KindOf(err))
	})
}

func kind(k domain.ErrorKind) *domain.ErrorKind { return &k }
