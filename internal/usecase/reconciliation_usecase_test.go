package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/usecase"
	"github.com/iho/walletledger/internal/usecase/mocks"
)

func TestReconciliationUseCase_ReconcileAccount(t *testing.T) {
	tests := []struct {
		name           string
		balance        int64
		net            int64
		wantReconciled bool
		wantDiff       int64
	}{
		{name: "balanced", balance: 150, net: 150, wantReconciled: true},
		{name: "drifted", balance: 150, net: 120, wantDiff: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			accounts := mocks.NewMockAccountStore(ctrl)
			ledger := mocks.NewMockTransactionLedger(ctrl)

			accounts.EXPECT().Get(gomock.Any(), "acc-1").
				Return(&domain.Account{ID: "acc-1", Currency: "EUR", Balance: tt.balance}, nil)
			ledger.EXPECT().NetByAccount(gomock.Any(), "acc-1").Return(tt.net, nil)

			res, err := usecase.NewReconciliationUseCase(accounts, ledger).ReconcileAccount(context.Background(), "acc-1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantReconciled, res.IsReconciled)
			assert.Equal(t, tt.wantDiff, res.Difference)
			assert.Equal(t, "EUR", res.Currency)
		})
	}
}

func TestReconciliationUseCase_UnknownAccount(t *testing.T) {
	ctrl := gomock.NewController(t)
	accounts := mocks.NewMockAccountStore(ctrl)
	ledger := mocks.NewMockTransactionLedger(ctrl)

	accounts.EXPECT().Get(gomock.Any(), "ghost").Return(nil, domain.ErrAccountNotFound)

	_, err := usecase.NewReconciliationUseCase(accounts, ledger).ReconcileAccount(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}
