package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/iho/walletledger/internal/adapter/http/dto"
)

func TestReconciliationHandler(t *testing.T) {
	env := newTestEnv(t)
	acc := env.open(t, "owner-1")

	if _, err := env.engine.Deposit(context.Background(), acc.ID, 250); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := env.engine.Withdraw(context.Background(), acc.ID, 50); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	rec, body := env.do(t, "owner-1", http.MethodGet, "/accounts/"+acc.ID+"/reconciliation", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result dto.ReconciliationResponse
	decodeData(t, body, &result)
	if !result.IsReconciled || result.RecordedBalance != 200 || result.CalculatedBalance != 200 {
		t.Fatalf("unexpected reconciliation %+v", result)
	}

	rec, _ = env.do(t, "intruder", http.MethodGet, "/accounts/"+acc.ID+"/reconciliation", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
