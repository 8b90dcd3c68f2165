package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/walletledger/internal/adapter/http/dto"
	"github.com/iho/walletledger/internal/usecase"
)

// Reconciler recomputes an account balance from its history.
type Reconciler interface {
	ReconcileAccount(ctx context.Context, accountID string) (*usecase.ReconciliationResult, error)
}

// ReconciliationHandler reports whether a stored balance matches the transaction log.
type ReconciliationHandler struct {
	reconciler Reconciler
	accounts   AccountService
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(reconciler Reconciler, accounts AccountService) *ReconciliationHandler {
	return &ReconciliationHandler{reconciler: reconciler, accounts: accounts}
}

// Reconcile checks the caller's account.
func (h *ReconciliationHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	owner, ok := callerOwner(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := authorize(r.Context(), h.accounts, owner, id, nil); err != nil {
		writeFailure(w, r, err)
		return
	}

	result, err := h.reconciler.ReconcileAccount(r.Context(), id)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	message := "account reconciled"
	if !result.IsReconciled {
		message = "balance does not match transaction history"
	}
	writeSuccess(w, http.StatusOK, message, dto.ReconciliationFromResult(result))
}
