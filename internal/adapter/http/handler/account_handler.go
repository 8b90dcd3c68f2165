package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/iho/walletledger/internal/adapter/http/dto"
	"github.com/iho/walletledger/internal/domain"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	CreateAccount(ctx context.Context, ownerID, currency string) (*domain.Account, error)
	GetAccount(ctx context.Context, ownerID string) (*domain.Account, error)
	GetAccountByID(ctx context.Context, id string) (*domain.Account, error)
}

// AccountRecorder counts opened accounts.
type AccountRecorder interface {
	ObserveAccountCreated()
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accounts AccountService
	recorder AccountRecorder
}

// NewAccountHandler creates a new AccountHandler. recorder may be nil.
func NewAccountHandler(accounts AccountService, recorder AccountRecorder) *AccountHandler {
	return &AccountHandler{accounts: accounts, recorder: recorder}
}

// Create opens the caller's account.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := callerOwner(w, r)
	if !ok {
		return
	}

	var req dto.CreateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeFailure(w, r, err)
		return
	}

	account, err := h.accounts.CreateAccount(r.Context(), owner, req.Currency)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if h.recorder != nil {
		h.recorder.ObserveAccountCreated()
	}

	writeSuccess(w, http.StatusCreated, "account created", dto.AccountFromDomain(account))
}

// Me returns the caller's account.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	owner, ok := callerOwner(w, r)
	if !ok {
		return
	}

	account, err := h.accounts.GetAccount(r.Context(), owner)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "account retrieved", dto.AccountFromDomain(account))
}

// authorize checks that accountID exists and belongs to owner. missing replaces
// AccountNotFound so transfers can report SenderNotFound.
func authorize(ctx context.Context, accounts AccountService, owner, accountID string, missing error) error {
	account, err := accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		if missing != nil && errors.Is(err, domain.ErrAccountNotFound) {
			return missing
		}
		return err
	}
	if account.OwnerID != owner {
		return errForbidden
	}
	return nil
}
