package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iho/walletledger/internal/adapter/http/dto"
	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/usecase"
)

// TransactionHandler exposes deposits, withdrawals, transfers and history.
type TransactionHandler struct {
	ledger   usecase.Ledger
	accounts AccountService
	retrier  Retrier
	baseURL  string
}

// NewTransactionHandler creates a new TransactionHandler. retrier may be nil.
func NewTransactionHandler(ledger usecase.Ledger, accounts AccountService, retrier Retrier, baseURL string) *TransactionHandler {
	return &TransactionHandler{
		ledger:   ledger,
		accounts: accounts,
		retrier:  retrier,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
	}
}

// Deposit credits the caller's account.
func (h *TransactionHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, "deposit successful", h.ledger.Deposit)
}

// Withdraw debits the caller's account.
func (h *TransactionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, "withdrawal successful", h.ledger.Withdraw)
}

func (h *TransactionHandler) move(
	w http.ResponseWriter,
	r *http.Request,
	message string,
	op func(ctx context.Context, accountID string, amount int64) (*domain.TransactionRecord, error),
) {
	owner, ok := callerOwner(w, r)
	if !ok {
		return
	}

	var req dto.MovementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeFailure(w, r, err)
		return
	}
	if err := authorize(r.Context(), h.accounts, owner, req.AccountID, nil); err != nil {
		writeFailure(w, r, err)
		return
	}

	var record *domain.TransactionRecord
	err := h.run(r.Context(), func() error {
		var err error
		record, err = op(r.Context(), req.AccountID, req.Amount)
		return err
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, message, dto.TransactionFromDomain(record))
}

// Transfer moves funds from the caller's account to another account.
func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	owner, ok := callerOwner(w, r)
	if !ok {
		return
	}

	var req dto.TransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeFailure(w, r, err)
		return
	}
	if err := authorize(r.Context(), h.accounts, owner, req.SenderAccountID, domain.ErrSenderNotFound); err != nil {
		writeFailure(w, r, err)
		return
	}

	var record *domain.TransactionRecord
	err := h.run(r.Context(), func() error {
		var err error
		record, err = h.ledger.Transfer(r.Context(), req.SenderAccountID, req.ReceiverAccountID, req.Amount)
		return err
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "transfer successful", dto.TransactionFromDomain(record))
}

// List returns one page of the account's history, newest first.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := callerOwner(w, r)
	if !ok {
		return
	}

	accountID := chi.URLParam(r, "accountId")
	if err := authorize(r.Context(), h.accounts, owner, accountID, nil); err != nil {
		writeFailure(w, r, err)
		return
	}

	page := parseIntQuery(r, "page", domain.DefaultPage)
	limit := parseIntQuery(r, "limit", domain.DefaultPageSize)

	result, err := h.ledger.ListTransactions(r.Context(), accountID, page, limit)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "transactions retrieved", dto.PageFromDomain(result, h.baseURL, accountID))
}

// run re-runs op on transient storage conflicts. Each attempt is a fresh scope in the engine.
func (h *TransactionHandler) run(ctx context.Context, op func() error) error {
	if h.retrier == nil {
		return op()
	}
	return h.retrier.Retry(ctx, op)
}
