package dto

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/usecase"
)

// Envelope wraps every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Success builds a successful envelope.
func Success(message string, data any) Envelope {
	return Envelope{Success: true, Message: message, Data: data}
}

// Failure builds a failed envelope; code is a machine-readable error name.
func Failure(message, code string) Envelope {
	return Envelope{Success: false, Message: message, Error: code}
}

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	Currency       string    `json:"currency"`
	Balance        int64     `json:"balance"`
	BalanceDisplay string    `json:"balance_display"`
	Version        int64     `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:             a.ID,
		OwnerID:        a.OwnerID,
		Currency:       a.Currency,
		Balance:        a.Balance,
		BalanceDisplay: domain.FormatMinor(a.Balance, a.Currency),
		Version:        a.Version,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// UserResponse represents a user in API responses. The password hash is never included.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UserFromDomain converts domain user to response.
func UserFromDomain(u *domain.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt,
	}
}

// LoginResponse carries the bearer token issued at sign-in.
type LoginResponse struct {
	Token string        `json:"token"`
	User  *UserResponse `json:"user"`
}

// TransactionResponse represents a transaction record in API responses.
type TransactionResponse struct {
	ID                string    `json:"id"`
	AccountID         string    `json:"account_id"`
	Type              string    `json:"type"`
	Amount            int64     `json:"amount"`
	SenderAccountID   string    `json:"sender_account_id,omitempty"`
	ReceiverAccountID string    `json:"receiver_account_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// TransactionFromDomain converts a domain record to response.
func TransactionFromDomain(r *domain.TransactionRecord) *TransactionResponse {
	return &TransactionResponse{
		ID:                r.ID,
		AccountID:         r.AccountID,
		Type:              string(r.Type),
		Amount:            r.Amount,
		SenderAccountID:   r.SenderAccountID,
		ReceiverAccountID: r.ReceiverAccountID,
		CreatedAt:         r.CreatedAt,
	}
}

// TransactionsFromDomain converts domain records to responses.
func TransactionsFromDomain(records []*domain.TransactionRecord) []*TransactionResponse {
	result := make([]*TransactionResponse, len(records))
	for i, r := range records {
		result[i] = TransactionFromDomain(r)
	}
	return result
}

// TransactionPageResponse is one page of an account's history with navigation links.
type TransactionPageResponse struct {
	Transactions []*TransactionResponse `json:"transactions"`
	Page         int                    `json:"page"`
	PageSize     int                    `json:"page_size"`
	TotalPages   int                    `json:"total_pages"`
	TotalCount   int64                  `json:"total_count"`
	Previous     *string                `json:"previous"`
	Next         *string                `json:"next"`
}

// PageFromDomain converts a paged result. Links are built from baseURL, e.g.
// {baseURL}/api/v1/transactions/{accountID}?page=2&limit=10.
func PageFromDomain(res *domain.PagedResult, baseURL, accountID string) *TransactionPageResponse {
	resp := &TransactionPageResponse{
		Transactions: TransactionsFromDomain(res.Records),
		Page:         res.Page,
		PageSize:     res.PageSize,
		TotalPages:   res.TotalPages,
		TotalCount:   res.TotalCount,
	}
	if res.HasPrevious() {
		link := pageLink(baseURL, accountID, res.Page-1, res.PageSize)
		resp.Previous = &link
	}
	if res.HasNext() {
		link := pageLink(baseURL, accountID, res.Page+1, res.PageSize)
		resp.Next = &link
	}
	return resp
}

func pageLink(baseURL, accountID string, page, size int) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(size))
	return fmt.Sprintf("%s/api/v1/transactions/%s?%s", baseURL, url.PathEscape(accountID), q.Encode())
}

// ReconciliationResponse reports stored vs. recomputed balance.
type ReconciliationResponse struct {
	AccountID         string    `json:"account_id"`
	Currency          string    `json:"currency"`
	RecordedBalance   int64     `json:"recorded_balance"`
	CalculatedBalance int64     `json:"calculated_balance"`
	Difference        int64     `json:"difference"`
	IsReconciled      bool      `json:"is_reconciled"`
	LastChecked       time.Time `json:"last_checked"`
}

// ReconciliationFromResult converts a reconciliation result.
func ReconciliationFromResult(r *usecase.ReconciliationResult) *ReconciliationResponse {
	return &ReconciliationResponse{
		AccountID:         r.AccountID,
		Currency:          r.Currency,
		RecordedBalance:   r.RecordedBalance,
		CalculatedBalance: r.CalculatedBalance,
		Difference:        r.Difference,
		IsReconciled:      r.IsReconciled,
		LastChecked:       r.LastChecked,
	}
}
