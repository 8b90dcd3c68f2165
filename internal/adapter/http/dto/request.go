package dto

import (
	"fmt"
	"strings"

	"github.com/iho/walletledger/internal/domain"
)

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// CreateAccountRequest represents a request to open the caller's account.
type CreateAccountRequest struct {
	Currency string `json:"currency"`
}

// Validate checks the currency code.
func (r *CreateAccountRequest) Validate() error {
	code := strings.TrimSpace(r.Currency)
	if len(code) != 3 {
		return &ValidationError{Field: "currency", Reason: "must be a 3-letter code"}
	}
	return domain.ValidateCurrency(code)
}

// MovementRequest is the body of deposit and withdraw requests.
type MovementRequest struct {
	AccountID string `json:"account_id"`
	Amount    int64  `json:"amount"`
}

// Validate checks the account id and amount.
func (r *MovementRequest) Validate() error {
	if err := validateID("account_id", r.AccountID); err != nil {
		return err
	}
	return domain.ValidateAmount(r.Amount)
}

// TransferRequest represents a request to move funds between two accounts.
type TransferRequest struct {
	SenderAccountID   string `json:"sender_account_id"`
	ReceiverAccountID string `json:"receiver_account_id"`
	Amount            int64  `json:"amount"`
}

// Validate checks both ids and the amount.
func (r *TransferRequest) Validate() error {
	if err := validateID("sender_account_id", r.SenderAccountID); err != nil {
		return err
	}
	if err := validateID("receiver_account_id", r.ReceiverAccountID); err != nil {
		return err
	}
	return domain.ValidateAmount(r.Amount)
}

// RegisterRequest represents a sign-up request.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Validate checks the email and password rules.
func (r *RegisterRequest) Validate() error {
	if err := domain.ValidateEmail(r.Email); err != nil {
		return &ValidationError{Field: "email", Reason: err.Error()}
	}
	if err := domain.ValidatePassword(r.Password); err != nil {
		return &ValidationError{Field: "password", Reason: err.Error()}
	}
	return nil
}

// LoginRequest represents a sign-in request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return &ValidationError{Field: "email", Reason: "is required"}
	}
	if r.Password == "" {
		return &ValidationError{Field: "password", Reason: "is required"}
	}
	return nil
}

func validateID(field, id string) error {
	if id == "" {
		return &ValidationError{Field: field, Reason: "is required"}
	}
	if err := domain.ValidateID(id); err != nil {
		return &ValidationError{Field: field, Reason: "must be a valid ULID"}
	}
	return nil
}
