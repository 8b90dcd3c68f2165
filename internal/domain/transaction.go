package domain

import (
	"fmt"
	"time"
)

// TransactionType is the kind of money movement a record describes.
type TransactionType string

const (
	TransactionDeposit    TransactionType = "deposit"
	TransactionWithdrawal TransactionType = "withdrawal"
	TransactionTransfer   TransactionType = "transfer"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionDeposit, TransactionWithdrawal, TransactionTransfer:
		return true
	}
	return false
}

// TransactionRecord is an immutable ledger line. Transfers are stored once and carry both
// parties; AccountID is the sender for transfers.
type TransactionRecord struct {
	ID                string
	AccountID         string
	Type              TransactionType
	Amount            int64
	SenderAccountID   string
	ReceiverAccountID string
	CreatedAt         time.Time
}

// NewDeposit builds a deposit record.
func NewDeposit(id, accountID string, amount int64, now time.Time) *TransactionRecord {
	return &TransactionRecord{
		ID:        id,
		AccountID: accountID,
		Type:      TransactionDeposit,
		Amount:    amount,
		CreatedAt: now.UTC(),
	}
}

// NewWithdrawal builds a withdrawal record.
func NewWithdrawal(id, accountID string, amount int64, now time.Time) *TransactionRecord {
	return &TransactionRecord{
		ID:        id,
		AccountID: accountID,
		Type:      TransactionWithdrawal,
		Amount:    amount,
		CreatedAt: now.UTC(),
	}
}

// NewTransfer builds a transfer record owned by the sender.
func NewTransfer(id, senderID, receiverID string, amount int64, now time.Time) *TransactionRecord {
	return &TransactionRecord{
		ID:                id,
		AccountID:         senderID,
		Type:              TransactionTransfer,
		Amount:            amount,
		SenderAccountID:   senderID,
		ReceiverAccountID: receiverID,
		CreatedAt:         now.UTC(),
	}
}

// Validate checks the field rules for the record's type.
func (r *TransactionRecord) Validate() error {
	if r.Amount <= 0 {
		return ErrInvalidAmount
	}
	if !r.Type.Valid() {
		return fmt.Errorf("unknown transaction type %q", r.Type)
	}
	if r.Type == TransactionTransfer {
		if r.SenderAccountID == "" || r.ReceiverAccountID == "" {
			return fmt.Errorf("transfer %s: sender and receiver are required", r.ID)
		}
		if r.SenderAccountID == r.ReceiverAccountID {
			return ErrSameAccount
		}
		if r.AccountID != r.SenderAccountID {
			return fmt.Errorf("transfer %s: account must be the sender", r.ID)
		}
		return nil
	}
	if r.SenderAccountID != "" || r.ReceiverAccountID != "" {
		return fmt.Errorf("%s %s: counterparty fields must be empty", r.Type, r.ID)
	}
	return nil
}

// Involves reports whether the record appears in accountID's ledger view.
func (r *TransactionRecord) Involves(accountID string) bool {
	return r.AccountID == accountID || r.ReceiverAccountID == accountID
}

// SignedAmount is the effect of the record on accountID's balance.
func (r *TransactionRecord) SignedAmount(accountID string) int64 {
	switch r.Type {
	case TransactionDeposit:
		return r.Amount
	case TransactionWithdrawal:
		return -r.Amount
	case TransactionTransfer:
		if r.SenderAccountID == accountID {
			return -r.Amount
		}
		if r.ReceiverAccountID == accountID {
			return r.Amount
		}
	}
	return 0
}
