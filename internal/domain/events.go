package domain

import (
	"strconv"
	"time"
)

// Event types
const (
	EventTypeAccountCreated       = "account.created"
	EventTypeTransactionCommitted = "transaction.committed"
)

// Aggregate types
const (
	AggregateTypeAccount     = "account"
	AggregateTypeTransaction = "transaction"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// NewAccountCreatedEvent builds the outbox entry for a freshly opened account.
func NewAccountCreatedEvent(id string, account *Account) *OutboxEvent {
	return &OutboxEvent{
		ID:            id,
		AggregateID:   account.ID,
		AggregateType: AggregateTypeAccount,
		EventType:     EventTypeAccountCreated,
		Payload: map[string]any{
			"account_id": account.ID,
			"owner_id":   account.OwnerID,
			"currency":   account.Currency,
		},
		CreatedAt: account.CreatedAt,
	}
}

// NewTransactionCommittedEvent builds the outbox entry for a committed record.
func NewTransactionCommittedEvent(id string, rec *TransactionRecord) *OutboxEvent {
	payload := map[string]any{
		"transaction_id": rec.ID,
		"type":           string(rec.Type),
		"account_id":     rec.AccountID,
		"amount":         strconv.FormatInt(rec.Amount, 10),
		"event_at":       rec.CreatedAt.Format(time.RFC3339Nano),
	}
	if rec.Type == TransactionTransfer {
		payload["sender_account_id"] = rec.SenderAccountID
		payload["receiver_account_id"] = rec.ReceiverAccountID
	}
	return &OutboxEvent{
		ID:            id,
		AggregateID:   rec.ID,
		AggregateType: AggregateTypeTransaction,
		EventType:     EventTypeTransactionCommitted,
		Payload:       payload,
		CreatedAt:     rec.CreatedAt,
	}
}
