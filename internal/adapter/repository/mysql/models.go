package mysql

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/iho/walletledger/internal/domain"
)

type accountModel struct {
	ID        string `gorm:"primaryKey;size:26"`
	OwnerID   string `gorm:"size:191;not null;uniqueIndex:uq_accounts_owner"`
	Currency  string `gorm:"size:3;not null"`
	Balance   int64  `gorm:"not null;default:0"`
	Version   int64  `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (accountModel) TableName() string { return "accounts" }

// transactionModel keys on an auto-increment Seq so equal timestamps keep insertion order.
type transactionModel struct {
	Seq               uint64    `gorm:"primaryKey;autoIncrement"`
	ID                string    `gorm:"size:26;not null;uniqueIndex:uq_transactions_id"`
	AccountID         string    `gorm:"size:26;not null;index:idx_transactions_account,priority:1"`
	Type              string    `gorm:"size:16;not null"`
	Amount            int64     `gorm:"not null"`
	SenderAccountID   *string   `gorm:"size:26"`
	ReceiverAccountID *string   `gorm:"size:26;index:idx_transactions_receiver,priority:1"`
	CreatedAt         time.Time `gorm:"not null;index:idx_transactions_account,priority:2;index:idx_transactions_receiver,priority:2"`
}

func (transactionModel) TableName() string { return "transactions" }

type outboxModel struct {
	ID            string `gorm:"primaryKey;size:26"`
	AggregateID   string `gorm:"size:26;not null"`
	AggregateType string `gorm:"size:32;not null"`
	EventType     string `gorm:"size:64;not null"`
	Payload       []byte `gorm:"type:json"`
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool `gorm:"not null;default:false;index:idx_outbox_published"`
}

func (outboxModel) TableName() string { return "outbox_events" }

type userModel struct {
	ID           string `gorm:"primaryKey;size:26"`
	Email        string `gorm:"size:191;not null;uniqueIndex:uq_users_email"`
	FirstName    string `gorm:"size:128;not null;default:''"`
	LastName     string `gorm:"size:128;not null;default:''"`
	PasswordHash string `gorm:"size:72;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userModel) TableName() string { return "users" }

// Migrate creates or updates the ledger and user tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&accountModel{}, &transactionModel{}, &outboxModel{}, &userModel{})
}

func toAccountModel(a *domain.Account) *accountModel {
	return &accountModel{
		ID:        a.ID,
		OwnerID:   a.OwnerID,
		Currency:  a.Currency,
		Balance:   a.Balance,
		Version:   a.Version,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func (m *accountModel) toDomain() *domain.Account {
	return &domain.Account{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Currency:  m.Currency,
		Balance:   m.Balance,
		Version:   m.Version,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

func toTransactionModel(r *domain.TransactionRecord) *transactionModel {
	return &transactionModel{
		ID:                r.ID,
		AccountID:         r.AccountID,
		Type:              string(r.Type),
		Amount:            r.Amount,
		SenderAccountID:   nullable(r.SenderAccountID),
		ReceiverAccountID: nullable(r.ReceiverAccountID),
		CreatedAt:         r.CreatedAt,
	}
}

func (m *transactionModel) toDomain() *domain.TransactionRecord {
	return &domain.TransactionRecord{
		ID:                m.ID,
		AccountID:         m.AccountID,
		Type:              domain.TransactionType(m.Type),
		Amount:            m.Amount,
		SenderAccountID:   deref(m.SenderAccountID),
		ReceiverAccountID: deref(m.ReceiverAccountID),
		CreatedAt:         m.CreatedAt.UTC(),
	}
}

func toOutboxModel(e *domain.OutboxEvent) (*outboxModel, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	return &outboxModel{
		ID:            e.ID,
		AggregateID:   e.AggregateID,
		AggregateType: e.AggregateType,
		EventType:     e.EventType,
		Payload:       payload,
		CreatedAt:     e.CreatedAt,
		PublishedAt:   e.PublishedAt,
		Published:     e.Published,
	}, nil
}

func (m *outboxModel) toDomain() *domain.OutboxEvent {
	var payload map[string]any
	if len(m.Payload) > 0 {
		_ = json.Unmarshal(m.Payload, &payload)
	}
	return &domain.OutboxEvent{
		ID:            m.ID,
		AggregateID:   m.AggregateID,
		AggregateType: m.AggregateType,
		EventType:     m.EventType,
		Payload:       payload,
		CreatedAt:     m.CreatedAt.UTC(),
		PublishedAt:   m.PublishedAt,
		Published:     m.Published,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toUserModel(u *domain.User) *userModel {
	return &userModel{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (m *userModel) toDomain() *domain.User {
	return &domain.User{
		ID:           m.ID,
		Email:        m.Email,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}
