package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iho/walletledger/internal/domain"
)

// Collection names.
const (
	accountsCollection     = "accounts"
	transactionsCollection = "transactions"
	outboxCollection       = "outbox_events"
	usersCollection        = "users"
)

type accountDoc struct {
	ID        string     `bson:"_id"`
	OwnerID   string     `bson:"owner_id"`
	Currency  string     `bson:"currency"`
	Balance   int64      `bson:"balance"`
	Version   int64      `bson:"version"`
	LockedAt  *time.Time `bson:"locked_at,omitempty"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at"`
}

type transactionDoc struct {
	ID                string    `bson:"_id"`
	AccountID         string    `bson:"account_id"`
	Type              string    `bson:"type"`
	Amount            int64     `bson:"amount"`
	SenderAccountID   string    `bson:"sender_account_id,omitempty"`
	ReceiverAccountID string    `bson:"receiver_account_id,omitempty"`
	CreatedAt         time.Time `bson:"created_at"`
}

type outboxDoc struct {
	ID            string         `bson:"_id"`
	AggregateID   string         `bson:"aggregate_id"`
	AggregateType string         `bson:"aggregate_type"`
	EventType     string         `bson:"event_type"`
	Payload       map[string]any `bson:"payload"`
	CreatedAt     time.Time      `bson:"created_at"`
	PublishedAt   *time.Time     `bson:"published_at,omitempty"`
	Published     bool           `bson:"published"`
}

// EnsureIndexes creates the unique owner index and the listing indexes.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(accountsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "owner_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uq_accounts_owner"),
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(transactionsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "receiver_account_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(outboxCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "published", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uq_users_email"),
	})
	return err
}

type userDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	FirstName    string    `bson:"first_name,omitempty"`
	LastName     string    `bson:"last_name,omitempty"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func toUserDoc(u *domain.User) userDoc {
	return userDoc{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (d userDoc) toDomain() *domain.User {
	return &domain.User{
		ID:           d.ID,
		Email:        d.Email,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

func toAccountDoc(a *domain.Account) accountDoc {
	return accountDoc{
		ID:        a.ID,
		OwnerID:   a.OwnerID,
		Currency:  a.Currency,
		Balance:   a.Balance,
		Version:   a.Version,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func (d accountDoc) toDomain() *domain.Account {
	return &domain.Account{
		ID:        d.ID,
		OwnerID:   d.OwnerID,
		Currency:  d.Currency,
		Balance:   d.Balance,
		Version:   d.Version,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

func toTransactionDoc(r *domain.TransactionRecord) transactionDoc {
	return transactionDoc{
		ID:                r.ID,
		AccountID:         r.AccountID,
		Type:              string(r.Type),
		Amount:            r.Amount,
		SenderAccountID:   r.SenderAccountID,
		ReceiverAccountID: r.ReceiverAccountID,
		CreatedAt:         r.CreatedAt,
	}
}

func (d transactionDoc) toDomain() *domain.TransactionRecord {
	return &domain.TransactionRecord{
		ID:                d.ID,
		AccountID:         d.AccountID,
		Type:              domain.TransactionType(d.Type),
		Amount:            d.Amount,
		SenderAccountID:   d.SenderAccountID,
		ReceiverAccountID: d.ReceiverAccountID,
		CreatedAt:         d.CreatedAt.UTC(),
	}
}

func toOutboxDoc(e *domain.OutboxEvent) outboxDoc {
	return outboxDoc{
		ID:            e.ID,
		AggregateID:   e.AggregateID,
		AggregateType: e.AggregateType,
		EventType:     e.EventType,
		Payload:       e.Payload,
		CreatedAt:     e.CreatedAt,
		PublishedAt:   e.PublishedAt,
		Published:     e.Published,
	}
}

func (d outboxDoc) toDomain() *domain.OutboxEvent {
	return &domain.OutboxEvent{
		ID:            d.ID,
		AggregateID:   d.AggregateID,
		AggregateType: d.AggregateType,
		EventType:     d.EventType,
		Payload:       d.Payload,
		CreatedAt:     d.CreatedAt.UTC(),
		PublishedAt:   d.PublishedAt,
		Published:     d.Published,
	}
}
