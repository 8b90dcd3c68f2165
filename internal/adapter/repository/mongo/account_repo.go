package mongo

import (
	"context"
	"errors"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/usecase"
)

// AccountRepository implements usecase.AccountStore on MongoDB.
type AccountRepository struct {
	coll *mongo.Collection
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{coll: db.Collection(accountsCollection)}
}

func (r *AccountRepository) Create(ctx context.Context, scope usecase.Scope, account *domain.Account) error {
	sc, err := sessionContext(ctx, scope)
	if err != nil {
		return err
	}
	_, err = r.coll.InsertOne(sc, toAccountDoc(account))
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrAccountAlreadyExists
	}
	return err
}

func (r *AccountRepository) Get(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *AccountRepository) GetByOwner(ctx context.Context, ownerID string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"owner_id": ownerID})
}

// LockForUpdate writes a lock marker on each document in order. Any other transaction
// touching the same documents then fails with a write conflict until this one ends.
func (r *AccountRepository) LockForUpdate(ctx context.Context, scope usecase.Scope, ids []string) ([]*domain.Account, error) {
	sc, err := sessionContext(ctx, scope)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	accounts := make([]*domain.Account, 0, len(ids))
	for _, id := range ids {
		var doc accountDoc
		err := r.coll.FindOneAndUpdate(sc, bson.M{"_id": id}, bson.M{"$set": bson.M{"locked_at": now}}, opts).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, doc.toDomain())
	}
	return accounts, nil
}

// AdjustBalance applies delta with a filter that only matches when the result stays
// non-negative and within int64.
func (r *AccountRepository) AdjustBalance(ctx context.Context, scope usecase.Scope, id string, delta int64) (*domain.Account, error) {
	if delta == 0 {
		return nil, domain.ErrInvalidAmount
	}
	sc, err := sessionContext(ctx, scope)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["balance"] = bson.M{"$gte": -delta}
	} else {
		filter["balance"] = bson.M{"$lte": math.MaxInt64 - delta}
	}
	update := bson.M{
		"$inc": bson.M{"balance": delta, "version": int64(1)},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	var doc accountDoc
	err = r.coll.FindOneAndUpdate(sc, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err == nil {
		return doc.toDomain(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	if _, err := r.findOne(sc, bson.M{"_id": id}); err != nil {
		return nil, err
	}
	if delta > 0 {
		return nil, domain.ErrBalanceOverflow
	}
	return nil, domain.ErrInsufficientFunds
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	var doc accountDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}
