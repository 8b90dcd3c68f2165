package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionLedger on MongoDB.
type TransactionRepository struct {
	coll *mongo.Collection
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db *mongo.Database) *TransactionRepository {
	return &TransactionRepository{coll: db.Collection(transactionsCollection)}
}

func involves(accountID string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"account_id": accountID},
		bson.M{"receiver_account_id": accountID},
	}}
}

func (r *TransactionRepository) Append(ctx context.Context, scope usecase.Scope, record *domain.TransactionRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	sc, err := sessionContext(ctx, scope)
	if err != nil {
		return err
	}
	_, err = r.coll.InsertOne(sc, toTransactionDoc(record))
	return err
}

// ListByAccount counts and pages in one $facet aggregation, so the total and the
// page come from the same set of documents. Record IDs are minted after the balance
// write, so _id breaks timestamp ties in commit order.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string, offset, limit int) ([]*domain.TransactionRecord, int64, error) {
	if offset < 0 || limit < 1 {
		return []*domain.TransactionRecord{}, 0, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: involves(accountID)}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$facet", Value: bson.M{
			"total":   bson.A{bson.M{"$count": "n"}},
			"records": bson.A{bson.M{"$skip": int64(offset)}, bson.M{"$limit": int64(limit)}},
		}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, err
	}

	var out []struct {
		Total []struct {
			N int64 `bson:"n"`
		} `bson:"total"`
		Records []transactionDoc `bson:"records"`
	}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, 0, err
	}

	records := []*domain.TransactionRecord{}
	if len(out) == 0 {
		return records, 0, nil
	}
	var total int64
	if len(out[0].Total) > 0 {
		total = out[0].Total[0].N
	}
	for _, d := range out[0].Records {
		records = append(records, d.toDomain())
	}
	return records, total, nil
}

func (r *TransactionRepository) NetByAccount(ctx context.Context, accountID string) (int64, error) {
	negated := bson.M{"$multiply": bson.A{"$amount", -1}}
	signed := bson.M{"$switch": bson.M{
		"branches": bson.A{
			bson.M{"case": bson.M{"$eq": bson.A{"$type", string(domain.TransactionDeposit)}}, "then": "$amount"},
			bson.M{"case": bson.M{"$eq": bson.A{"$type", string(domain.TransactionWithdrawal)}}, "then": negated},
			bson.M{"case": bson.M{"$eq": bson.A{"$receiver_account_id", accountID}}, "then": "$amount"},
		},
		"default": negated,
	}}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: involves(accountID)}},
		{{Key: "$group", Value: bson.M{"_id": nil, "net": bson.M{"$sum": signed}}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}

	var out []struct {
		Net int64 `bson:"net"`
	}
	if err := cursor.All(ctx, &out); err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, nil
	}
	return out[0].Net, nil
}
