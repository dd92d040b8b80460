package expenses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/neighbora/neighbora-api/internal/platform/mongodb"
	"github.com/neighbora/neighbora-api/internal/shared"
)

// CollectionName is the MongoDB collection holding common expenses.
const CollectionName = "commonexpenses"

// ErrStaleVersion is returned by versioned writes when the stored document
// changed since it was read.
var ErrStaleVersion = errors.New("expenses: stale version")

// Repository defines persistence operations for common expenses.
type Repository interface {
	Get(ctx context.Context, id primitive.ObjectID) (*CommonExpense, error)
	ListByProperty(ctx context.Context, propertyID primitive.ObjectID, f Filter) ([]CommonExpense, error)
	PageByCondominium(ctx context.Context, condominiumID primitive.ObjectID, f Filter, page shared.PageRequest) ([]CommonExpense, int64, error)
	Insert(ctx context.Context, e *CommonExpense) error
	// AppendPayment pushes p and stores the reconciled aggregate in one
	// conditional write on (id, version).
	AppendPayment(ctx context.Context, id primitive.ObjectID, version int64, p Payment, rec Reconciliation, overdue bool) error
	// Save replaces e when its stored version still equals e.Version.
	Save(ctx context.Context, e *CommonExpense) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	StatusBreakdown(ctx context.Context, condominiumID primitive.ObjectID) ([]StatusBucket, error)
	CountOverdue(ctx context.Context, condominiumID primitive.ObjectID) (int64, error)
	// MarkOverdue flags every unpaid expense due before now.
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

// MongoRepository implements Repository on MongoDB.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewRepository constructs a MongoDB repository.
func NewRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(CollectionName)}
}

// EnsureIndexes creates the period uniqueness and lookup indexes.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	return mongodb.EnsureIndexes(ctx, r.coll,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "propertyId", Value: 1}, {Key: "period", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		mongo.IndexModel{Keys: bson.D{{Key: "condominiumId", Value: 1}, {Key: "period", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "condominiumId", Value: 1}, {Key: "status", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "dueDate", Value: 1}, {Key: "overdue", Value: 1}}},
	)
}

func (r *MongoRepository) Get(ctx context.Context, id primitive.ObjectID) (*CommonExpense, error) {
	var out CommonExpense
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&out); err != nil {
		if mongodb.IsNoDocuments(err) {
			return nil, fmt.Errorf("common expense %w", shared.ErrNotFound)
		}
		return nil, fmt.Errorf("expenses: get: %w", err)
	}
	return &out, nil
}

func (r *MongoRepository) ListByProperty(ctx context.Context, propertyID primitive.ObjectID, f Filter) ([]CommonExpense, error) {
	filter := filterDoc(f)
	filter["propertyId"] = propertyID
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "period", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("expenses: list: %w", err)
	}
	var out []CommonExpense
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("expenses: decode list: %w", err)
	}
	return out, nil
}

func (r *MongoRepository) PageByCondominium(ctx context.Context, condominiumID primitive.ObjectID, f Filter, page shared.PageRequest) ([]CommonExpense, int64, error) {
	filter := filterDoc(f)
	filter["condominiumId"] = condominiumID
	opts := options.Find().
		SetSort(bson.D{{Key: "period", Value: -1}}).
		SetSkip(page.Skip()).
		SetLimit(page.Limit())
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("expenses: page: %w", err)
	}
	var out []CommonExpense
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("expenses: decode page: %w", err)
	}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("expenses: count: %w", err)
	}
	return out, total, nil
}

func (r *MongoRepository) Insert(ctx context.Context, e *CommonExpense) error {
	res, err := r.coll.InsertOne(ctx, e)
	if err != nil {
		if mongodb.IsDuplicateKey(err) {
			return fmt.Errorf("%w: an expense for period %s already exists for this property", shared.ErrConflict, e.Period)
		}
		return fmt.Errorf("expenses: insert: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		e.ID = oid
	}
	return nil
}

func (r *MongoRepository) AppendPayment(ctx context.Context, id primitive.ObjectID, version int64, p Payment, rec Reconciliation, overdue bool) error {
	update := bson.M{
		"$push": bson.M{"payments": p},
		"$set": bson.M{
			"status":         rec.Status,
			"totalPaid":      rec.TotalPaid,
			"overdue":        overdue,
			"lastModifiedBy": p.RegisteredBy,
			"updatedAt":      time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}
	res, err := r.coll.UpdateOne(ctx, versionFilter(id, version), update)
	if err != nil {
		return fmt.Errorf("expenses: append payment: %w", err)
	}
	return r.matched(ctx, id, res.MatchedCount)
}

func (r *MongoRepository) Save(ctx context.Context, e *CommonExpense) error {
	expected := e.Version
	next := *e
	next.Version = expected + 1
	next.UpdatedAt = time.Now().UTC()
	res, err := r.coll.ReplaceOne(ctx, versionFilter(e.ID, expected), next)
	if err != nil {
		return fmt.Errorf("expenses: save: %w", err)
	}
	if err := r.matched(ctx, e.ID, res.MatchedCount); err != nil {
		return err
	}
	*e = next
	return nil
}

func (r *MongoRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("expenses: delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("common expense %w", shared.ErrNotFound)
	}
	return nil
}

func (r *MongoRepository) StatusBreakdown(ctx context.Context, condominiumID primitive.ObjectID) ([]StatusBucket, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"condominiumId": condominiumID}}},
		{{Key: "$group", Value: bson.M{
			"_id":         "$status",
			"count":       bson.M{"$sum": 1},
			"totalAmount": bson.M{"$sum": "$amounts.total"},
			"totalPaid":   bson.M{"$sum": "$totalPaid"},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("expenses: status breakdown: %w", err)
	}
	var out []StatusBucket
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("expenses: decode breakdown: %w", err)
	}
	return out, nil
}

func (r *MongoRepository) CountOverdue(ctx context.Context, condominiumID primitive.ObjectID) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"condominiumId": condominiumID, "overdue": true})
	if err != nil {
		return 0, fmt.Errorf("expenses: count overdue: %w", err)
	}
	return n, nil
}

func (r *MongoRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{
		"dueDate": bson.M{"$lt": now},
		"status":  bson.M{"$ne": StatusPaid},
		"overdue": bson.M{"$ne": true},
	}
	update := bson.M{
		"$set": bson.M{"overdue": true, "updatedAt": now},
		"$inc": bson.M{"version": 1},
	}
	res, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("expenses: mark overdue: %w", err)
	}
	return res.ModifiedCount, nil
}

// matched turns a zero match count into not found or a stale version.
// versionFilter matches id at version. Documents written before the version
// field existed count as version 0.
func versionFilter(id primitive.ObjectID, version int64) bson.M {
	if version == 0 {
		return bson.M{"_id": id, "$or": bson.A{
			bson.M{"version": int64(0)},
			bson.M{"version": bson.M{"$exists": false}},
		}}
	}
	return bson.M{"_id": id, "version": version}
}

func (r *MongoRepository) matched(ctx context.Context, id primitive.ObjectID, n int64) error {
	if n > 0 {
		return nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return ErrStaleVersion
}

func filterDoc(f Filter) bson.M {
	filter := bson.M{}
	if f.Period != "" {
		filter["period"] = f.Period
	}
	switch f.Status {
	case "":
	case string(StatusOverdue):
		filter["overdue"] = true
	default:
		filter["status"] = f.Status
	}
	return filter
}
