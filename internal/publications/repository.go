package publications

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

// CollectionName is the MongoDB collection holding publications.
const CollectionName = "publications"

// Repository defines persistence operations for publications.
type Repository interface {
	// PageVisible lists active, visible, published and unexpired publications.
	PageVisible(ctx context.Context, condominiumID primitive.ObjectID, f Filter, now time.Time, page shared.PageRequest) ([]Publication, int64, error)
	// IncrementViews bumps the view counter of an active publication and returns it.
	IncrementViews(ctx context.Context, id primitive.ObjectID) (*Publication, error)
	Insert(ctx context.Context, p *Publication) error
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*Publication, error)
	// React sets uid's reaction, replacing any earlier one.
	React(ctx context.Context, id primitive.ObjectID, r Reaction) (*Publication, error)
	AddComment(ctx context.Context, id primitive.ObjectID, c Comment) (*Publication, error)
	CategoryBreakdown(ctx context.Context, condominiumID primitive.ObjectID) ([]CategoryBucket, error)
	TotalViews(ctx context.Context, condominiumID primitive.ObjectID) (int64, error)
}

// MongoRepository implements Repository on MongoDB.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewRepository constructs a MongoDB repository.
func NewRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(CollectionName)}
}

// EnsureIndexes creates the board listing indexes.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	return mongodb.EnsureIndexes(ctx, r.coll,
		mongo.IndexModel{Keys: bson.D{{Key: "condominiumId", Value: 1}, {Key: "publishDate", Value: -1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "condominiumId", Value: 1}, {Key: "category", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "condominiumId", Value: 1}, {Key: "isVisible", Value: 1}, {Key: "publishDate", Value: -1}}},
	)
}

func (r *MongoRepository) PageVisible(ctx context.Context, condominiumID primitive.ObjectID, f Filter, now time.Time, page shared.PageRequest) ([]Publication, int64, error) {
	filter := bson.M{
		"condominiumId": condominiumID,
		"isVisible":     true,
		"isActive":      true,
		"publishDate":   bson.M{"$lte": now},
		"$or": bson.A{
			bson.M{"expirationDate": bson.M{"$exists": false}},
			bson.M{"expirationDate": nil},
			bson.M{"expirationDate": bson.M{"$gt": now}},
		},
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Priority != "" {
		filter["priority"] = f.Priority
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "publishDate", Value: -1}}).
		SetSkip(page.Skip()).
		SetLimit(page.Limit())
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("publications: page: %w", err)
	}
	var out []Publication
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("publications: decode page: %w", err)
	}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("publications: count: %w", err)
	}
	return out, total, nil
}

func (r *MongoRepository) IncrementViews(ctx context.Context, id primitive.ObjectID) (*Publication, error) {
	return r.findOneAndUpdate(ctx, bson.M{"_id": id, "isActive": true}, bson.M{"$inc": bson.M{"views": 1}})
}

func (r *MongoRepository) Insert(ctx context.Context, p *Publication) error {
	res, err := r.coll.InsertOne(ctx, p)
	if err != nil {
		return fmt.Errorf("publications: insert: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return nil
}

func (r *MongoRepository) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*Publication, error) {
	set["updatedAt"] = time.Now().UTC()
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

func (r *MongoRepository) React(ctx context.Context, id primitive.ObjectID, reaction Reaction) (*Publication, error) {
	return upsertReaction(ctx, r.findOneAndUpdate, id, reaction)
}

type updateFunc func(ctx context.Context, filter, update bson.M) (*Publication, error)

// upsertReaction replaces the caller's reaction in place and pushes a new one
// only when no reaction of theirs exists yet.
func upsertReaction(ctx context.Context, update updateFunc, id primitive.ObjectID, reaction Reaction) (*Publication, error) {
	replaced, err := update(ctx,
		bson.M{"_id": id, "isActive": true, "reactions.firebaseUid": reaction.FirebaseUID},
		bson.M{"$set": bson.M{"reactions.$.type": reaction.Type, "reactions.$.date": reaction.Date}},
	)
	if !errors.Is(err, shared.ErrNotFound) {
		return replaced, err
	}
	return update(ctx,
		bson.M{"_id": id, "isActive": true, "reactions.firebaseUid": bson.M{"$ne": reaction.FirebaseUID}},
		bson.M{"$push": bson.M{"reactions": reaction}},
	)
}

func (r *MongoRepository) AddComment(ctx context.Context, id primitive.ObjectID, c Comment) (*Publication, error) {
	return r.findOneAndUpdate(ctx, bson.M{"_id": id, "isActive": true}, bson.M{"$push": bson.M{"comments": c}})
}

func (r *MongoRepository) CategoryBreakdown(ctx context.Context, condominiumID primitive.ObjectID) ([]CategoryBucket, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"condominiumId": condominiumID, "isActive": true}}},
		{{Key: "$group", Value: bson.M{
			"_id":          "$category",
			"count":        bson.M{"$sum": 1},
			"totalViews":   bson.M{"$sum": "$views"},
			"avgReactions": bson.M{"$avg": bson.M{"$size": bson.M{"$ifNull": bson.A{"$reactions", bson.A{}}}}},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("publications: category breakdown: %w", err)
	}
	var out []CategoryBucket
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("publications: decode breakdown: %w", err)
	}
	return out, nil
}

func (r *MongoRepository) TotalViews(ctx context.Context, condominiumID primitive.ObjectID) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"condominiumId": condominiumID, "isActive": true}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$views"}}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("publications: total views: %w", err)
	}
	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("publications: decode total views: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

func (r *MongoRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*Publication, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var out Publication
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out); err != nil {
		if mongodb.IsNoDocuments(err) {
			return nil, fmt.Errorf("publication %w", shared.ErrNotFound)
		}
		return nil, fmt.Errorf("publications: update: %w", err)
	}
	return &out, nil
}
