package condominiums

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/neighbora/neighbora-api/internal/platform/mongodb"
	"github.com/neighbora/neighbora-api/internal/shared"
)

// CollectionName is the MongoDB collection holding condominiums.
const CollectionName = "condominiums"

// Repository defines persistence operations for condominiums.
type Repository interface {
	ListActiveByCreator(ctx context.Context, uid string) ([]Condominium, error)
	Get(ctx context.Context, id primitive.ObjectID) (*Condominium, error)
	Insert(ctx context.Context, c *Condominium) error
	Replace(ctx context.Context, c *Condominium) error
}

// MongoRepository implements Repository on MongoDB.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewRepository constructs a MongoDB repository.
func NewRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(CollectionName)}
}

// EnsureIndexes creates lookup indexes.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	return mongodb.EnsureIndexes(ctx, r.coll,
		mongo.IndexModel{Keys: bson.D{{Key: "name", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "isActive", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "createdBy", Value: 1}}},
	)
}

func (r *MongoRepository) ListActiveByCreator(ctx context.Context, uid string) ([]Condominium, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{"isActive": true, "createdBy": uid}, opts)
	if err != nil {
		return nil, fmt.Errorf("condominiums: list: %w", err)
	}
	var out []Condominium
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("condominiums: decode list: %w", err)
	}
	return out, nil
}

func (r *MongoRepository) Get(ctx context.Context, id primitive.ObjectID) (*Condominium, error) {
	var out Condominium
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&out); err != nil {
		if mongodb.IsNoDocuments(err) {
			return nil, fmt.Errorf("condominium %w", shared.ErrNotFound)
		}
		return nil, fmt.Errorf("condominiums: get: %w", err)
	}
	return &out, nil
}

func (r *MongoRepository) Insert(ctx context.Context, c *Condominium) error {
	res, err := r.coll.InsertOne(ctx, c)
	if err != nil {
		return fmt.Errorf("condominiums: insert: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		c.ID = oid
	}
	return nil
}

func (r *MongoRepository) Replace(ctx context.Context, c *Condominium) error {
	c.UpdatedAt = time.Now().UTC()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": c.ID}, c)
	if err != nil {
		return fmt.Errorf("condominiums: replace: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("condominium %w", shared.ErrNotFound)
	}
	return nil
}
