package admins

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/neighbora/neighbora-api/internal/auth"
	"github.com/neighbora/neighbora-api/internal/platform/mongodb"
	"github.com/neighbora/neighbora-api/internal/shared"
)

// CollectionName is the MongoDB collection holding admin records.
const CollectionName = "admins"

// Repository defines persistence operations for admin records.
type Repository interface {
	ListActive(ctx context.Context) ([]Admin, error)
	Get(ctx context.Context, id primitive.ObjectID) (*Admin, error)
	FindByFirebaseUID(ctx context.Context, uid string) (*Admin, error)
	Insert(ctx context.Context, admin *Admin) error
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*Admin, error)
	ActiveGrant(ctx context.Context, uid string) (*auth.Grant, error)
}

// MongoRepository implements Repository on MongoDB.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewRepository constructs a MongoDB repository.
func NewRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(CollectionName)}
}

// EnsureIndexes creates the unique and lookup indexes.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	return mongodb.EnsureIndexes(ctx, r.coll,
		mongo.IndexModel{Keys: bson.D{{Key: "firebaseUid", Value: 1}}, Options: options.Index().SetUnique(true)},
		mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		mongo.IndexModel{Keys: bson.D{{Key: "firebaseUid", Value: 1}, {Key: "isActive", Value: 1}}},
	)
}

// ListActive returns active admins, newest first.
func (r *MongoRepository) ListActive(ctx context.Context) ([]Admin, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{"isActive": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("admins: list: %w", err)
	}
	var out []Admin
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("admins: decode list: %w", err)
	}
	return out, nil
}

// Get loads an admin by id.
func (r *MongoRepository) Get(ctx context.Context, id primitive.ObjectID) (*Admin, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindByFirebaseUID loads an admin regardless of its active flag.
func (r *MongoRepository) FindByFirebaseUID(ctx context.Context, uid string) (*Admin, error) {
	return r.findOne(ctx, bson.M{"firebaseUid": uid})
}

// Insert stores a new admin and fills its id.
func (r *MongoRepository) Insert(ctx context.Context, admin *Admin) error {
	res, err := r.coll.InsertOne(ctx, admin)
	if err != nil {
		if mongodb.IsDuplicateKey(err) {
			return fmt.Errorf("%w: admin already exists", shared.ErrConflict)
		}
		return fmt.Errorf("admins: insert: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		admin.ID = oid
	}
	return nil
}

// Update applies set and returns the updated document.
func (r *MongoRepository) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*Admin, error) {
	set["updatedAt"] = time.Now().UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var out Admin
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&out)
	if err != nil {
		if mongodb.IsNoDocuments(err) {
			return nil, fmt.Errorf("admin %w", shared.ErrNotFound)
		}
		return nil, fmt.Errorf("admins: update: %w", err)
	}
	return &out, nil
}

// ActiveGrant returns the grant of the active admin record for uid.
func (r *MongoRepository) ActiveGrant(ctx context.Context, uid string) (*auth.Grant, error) {
	admin, err := r.findOne(ctx, bson.M{"firebaseUid": uid, "isActive": true})
	if err != nil {
		return nil, err
	}
	return &auth.Grant{Role: admin.Role, Permissions: admin.Permissions}, nil
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*Admin, error) {
	var out Admin
	if err := r.coll.FindOne(ctx, filter).Decode(&out); err != nil {
		if mongodb.IsNoDocuments(err) {
			return nil, fmt.Errorf("admin %w", shared.ErrNotFound)
		}
		return nil, fmt.Errorf("admins: find: %w", err)
	}
	return &out, nil
}
