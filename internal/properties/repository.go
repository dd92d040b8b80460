package properties

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

// CollectionName is the MongoDB collection holding properties.
const CollectionName = "properties"

// Repository defines persistence operations for properties and their
// embedded residents.
type Repository interface {
	ListActiveByCondominium(ctx context.Context, condominiumID primitive.ObjectID) ([]Property, error)
	ListActiveForUser(ctx context.Context, uid string) ([]Property, error)
	Get(ctx context.Context, id primitive.ObjectID) (*Property, error)
	Insert(ctx context.Context, p *Property) error
	Replace(ctx context.Context, p *Property) error
	PushResident(ctx context.Context, id primitive.ObjectID, r Resident) (*Property, error)
	UpdateResident(ctx context.Context, id primitive.ObjectID, email string, patch ResidentPatch) (*Property, error)
	PullResident(ctx context.Context, id primitive.ObjectID, email string) (*Property, error)
}

// MongoRepository implements Repository on MongoDB.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewRepository constructs a MongoDB repository.
func NewRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(CollectionName)}
}

// EnsureIndexes creates the unit-number uniqueness and residence lookup indexes.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	return mongodb.EnsureIndexes(ctx, r.coll,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "condominiumId", Value: 1}, {Key: "number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		mongo.IndexModel{Keys: bson.D{{Key: "condominiumId", Value: 1}, {Key: "isActive", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "owner.firebaseUid", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "residents.firebaseUid", Value: 1}}},
	)
}

func (r *MongoRepository) ListActiveByCondominium(ctx context.Context, condominiumID primitive.ObjectID) ([]Property, error) {
	return r.find(ctx, bson.M{"condominiumId": condominiumID, "isActive": true})
}

// ListActiveForUser returns active properties owned or inhabited by uid.
func (r *MongoRepository) ListActiveForUser(ctx context.Context, uid string) ([]Property, error) {
	return r.find(ctx, bson.M{
		"isActive": true,
		"$or": bson.A{
			bson.M{"owner.firebaseUid": uid},
			bson.M{"residents.firebaseUid": uid},
		},
	})
}

func (r *MongoRepository) Get(ctx context.Context, id primitive.ObjectID) (*Property, error) {
	var out Property
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&out); err != nil {
		if mongodb.IsNoDocuments(err) {
			return nil, fmt.Errorf("property %w", shared.ErrNotFound)
		}
		return nil, fmt.Errorf("properties: get: %w", err)
	}
	return &out, nil
}

func (r *MongoRepository) Insert(ctx context.Context, p *Property) error {
	res, err := r.coll.InsertOne(ctx, p)
	if err != nil {
		if mongodb.IsDuplicateKey(err) {
			return duplicateNumber()
		}
		return fmt.Errorf("properties: insert: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return nil
}

func (r *MongoRepository) Replace(ctx context.Context, p *Property) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		if mongodb.IsDuplicateKey(err) {
			return duplicateNumber()
		}
		return fmt.Errorf("properties: replace: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("property %w", shared.ErrNotFound)
	}
	return nil
}

// PushResident appends r unless an active resident already uses its email.
func (r *MongoRepository) PushResident(ctx context.Context, id primitive.ObjectID, res Resident) (*Property, error) {
	filter := bson.M{
		"_id": id,
		"residents": bson.M{"$not": bson.M{"$elemMatch": bson.M{"email": res.Email, "isActive": true}}},
	}
	update := bson.M{
		"$push": bson.M{"residents": res},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	out, err := r.findOneAndUpdate(ctx, filter, update)
	if errors.Is(err, shared.ErrNotFound) {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: resident %s is already active on this property", shared.ErrConflict, res.Email)
	}
	return out, err
}

// UpdateResident patches the first resident registered under email.
func (r *MongoRepository) UpdateResident(ctx context.Context, id primitive.ObjectID, email string, patch ResidentPatch) (*Property, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.Name != nil {
		set["residents.$.name"] = *patch.Name
	}
	if patch.Phone != nil {
		set["residents.$.phone"] = *patch.Phone
	}
	if patch.Relationship != nil {
		set["residents.$.relationship"] = *patch.Relationship
	}
	if patch.IsActive != nil {
		set["residents.$.isActive"] = *patch.IsActive
		if !*patch.IsActive {
			set["residents.$.endDate"] = time.Now().UTC()
		}
	}
	out, err := r.findOneAndUpdate(ctx, bson.M{"_id": id, "residents.email": email}, bson.M{"$set": set})
	if errors.Is(err, shared.ErrNotFound) {
		return nil, r.missingResident(ctx, id)
	}
	return out, err
}

// PullResident removes every resident entry registered under email.
func (r *MongoRepository) PullResident(ctx context.Context, id primitive.ObjectID, email string) (*Property, error) {
	update := bson.M{
		"$pull": bson.M{"residents": bson.M{"email": email}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	out, err := r.findOneAndUpdate(ctx, bson.M{"_id": id, "residents.email": email}, update)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, r.missingResident(ctx, id)
	}
	return out, err
}

func (r *MongoRepository) missingResident(ctx context.Context, id primitive.ObjectID) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("resident %w", shared.ErrNotFound)
}

func (r *MongoRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*Property, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var out Property
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out); err != nil {
		if mongodb.IsNoDocuments(err) {
			return nil, fmt.Errorf("property %w", shared.ErrNotFound)
		}
		return nil, fmt.Errorf("properties: update: %w", err)
	}
	return &out, nil
}

func (r *MongoRepository) find(ctx context.Context, filter bson.M) ([]Property, error) {
	opts := options.Find().SetSort(bson.D{{Key: "number", Value: 1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("properties: list: %w", err)
	}
	var out []Property
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("properties: decode list: %w", err)
	}
	return out, nil
}

func duplicateNumber() error {
	return fmt.Errorf("%w: property number already exists in this condominium", shared.ErrConflict)
}
