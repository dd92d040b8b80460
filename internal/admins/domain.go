package admins

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/neighbora/neighbora-api/internal/auth"
)

// Admin is the persisted mirror of an administrative role assignment.
type Admin struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	FirebaseUID    string              `bson:"firebaseUid" json:"firebaseUid"`
	Email          string              `bson:"email" json:"email"`
	Name           string              `bson:"name,omitempty" json:"name,omitempty"`
	Role           auth.Role           `bson:"role" json:"role"`
	CondominiumID  *primitive.ObjectID `bson:"condominiumId,omitempty" json:"condominiumId,omitempty"`
	Permissions    []string            `bson:"permissions" json:"permissions"`
	IsActive       bool                `bson:"isActive" json:"isActive"`
	CreatedBy      string              `bson:"createdBy,omitempty" json:"-"`
	LastModifiedBy string              `bson:"lastModifiedBy,omitempty" json:"-"`
	CreatedAt      time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// CreateInput carries the fields accepted when registering an admin.
type CreateInput struct {
	FirebaseUID   string   `json:"firebaseUid" validate:"required"`
	Email         string   `json:"email" validate:"required,email"`
	Name          string   `json:"name"`
	Role          string   `json:"role" validate:"omitempty,oneof=admin superadmin"`
	CondominiumID string   `json:"condominiumId"`
	Permissions   []string `json:"permissions"`
}

// UpdateInput carries the mutable admin fields; nil means unchanged.
type UpdateInput struct {
	Name        *string   `json:"name"`
	Role        *string   `json:"role" validate:"omitempty,oneof=admin superadmin"`
	Permissions *[]string `json:"permissions"`
	IsActive    *bool     `json:"isActive"`
}

// Verification answers whether a uid currently holds an active admin record.
type Verification struct {
	IsAdmin     bool      `json:"isAdmin"`
	Role        auth.Role `json:"role"`
	Permissions []string  `json:"permissions,omitempty"`
}
