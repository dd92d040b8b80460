package properties

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Property kinds.
const (
	TypeApartment  = "apartment"
	TypeHouse      = "house"
	TypeCommercial = "commercial"
	TypeStorage    = "storage"
	TypeParking    = "parking"
)

// Resident relationships to a property.
const (
	RelationshipOwner  = "owner"
	RelationshipTenant = "tenant"
	RelationshipFamily = "family"
	RelationshipOther  = "other"
)

// Property is a unit inside a condominium. Residents are embedded.
type Property struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CondominiumID     primitive.ObjectID `bson:"condominiumId" json:"condominiumId"`
	Number            string             `bson:"number" json:"number"`
	Floor             *int               `bson:"floor,omitempty" json:"floor,omitempty"`
	Block             string             `bson:"block,omitempty" json:"block,omitempty"`
	Type              string             `bson:"type" json:"type"`
	SquareMeters      *float64           `bson:"squareMeters,omitempty" json:"squareMeters,omitempty"`
	Bedrooms          *int               `bson:"bedrooms,omitempty" json:"bedrooms,omitempty"`
	Bathrooms         *int               `bson:"bathrooms,omitempty" json:"bathrooms,omitempty"`
	Owner             *Owner             `bson:"owner,omitempty" json:"owner,omitempty"`
	Residents         []Resident         `bson:"residents" json:"residents"`
	FinancialSettings FinancialSettings  `bson:"financialSettings" json:"financialSettings"`
	IsActive          bool               `bson:"isActive" json:"isActive"`
	CreatedBy         string             `bson:"createdBy" json:"createdBy"`
	LastModifiedBy    string             `bson:"lastModifiedBy,omitempty" json:"lastModifiedBy,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Owner is the registered owner of a property.
type Owner struct {
	FirebaseUID string     `bson:"firebaseUid,omitempty" json:"firebaseUid,omitempty"`
	Name        string     `bson:"name" json:"name" validate:"required"`
	Email       string     `bson:"email" json:"email" validate:"required,email"`
	Phone       string     `bson:"phone,omitempty" json:"phone,omitempty"`
	TaxID       string     `bson:"taxId,omitempty" json:"taxId,omitempty"`
	StartDate   *time.Time `bson:"startDate,omitempty" json:"startDate,omitempty"`
}

// Resident is a person living in a property.
type Resident struct {
	FirebaseUID  string     `bson:"firebaseUid" json:"firebaseUid"`
	Name         string     `bson:"name" json:"name"`
	Email        string     `bson:"email" json:"email"`
	Phone        string     `bson:"phone,omitempty" json:"phone,omitempty"`
	Relationship string     `bson:"relationship" json:"relationship"`
	StartDate    time.Time  `bson:"startDate" json:"startDate"`
	EndDate      *time.Time `bson:"endDate,omitempty" json:"endDate,omitempty"`
	IsActive     bool       `bson:"isActive" json:"isActive"`
}

// FinancialSettings controls how common expenses are apportioned to a property.
type FinancialSettings struct {
	CommonExpensePercentage float64 `bson:"commonExpensePercentage" json:"commonExpensePercentage" validate:"gte=0,lte=100"`
	IsExempt                bool    `bson:"isExempt" json:"isExempt"`
	Notes                   string  `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Input is the writable shape of a property. Nil fields are left unchanged
// on update and defaulted on create.
type Input struct {
	Number            *string            `json:"number" validate:"omitempty,min=1"`
	Floor             *int               `json:"floor"`
	Block             *string            `json:"block"`
	Type              *string            `json:"type" validate:"omitempty,oneof=apartment house commercial storage parking"`
	SquareMeters      *float64           `json:"squareMeters" validate:"omitempty,gte=0"`
	Bedrooms          *int               `json:"bedrooms" validate:"omitempty,gte=0"`
	Bathrooms         *int               `json:"bathrooms" validate:"omitempty,gte=0"`
	Owner             *Owner             `json:"owner"`
	FinancialSettings *FinancialSettings `json:"financialSettings"`
	IsActive          *bool              `json:"isActive"`
}

// ResidentInput carries the fields accepted when adding a resident.
type ResidentInput struct {
	FirebaseUID  string `json:"firebaseUid"`
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship" validate:"required,oneof=owner tenant family other"`
}

// ResidentPatch carries mutable resident fields; nil means unchanged.
type ResidentPatch struct {
	Name         *string `json:"name"`
	Phone        *string `json:"phone"`
	Relationship *string `json:"relationship" validate:"omitempty,oneof=owner tenant family other"`
	IsActive     *bool   `json:"isActive"`
}

// Summary is the compact view returned to residents looking up their units.
type Summary struct {
	ID           primitive.ObjectID `json:"id"`
	Number       string             `json:"number"`
	Block        string             `json:"block,omitempty"`
	Type         string             `json:"type"`
	Bedrooms     *int               `json:"bedrooms,omitempty"`
	Bathrooms    *int               `json:"bathrooms,omitempty"`
	SquareMeters *float64           `json:"squareMeters,omitempty"`
}

// Summarize returns the compact view of p.
func (p Property) Summarize() Summary {
	return Summary{
		ID:           p.ID,
		Number:       p.Number,
		Block:        p.Block,
		Type:         p.Type,
		Bedrooms:     p.Bedrooms,
		Bathrooms:    p.Bathrooms,
		SquareMeters: p.SquareMeters,
	}
}

// ActiveResident returns the active resident registered under email.
func (p Property) ActiveResident(email string) (Resident, bool) {
	for _, r := range p.Residents {
		if r.IsActive && r.Email == email {
			return r, true
		}
	}
	return Resident{}, false
}

// Apply writes the non-nil fields of the patch onto r.
func (patch ResidentPatch) Apply(r *Resident, now time.Time) {
	if patch.Name != nil {
		r.Name = *patch.Name
	}
	if patch.Phone != nil {
		r.Phone = *patch.Phone
	}
	if patch.Relationship != nil {
		r.Relationship = *patch.Relationship
	}
	if patch.IsActive != nil {
		r.IsActive = *patch.IsActive
		if !r.IsActive {
			r.EndDate = &now
		}
	}
}
