package condominiums

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Condominium kinds.
const (
	TypeResidential = "residential"
	TypeCommercial  = "commercial"
	TypeMixed       = "mixed"
)

// Condominium is a managed building or complex.
type Condominium struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Address        string             `bson:"address" json:"address"`
	City           string             `bson:"city" json:"city"`
	Region         string             `bson:"region" json:"region"`
	Country        string             `bson:"country" json:"country"`
	TotalUnits     int                `bson:"totalUnits" json:"totalUnits"`
	Type           string             `bson:"type" json:"type"`
	Settings       Settings           `bson:"settings" json:"settings"`
	Contact        Contact            `bson:"contact" json:"contact"`
	Management     Management         `bson:"management" json:"management"`
	IsActive       bool               `bson:"isActive" json:"isActive"`
	CreatedBy      string             `bson:"createdBy" json:"createdBy"`
	LastModifiedBy string             `bson:"lastModifiedBy,omitempty" json:"lastModifiedBy,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Settings drive billing and localisation for a condominium.
type Settings struct {
	BillingCutoffDay int    `bson:"billingCutoffDay" json:"billingCutoffDay"`
	PaymentDueDays   int    `bson:"paymentDueDays" json:"paymentDueDays"`
	Currency         string `bson:"currency" json:"currency"`
	Timezone         string `bson:"timezone" json:"timezone"`
	Language         string `bson:"language" json:"language"`
}

// DefaultSettings mirrors the values applied when a condominium omits them.
func DefaultSettings() Settings {
	return Settings{
		BillingCutoffDay: 1,
		PaymentDueDays:   10,
		Currency:         "CLP",
		Timezone:         "America/Santiago",
		Language:         "es",
	}
}

type Contact struct {
	Phone   string `bson:"phone,omitempty" json:"phone,omitempty"`
	Email   string `bson:"email,omitempty" json:"email,omitempty"`
	Website string `bson:"website,omitempty" json:"website,omitempty"`
}

type Management struct {
	CompanyName    string `bson:"companyName,omitempty" json:"companyName,omitempty"`
	CompanyTaxID   string `bson:"companyTaxId,omitempty" json:"companyTaxId,omitempty"`
	CompanyContact string `bson:"companyContact,omitempty" json:"companyContact,omitempty"`
}

// Input is the writable shape of a condominium. Nil fields are left unchanged
// on update and defaulted on create.
type Input struct {
	Name       *string     `json:"name"`
	Address    *string     `json:"address"`
	City       *string     `json:"city"`
	Region     *string     `json:"region"`
	Country    *string     `json:"country"`
	TotalUnits *int        `json:"totalUnits"`
	Type       *string     `json:"type"`
	Settings   *Settings   `json:"settings"`
	Contact    *Contact    `json:"contact"`
	Management *Management `json:"management"`
	IsActive   *bool       `json:"isActive"`
}

// Residence is the property a user owns or lives in, with its condominium.
type Residence struct {
	Condominium *Condominium `json:"condominium"`
	Property    any          `json:"property"`
}
