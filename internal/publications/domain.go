package publications

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Publication categories.
const (
	CategoryNotice      = "notice"
	CategoryEmergency   = "emergency"
	CategoryMaintenance = "maintenance"
	CategoryEvent       = "event"
	CategoryGeneral     = "general"
)

// Publication priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Author roles.
const (
	AuthorAdmin    = "admin"
	AuthorStaff    = "staff"
	AuthorResident = "resident"
)

// Publication is a notice posted to a condominium's board.
type Publication struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CondominiumID  primitive.ObjectID `bson:"condominiumId" json:"condominiumId"`
	Title          string             `bson:"title" json:"title"`
	Content        string             `bson:"content" json:"content"`
	Category       string             `bson:"category" json:"category"`
	Priority       string             `bson:"priority" json:"priority"`
	Author         Author             `bson:"author" json:"author"`
	Attachments    []Attachment       `bson:"attachments" json:"attachments"`
	IsVisible      bool               `bson:"isVisible" json:"isVisible"`
	PublishDate    time.Time          `bson:"publishDate" json:"publishDate"`
	ExpirationDate *time.Time         `bson:"expirationDate,omitempty" json:"expirationDate,omitempty"`
	Views          int64              `bson:"views" json:"views"`
	Reactions      []Reaction         `bson:"reactions" json:"reactions"`
	Comments       []Comment          `bson:"comments" json:"comments"`
	IsActive       bool               `bson:"isActive" json:"isActive"`
	CreatedBy      string             `bson:"createdBy" json:"createdBy"`
	LastModifiedBy string             `bson:"lastModifiedBy,omitempty" json:"lastModifiedBy,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type Author struct {
	FirebaseUID string `bson:"firebaseUid" json:"firebaseUid"`
	Name        string `bson:"name" json:"name"`
	Role        string `bson:"role" json:"role"`
}

type Attachment struct {
	Type string `bson:"type" json:"type" validate:"required,oneof=image document video"`
	URL  string `bson:"url" json:"url" validate:"required,url"`
	Name string `bson:"name" json:"name" validate:"required"`
	Size int64  `bson:"size" json:"size" validate:"gte=0"`
}

// Reaction is one user's response to a publication. A user holds at most one.
type Reaction struct {
	FirebaseUID string    `bson:"firebaseUid" json:"firebaseUid"`
	Type        string    `bson:"type" json:"type"`
	Date        time.Time `bson:"date" json:"date"`
}

type Comment struct {
	ID          string    `bson:"id" json:"id"`
	FirebaseUID string    `bson:"firebaseUid" json:"firebaseUid"`
	UserName    string    `bson:"userName" json:"userName"`
	Content     string    `bson:"content" json:"content"`
	Date        time.Time `bson:"date" json:"date"`
	IsEdited    bool      `bson:"isEdited" json:"isEdited"`
}

// CreateInput carries the fields accepted when posting a publication.
type CreateInput struct {
	CondominiumID  string       `json:"condominiumId" validate:"required"`
	Title          string       `json:"title" validate:"required,max=200"`
	Content        string       `json:"content" validate:"required"`
	Category       string       `json:"category" validate:"required,oneof=notice emergency maintenance event general"`
	Priority       string       `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Attachments    []Attachment `json:"attachments" validate:"dive"`
	PublishDate    *time.Time   `json:"publishDate"`
	ExpirationDate *time.Time   `json:"expirationDate"`
}

// UpdateInput carries the mutable fields; nil means unchanged.
type UpdateInput struct {
	Title          *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Content        *string    `json:"content" validate:"omitempty,min=1"`
	Category       *string    `json:"category" validate:"omitempty,oneof=notice emergency maintenance event general"`
	Priority       *string    `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	IsVisible      *bool      `json:"isVisible"`
	ExpirationDate *time.Time `json:"expirationDate"`
}

type ReactionInput struct {
	Type string `json:"type" validate:"required,oneof=like important useful"`
}

type CommentInput struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// Filter narrows board listings.
type Filter struct {
	Category string
	Priority string
}

// CategoryBucket aggregates publications sharing a category.
type CategoryBucket struct {
	Category     string  `bson:"_id" json:"category"`
	Count        int64   `bson:"count" json:"count"`
	TotalViews   int64   `bson:"totalViews" json:"totalViews"`
	AvgReactions float64 `bson:"avgReactions" json:"avgReactions"`
}

// Stats summarises the board of a condominium.
type Stats struct {
	TotalPublications int64            `json:"totalPublications"`
	TotalViews        int64            `json:"totalViews"`
	ByCategory        []CategoryBucket `json:"byCategory"`
}
