package expenses

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/neighbora/neighbora-api/internal/money"
	"github.com/neighbora/neighbora-api/internal/properties"
)

// Payment methods accepted when recording a payment.
const (
	MethodTransfer = "transfer"
	MethodCash     = "cash"
	MethodCheck    = "check"
	MethodWebpay   = "webpay"
	MethodOther    = "other"
)

// CommonExpense is the monthly charge billed to one property.
type CommonExpense struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CondominiumID  primitive.ObjectID `bson:"condominiumId" json:"condominiumId"`
	PropertyID     primitive.ObjectID `bson:"propertyId" json:"propertyId"`
	Period         string             `bson:"period" json:"period"`
	Amounts        Amounts            `bson:"amounts" json:"amounts"`
	IssueDate      time.Time          `bson:"issueDate" json:"issueDate"`
	DueDate        time.Time          `bson:"dueDate" json:"dueDate"`
	Status         Status             `bson:"status" json:"status"`
	TotalPaid      money.Amount       `bson:"totalPaid" json:"totalPaid"`
	Overdue        bool               `bson:"overdue" json:"overdue"`
	Payments       []Payment          `bson:"payments" json:"payments"`
	ExpenseDetails []Detail           `bson:"expenseDetails" json:"expenseDetails"`
	Notes          string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Version        int64              `bson:"version" json:"version"`
	CreatedBy      string             `bson:"createdBy" json:"createdBy"`
	LastModifiedBy string             `bson:"lastModifiedBy,omitempty" json:"lastModifiedBy,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Amounts breaks down what a property owes for a period.
type Amounts struct {
	CommonExpense money.Amount  `bson:"commonExpense" json:"commonExpense"`
	ReserveFund   money.Amount  `bson:"reserveFund" json:"reserveFund"`
	Water         *money.Amount `bson:"water,omitempty" json:"water,omitempty"`
	Gas           *money.Amount `bson:"gas,omitempty" json:"gas,omitempty"`
	Other         *money.Amount `bson:"other,omitempty" json:"other,omitempty"`
	Total         money.Amount  `bson:"total" json:"total"`
}

// Components returns every charge that makes up the total.
func (a Amounts) Components() []money.Amount {
	out := []money.Amount{a.CommonExpense, a.ReserveFund}
	for _, opt := range []*money.Amount{a.Water, a.Gas, a.Other} {
		if opt != nil {
			out = append(out, *opt)
		}
	}
	return out
}

// Payment is one recorded settlement against an expense.
type Payment struct {
	ID            string       `bson:"id" json:"id"`
	Amount        money.Amount `bson:"amount" json:"amount"`
	PaymentDate   time.Time    `bson:"paymentDate" json:"paymentDate"`
	PaymentMethod string       `bson:"paymentMethod" json:"paymentMethod"`
	Receipt       string       `bson:"receipt,omitempty" json:"receipt,omitempty"`
	Notes         string       `bson:"notes,omitempty" json:"notes,omitempty"`
	RegisteredBy  string       `bson:"registeredBy" json:"registeredBy"`
}

// Detail is a line item explaining part of the common expense.
type Detail struct {
	Concept    string       `bson:"concept" json:"concept" validate:"required"`
	Category   string       `bson:"category" json:"category" validate:"required"`
	Amount     money.Amount `bson:"amount" json:"amount"`
	Percentage *float64     `bson:"percentage,omitempty" json:"percentage,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// PaidAmounts lists the amounts of every recorded payment.
func (e *CommonExpense) PaidAmounts() []money.Amount {
	out := make([]money.Amount, 0, len(e.Payments))
	for _, p := range e.Payments {
		out = append(out, p.Amount)
	}
	return out
}

// Balance is the amount still owed; negative when overpaid.
func (e *CommonExpense) Balance() money.Amount {
	return e.Amounts.Total.Sub(e.TotalPaid)
}

// CreateInput carries the fields accepted when issuing an expense.
type CreateInput struct {
	CondominiumID  string    `json:"condominiumId" validate:"required"`
	PropertyID     string    `json:"propertyId" validate:"required"`
	Period         string    `json:"period" validate:"required"`
	Amounts        Amounts   `json:"amounts"`
	IssueDate      time.Time `json:"issueDate" validate:"required"`
	DueDate        time.Time `json:"dueDate" validate:"required"`
	ExpenseDetails []Detail  `json:"expenseDetails" validate:"dive"`
	Notes          string    `json:"notes"`
}

// UpdateInput carries the mutable fields; nil means unchanged.
type UpdateInput struct {
	Amounts        *Amounts   `json:"amounts"`
	DueDate        *time.Time `json:"dueDate"`
	ExpenseDetails *[]Detail  `json:"expenseDetails"`
	Notes          *string    `json:"notes"`
}

// PaymentInput carries a payment to record.
type PaymentInput struct {
	Amount        money.Amount `json:"amount"`
	PaymentDate   time.Time    `json:"paymentDate" validate:"required"`
	PaymentMethod string       `json:"paymentMethod" validate:"required,oneof=transfer cash check webpay other"`
	Receipt       string       `json:"receipt"`
	Notes         string       `json:"notes"`
}

// Filter narrows expense listings. Status "overdue" selects the overdue flag.
type Filter struct {
	Period string
	Status string
}

// StatusBucket aggregates expenses sharing a status.
type StatusBucket struct {
	Status      Status       `bson:"_id" json:"status"`
	Count       int64        `bson:"count" json:"count"`
	TotalAmount money.Amount `bson:"totalAmount" json:"totalAmount"`
	TotalPaid   money.Amount `bson:"totalPaid" json:"totalPaid"`
}

// Stats summarises the expenses of a condominium.
type Stats struct {
	TotalExpenses int64          `json:"totalExpenses"`
	TotalAmount   money.Amount   `json:"totalAmount"`
	TotalPaid     money.Amount   `json:"totalPaid"`
	Outstanding   money.Amount   `json:"outstanding"`
	OverdueCount  int64          `json:"overdueCount"`
	ByStatus      []StatusBucket `json:"byStatus"`
}

// UserExpenses is the expense history of the caller's unit.
type UserExpenses struct {
	Property       properties.Summary `json:"property"`
	CommonExpenses []CommonExpense    `json:"commonExpenses"`
}
