package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BillStatus is the lifecycle state of a bill.
//
//	draft --(send)--> unpaid --(proof uploaded)--> pending --(verify)--> paid
//	pending --(reject)--> unpaid
//
// paid is terminal apart from the separate archival flag.
type BillStatus string

const (
	BillStatusDraft   BillStatus = "draft"
	BillStatusUnpaid  BillStatus = "unpaid"
	BillStatusPending BillStatus = "pending"
	BillStatusPaid    BillStatus = "paid"
)

// ComplaintCharge is a complaint-derived line item embedded in a bill's
// breakdown. Created once when the charge is consumed, immutable thereafter.
type ComplaintCharge struct {
	ComplaintID     primitive.ObjectID `bson:"complaint_id" json:"complaint_id"`
	ComplaintNumber int64              `bson:"complaint_number" json:"complaint_number"`
	Description     string             `bson:"description" json:"description"`
	Amount          float64            `bson:"amount" json:"amount"`
}

// BillBreakdown itemizes the components that sum to a bill's total.
// PreviousDues already includes late-fee surcharges on carried-forward bills.
type BillBreakdown struct {
	BaseCharges      float64           `bson:"base_charges" json:"base_charges"`
	ComplaintCharges []ComplaintCharge `bson:"complaint_charges" json:"complaint_charges"`
	PreviousDues     float64           `bson:"previous_dues" json:"previous_dues"`
}

// Total recomputes the amount the breakdown sums to. Every mutation of a
// breakdown must write this back to the bill's Amount.
func (b BillBreakdown) Total() float64 {
	total := b.BaseCharges + b.PreviousDues
	for _, c := range b.ComplaintCharges {
		total += c.Amount
	}
	return total
}

// Bill is one resident's obligation for one calendar month. At most one
// non-deleted bill may exist per (resident, month); the bills collection
// carries a unique index enforcing it.
type Bill struct {
	Base            `bson:",inline"`
	ResidentID      primitive.ObjectID  `bson:"resident_id" json:"resident_id"`
	ResidentName    string              `bson:"resident_name" json:"resident_name"` // Denormalized for display
	HouseID         string              `bson:"house_id" json:"house_id"`
	Month           string              `bson:"month" json:"month"` // "YYYY-MM"
	Breakdown       BillBreakdown       `bson:"breakdown" json:"breakdown"`
	Amount          float64             `bson:"amount" json:"amount"` // == Breakdown.Total()
	DueDate         time.Time           `bson:"due_date" json:"due_date"`
	Status          BillStatus          `bson:"status" json:"status"`
	IsArchived      bool                `bson:"is_archived" json:"is_archived"` // Settable only once paid
	PaymentProofKey string              `bson:"payment_proof_key,omitempty" json:"payment_proof_key,omitempty"` // S3 object key
	PaymentRef      string              `bson:"payment_ref,omitempty" json:"payment_ref,omitempty"`
	SentBy          *primitive.ObjectID `bson:"sent_by,omitempty" json:"sent_by,omitempty"`
	SentAt          *time.Time          `bson:"sent_at,omitempty" json:"sent_at,omitempty"`
	VerifiedBy      *primitive.ObjectID `bson:"verified_by,omitempty" json:"verified_by,omitempty"`
	VerifiedAt      *time.Time          `bson:"verified_at,omitempty" json:"verified_at,omitempty"`
}

// GenerationResult reports what a monthly generation run did.
type GenerationResult struct {
	Created        int `json:"created"`
	Skipped        int `json:"skipped"`         // Residents who already had a bill for the month
	ChargesApplied int `json:"charges_applied"` // Complaint charges folded into new bills
}
