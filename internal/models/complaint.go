package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ComplaintStatus is the resolution state of a complaint ticket.
type ComplaintStatus string

const (
	ComplaintStatusPending    ComplaintStatus = "pending"
	ComplaintStatusInProgress ComplaintStatus = "in_progress"
	ComplaintStatusResolved   ComplaintStatus = "resolved"
)

// Valid reports whether the status is one of the recognized values.
func (s ComplaintStatus) Valid() bool {
	switch s {
	case ComplaintStatusPending, ComplaintStatusInProgress, ComplaintStatusResolved:
		return true
	}
	return false
}

// Complaint is a resident-submitted issue ticket. A resolved complaint may
// carry a charge; the charge is consumed exactly once, either by the next
// monthly generation run or immediately into an open draft bill.
//
// Invariant: AddedToBill == true implies BillID is set and that bill's
// breakdown contains a line item with this complaint's number and amount.
type Complaint struct {
	Base            `bson:",inline"`
	Number          int64               `bson:"number" json:"number"` // Sequential, human readable
	ResidentID      primitive.ObjectID  `bson:"resident_id" json:"resident_id"`
	ResidentName    string              `bson:"resident_name" json:"resident_name"`
	HouseID         string              `bson:"house_id" json:"house_id"`
	Title           string              `bson:"title" json:"title"`
	Description     string              `bson:"description" json:"description"`
	Category        string              `bson:"category" json:"category"`
	Status          ComplaintStatus     `bson:"status" json:"status"`
	ChargeAmount    float64             `bson:"charge_amount" json:"charge_amount"`
	AddedToBill     bool                `bson:"added_to_bill" json:"added_to_bill"`
	BillID          *primitive.ObjectID `bson:"bill_id,omitempty" json:"bill_id,omitempty"`
	ResolutionNotes string              `bson:"resolution_notes,omitempty" json:"resolution_notes,omitempty"`
	ResolvedBy      *primitive.ObjectID `bson:"resolved_by,omitempty" json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time          `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
}

// PendingBilling reports whether this complaint is a candidate input to the
// next generation run for its resident.
func (c *Complaint) PendingBilling() bool {
	return c.ChargeAmount > 0 && !c.AddedToBill
}
