package models

// Role defines what a user may do in the society.
type Role string

const (
	RoleResident Role = "resident"
	RoleGuard    Role = "guard"
	RoleAdmin    Role = "admin"
)

// Valid reports whether the role is one of the recognized values.
func (r Role) Valid() bool {
	switch r {
	case RoleResident, RoleGuard, RoleAdmin:
		return true
	}
	return false
}

// User represents a society member: a resident, a security guard, or an
// administrator. Only residents carry a house id and take part in billing.
type User struct {
	Base         `bson:",inline"`
	Name         string `bson:"name" json:"name"`
	Email        string `bson:"email" json:"email"`
	Phone        string `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash string `bson:"password" json:"-"` // Store hash, not plaintext
	Role         Role   `bson:"role" json:"role"`
	HouseID      string `bson:"house_id,omitempty" json:"house_id,omitempty"`
	Overdue      bool   `bson:"overdue" json:"overdue"` // Has unpaid bills past their due date
}

// House is an addressable unit in the society (e.g. "B-104").
type House struct {
	Base     `bson:",inline"`
	Label    string `bson:"label" json:"label"` // Block + number, human readable
	Block    string `bson:"block,omitempty" json:"block,omitempty"`
	Occupied bool   `bson:"occupied" json:"occupied"`
}
