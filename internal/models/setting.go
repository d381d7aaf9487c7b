package models

// Setting is a society-level configuration override stored in the database,
// editable by administrators at runtime. Values fall back to the static
// environment configuration when no override exists.
type Setting struct {
	Key      string      `bson:"_id" json:"key"`
	Value    interface{} `bson:"value" json:"value"`
	IsPublic bool        `bson:"is_public" json:"is_public"` // Readable without admin role
}

// Well-known setting keys.
const (
	SettingBaseCharges = "BASE_CHARGES"
	SettingLateFeeRate = "LATE_FEE_RATE"
	SettingBillDueDay  = "BILL_DUE_DAY"
	SettingSocietyName = "SOCIETY_NAME"
)
