package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Listing is a resident-to-resident marketplace ad.
type Listing struct {
	Base        `bson:",inline"`
	SellerID    primitive.ObjectID `bson:"seller_id" json:"seller_id"`
	SellerName  string             `bson:"seller_name" json:"seller_name"`
	HouseID     string             `bson:"house_id,omitempty" json:"house_id,omitempty"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Price       float64            `bson:"price" json:"price"`
	Images      []string           `bson:"images" json:"images"` // S3 object keys
	Sold        bool               `bson:"sold" json:"sold"`
}

// AnnouncementAudience restricts who an announcement is shown to.
type AnnouncementAudience string

const (
	AudienceAll       AnnouncementAudience = "all"
	AudienceResidents AnnouncementAudience = "residents"
	AudienceGuards    AnnouncementAudience = "guards"
)

// Announcement is an admin-published notice.
type Announcement struct {
	Base       `bson:",inline"`
	Title      string               `bson:"title" json:"title"`
	Body       string               `bson:"body" json:"body"`
	Audience   AnnouncementAudience `bson:"audience" json:"audience"`
	Pinned     bool                 `bson:"pinned" json:"pinned"`
	AuthorID   primitive.ObjectID   `bson:"author_id" json:"author_id"`
	AuthorName string               `bson:"author_name" json:"author_name"`
}
