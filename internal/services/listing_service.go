package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mudassarbajwa49/eRoyal-sub000/internal/models"
)

// IListingService defines marketplace operations for residents.
type IListingService interface {
	CreateListing(ctx context.Context, seller *models.User, title, description string, price float64) (*models.Listing, error)
	FindListingByID(ctx context.Context, listingID primitive.ObjectID) (*models.Listing, error)
	ListActive(ctx context.Context, limit int) ([]models.Listing, error)
	ListBySeller(ctx context.Context, sellerID primitive.ObjectID) ([]models.Listing, error)
	UpdateListing(ctx context.Context, listingID, sellerID primitive.ObjectID, updates map[string]interface{}) (*models.Listing, error)
	AddImageToListing(ctx context.Context, listingID, sellerID primitive.ObjectID, imageKey string) error
	MarkSold(ctx context.Context, listingID, sellerID primitive.ObjectID) error
	DeleteListing(ctx context.Context, listingID, sellerID primitive.ObjectID) error
}

const listingsCollection = "listings"

// listingService implements IListingService.
type listingService struct {
	db *mongo.Database
}

// NewListingService creates a new ListingService.
func NewListingService(database *mongo.Database) IListingService {
	return &listingService{db: database}
}

// CreateListing posts a new marketplace ad for a resident.
func (s *listingService) CreateListing(ctx context.Context, seller *models.User, title, description string, price float64) (*models.Listing, error) {
	if title == "" {
		return nil, fmt.Errorf("listing title is required")
	}
	if price < 0 {
		return nil, fmt.Errorf("listing price must not be negative")
	}

	listing := &models.Listing{
		Base:        models.NewBase(),
		SellerID:    seller.ID,
		SellerName:  seller.Name,
		HouseID:     seller.HouseID,
		Title:       title,
		Description: description,
		Price:       price,
		Images:      []string{},
	}
	if _, err := s.db.Collection(listingsCollection).InsertOne(ctx, listing); err != nil {
		return nil, fmt.Errorf("failed to insert listing for seller %s: %w", seller.ID.Hex(), err)
	}
	return listing, nil
}

// FindListingByID finds a non-deleted listing by id.
func (s *listingService) FindListingByID(ctx context.Context, listingID primitive.ObjectID) (*models.Listing, error) {
	var listing models.Listing
	err := s.db.Collection(listingsCollection).
		FindOne(ctx, bson.M{"_id": listingID, "deleted": false}).
		Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding listing %s: %w", listingID.Hex(), err)
	}
	return &listing, nil
}

// ListActive returns unsold listings, newest first.
func (s *listingService) ListActive(ctx context.Context, limit int) ([]models.Listing, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit))
	cursor, err := s.db.Collection(listingsCollection).Find(ctx,
		bson.M{"deleted": false, "sold": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer cursor.Close(ctx)

	listings := []models.Listing{}
	if err = cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}
	return listings, nil
}

// ListBySeller returns all of a seller's listings, including sold ones.
func (s *listingService) ListBySeller(ctx context.Context, sellerID primitive.ObjectID) ([]models.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(listingsCollection).Find(ctx,
		bson.M{"seller_id": sellerID, "deleted": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings for seller %s: %w", sellerID.Hex(), err)
	}
	defer cursor.Close(ctx)

	listings := []models.Listing{}
	if err = cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}
	return listings, nil
}

// UpdateListing updates mutable fields of a listing owned by the seller.
func (s *listingService) UpdateListing(ctx context.Context, listingID, sellerID primitive.ObjectID, updates map[string]interface{}) (*models.Listing, error) {
	allowed := bson.M{}
	for key, value := range updates {
		switch key {
		case "title", "description", "price":
			allowed[key] = value
		default:
			return nil, fmt.Errorf("field '%s' cannot be updated via UpdateListing", key)
		}
	}
	if len(allowed) == 0 {
		return nil, fmt.Errorf("no valid fields provided for update")
	}
	allowed["updated_at"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Listing
	err := s.db.Collection(listingsCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": listingID, "seller_id": sellerID, "deleted": false, "sold": false},
		bson.M{"$set": allowed}, opts,
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("listing not found, not owned by seller, or already sold")
		}
		return nil, fmt.Errorf("failed to update listing %s: %w", listingID.Hex(), err)
	}
	return &updated, nil
}

// AddImageToListing appends an uploaded image key to the listing.
func (s *listingService) AddImageToListing(ctx context.Context, listingID, sellerID primitive.ObjectID, imageKey string) error {
	result, err := s.db.Collection(listingsCollection).UpdateOne(ctx,
		bson.M{"_id": listingID, "seller_id": sellerID, "deleted": false},
		bson.M{
			"$addToSet": bson.M{"images": imageKey},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("db error adding image %s to listing %s: %w", imageKey, listingID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// MarkSold closes a listing.
func (s *listingService) MarkSold(ctx context.Context, listingID, sellerID primitive.ObjectID) error {
	result, err := s.db.Collection(listingsCollection).UpdateOne(ctx,
		bson.M{"_id": listingID, "seller_id": sellerID, "deleted": false, "sold": false},
		bson.M{"$set": bson.M{"sold": true, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("db error marking listing %s sold: %w", listingID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DeleteListing performs a soft delete.
func (s *listingService) DeleteListing(ctx context.Context, listingID, sellerID primitive.ObjectID) error {
	result, err := s.db.Collection(listingsCollection).UpdateOne(ctx,
		bson.M{"_id": listingID, "seller_id": sellerID, "deleted": false},
		bson.M{"$set": bson.M{"deleted": true, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("db error deleting listing %s: %w", listingID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
