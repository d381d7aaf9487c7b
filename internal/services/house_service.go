package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mudassarbajwa49/eRoyal-sub000/internal/db"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/models"
)

// IHouseService maintains the registry of addressable units residents'
// house ids point into.
type IHouseService interface {
	AddHouse(ctx context.Context, label, block string) (*models.House, error)
	ListHouses(ctx context.Context) ([]models.House, error)
	SetOccupied(ctx context.Context, label string, occupied bool) error
}

const housesCollection = "houses"

// houseService implements IHouseService.
type houseService struct {
	db *mongo.Database
}

// NewHouseService creates a new HouseService.
func NewHouseService(database *mongo.Database) IHouseService {
	return &houseService{db: database}
}

// AddHouse registers a new unit.
func (s *houseService) AddHouse(ctx context.Context, label, block string) (*models.House, error) {
	label = strings.ToUpper(strings.TrimSpace(label))
	if label == "" {
		return nil, fmt.Errorf("house label is required")
	}

	house := &models.House{
		Base:  models.NewBase(),
		Label: label,
		Block: block,
	}
	err := db.Try(func() error {
		_, insertErr := s.db.Collection(housesCollection).InsertOne(ctx, house)
		return insertErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert house %s: %w", label, err)
	}
	return house, nil
}

// ListHouses returns all registered units ordered by label.
func (s *houseService) ListHouses(ctx context.Context) ([]models.House, error) {
	opts := options.Find().SetSort(bson.D{{Key: "label", Value: 1}})
	cursor, err := s.db.Collection(housesCollection).Find(ctx, bson.M{"deleted": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query houses: %w", err)
	}
	defer cursor.Close(ctx)

	houses := []models.House{}
	if err = cursor.All(ctx, &houses); err != nil {
		return nil, fmt.Errorf("failed to decode houses: %w", err)
	}
	return houses, nil
}

// SetOccupied flips a unit's occupancy flag.
func (s *houseService) SetOccupied(ctx context.Context, label string, occupied bool) error {
	result, err := s.db.Collection(housesCollection).UpdateOne(ctx,
		bson.M{"label": strings.ToUpper(strings.TrimSpace(label)), "deleted": false},
		bson.M{"$set": bson.M{"occupied": occupied, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("db error updating house %s: %w", label, err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
