package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mudassarbajwa49/eRoyal-sub000/internal/models"
)

// IVehicleService records and queries gate movements.
type IVehicleService interface {
	LogMovement(ctx context.Context, plate string, direction models.VehicleDirection, visitorName, houseID string, guardID primitive.ObjectID) (*models.VehicleLog, error)
	ListLogs(ctx context.Context, plate string, since time.Time, limit int) ([]models.VehicleLog, error)
}

const vehicleLogsCollection = "vehicle_logs"

// vehicleService implements IVehicleService.
type vehicleService struct {
	db *mongo.Database
}

// NewVehicleService creates a new VehicleService.
func NewVehicleService(database *mongo.Database) IVehicleService {
	return &vehicleService{db: database}
}

// LogMovement records a vehicle passing the gate.
func (s *vehicleService) LogMovement(ctx context.Context, plate string, direction models.VehicleDirection, visitorName, houseID string, guardID primitive.ObjectID) (*models.VehicleLog, error) {
	plate = strings.ToUpper(strings.TrimSpace(plate))
	if plate == "" {
		return nil, fmt.Errorf("vehicle plate is required")
	}
	if direction != models.VehicleIn && direction != models.VehicleOut {
		return nil, fmt.Errorf("invalid direction %q", direction)
	}

	entry := &models.VehicleLog{
		Base:        models.NewBase(),
		Plate:       plate,
		Direction:   direction,
		VisitorName: visitorName,
		HouseID:     houseID,
		GuardID:     guardID,
		LoggedAt:    time.Now().UTC(),
	}
	if _, err := s.db.Collection(vehicleLogsCollection).InsertOne(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to insert vehicle log for %s: %w", plate, err)
	}
	return entry, nil
}

// ListLogs returns gate movements, newest first, optionally filtered by
// plate and a lower time bound.
func (s *vehicleService) ListLogs(ctx context.Context, plate string, since time.Time, limit int) ([]models.VehicleLog, error) {
	filter := bson.M{"deleted": false}
	if plate != "" {
		filter["plate"] = strings.ToUpper(strings.TrimSpace(plate))
	}
	if !since.IsZero() {
		filter["logged_at"] = bson.M{"$gte": since}
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	opts := options.Find().SetSort(bson.D{{Key: "logged_at", Value: -1}}).SetLimit(int64(limit))
	cursor, err := s.db.Collection(vehicleLogsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicle logs: %w", err)
	}
	defer cursor.Close(ctx)

	logs := []models.VehicleLog{}
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode vehicle logs: %w", err)
	}
	return logs, nil
}
