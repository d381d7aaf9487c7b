package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mudassarbajwa49/eRoyal-sub000/internal/cache"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/config"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/models"
)

// ISettingsService exposes society-level settings stored in the database,
// with typed accessors falling back to static configuration defaults.
type ISettingsService interface {
	Get(ctx context.Context, key string) (interface{}, error)
	GetFloat64(ctx context.Context, key string, defaultValue float64) float64
	GetInt(ctx context.Context, key string, defaultValue int) int
	GetString(ctx context.Context, key string, defaultValue string) string
	Set(ctx context.Context, key string, value interface{}, isPublic bool) error
	GetAllPublic(ctx context.Context) (map[string]interface{}, error)
}

const settingsCollection = "settings"

// settingsService implements ISettingsService.
type settingsService struct {
	db  *mongo.Database
	cfg *config.Config
	qc  cache.IQueryCache
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(database *mongo.Database, cfg *config.Config, qc cache.IQueryCache) ISettingsService {
	return &settingsService{db: database, cfg: cfg, qc: qc}
}

func (s *settingsService) Get(ctx context.Context, key string) (interface{}, error) {
	cacheKey := cache.Key("settings", key)
	var cached models.Setting
	if err := s.qc.Get(ctx, cacheKey, &cached); err == nil {
		return cached.Value, nil
	}

	var setting models.Setting
	err := s.db.Collection(settingsCollection).FindOne(ctx, bson.M{"_id": key}).Decode(&setting)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	if err := s.qc.Set(ctx, cacheKey, setting); err != nil {
		log.Printf("WARN: failed to cache setting %s: %v", key, err)
	}
	return setting.Value, nil
}

// GetFloat64 reads a numeric setting, tolerating the integer types BSON may
// hand back, and falls back to the default on absence or type mismatch.
func (s *settingsService) GetFloat64(ctx context.Context, key string, defaultValue float64) float64 {
	val, err := s.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	switch v := val.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	default:
		log.Printf("WARN: setting %q is not numeric (%T), using default", key, val)
		return defaultValue
	}
}

func (s *settingsService) GetInt(ctx context.Context, key string, defaultValue int) int {
	val, err := s.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	switch v := val.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		log.Printf("WARN: setting %q is not an integer (%T), using default", key, val)
		return defaultValue
	}
}

func (s *settingsService) GetString(ctx context.Context, key string, defaultValue string) string {
	val, err := s.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	if str, ok := val.(string); ok {
		return str
	}
	return defaultValue
}

// Set upserts a setting and invalidates its cached copy.
func (s *settingsService) Set(ctx context.Context, key string, value interface{}, isPublic bool) error {
	opts := options.Update().SetUpsert(true)
	_, err := s.db.Collection(settingsCollection).UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": value, "is_public": isPublic, "updated_at": time.Now().UTC()}},
		opts,
	)
	if err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	if err := s.qc.Invalidate(ctx, cache.Key("settings", key), cache.Key("settings", "public")); err != nil {
		log.Printf("WARN: failed to invalidate setting cache for %s: %v", key, err)
	}
	return nil
}

// GetAllPublic returns every setting marked public, for unauthenticated
// client bootstrap.
func (s *settingsService) GetAllPublic(ctx context.Context) (map[string]interface{}, error) {
	cacheKey := cache.Key("settings", "public")
	var cached map[string]interface{}
	if err := s.qc.Get(ctx, cacheKey, &cached); err == nil {
		return cached, nil
	}

	cursor, err := s.db.Collection(settingsCollection).Find(ctx, bson.M{"is_public": true})
	if err != nil {
		return nil, fmt.Errorf("failed to query public settings: %w", err)
	}
	defer cursor.Close(ctx)

	var settings []models.Setting
	if err = cursor.All(ctx, &settings); err != nil {
		return nil, fmt.Errorf("failed to decode public settings: %w", err)
	}
	result := make(map[string]interface{}, len(settings))
	for _, st := range settings {
		result[st.Key] = st.Value
	}
	if err := s.qc.Set(ctx, cacheKey, result); err != nil {
		log.Printf("WARN: failed to cache public settings: %v", err)
	}
	return result, nil
}
