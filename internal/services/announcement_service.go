package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mudassarbajwa49/eRoyal-sub000/internal/cache"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/models"
)

// IAnnouncementService publishes and lists admin notices.
type IAnnouncementService interface {
	Publish(ctx context.Context, author *models.User, title, body string, audience models.AnnouncementAudience, pinned bool) (*models.Announcement, error)
	ListForRole(ctx context.Context, role models.Role) ([]models.Announcement, error)
	Unpublish(ctx context.Context, announcementID primitive.ObjectID) error
}

const announcementsCollection = "announcements"

// announcementService implements IAnnouncementService.
type announcementService struct {
	db *mongo.Database
	qc cache.IQueryCache
}

// NewAnnouncementService creates a new AnnouncementService.
func NewAnnouncementService(database *mongo.Database, qc cache.IQueryCache) IAnnouncementService {
	return &announcementService{db: database, qc: qc}
}

// Publish creates a new announcement.
func (s *announcementService) Publish(ctx context.Context, author *models.User, title, body string, audience models.AnnouncementAudience, pinned bool) (*models.Announcement, error) {
	if title == "" {
		return nil, fmt.Errorf("announcement title is required")
	}
	switch audience {
	case models.AudienceAll, models.AudienceResidents, models.AudienceGuards:
	default:
		return nil, fmt.Errorf("invalid audience %q", audience)
	}

	a := &models.Announcement{
		Base:       models.NewBase(),
		Title:      title,
		Body:       body,
		Audience:   audience,
		Pinned:     pinned,
		AuthorID:   author.ID,
		AuthorName: author.Name,
	}
	if _, err := s.db.Collection(announcementsCollection).InsertOne(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to insert announcement: %w", err)
	}
	if err := s.qc.Invalidate(ctx, "announcements:*"); err != nil {
		log.Printf("WARN: failed to invalidate announcement caches: %v", err)
	}
	return a, nil
}

// ListForRole returns announcements visible to the given role, pinned first
// then newest, served from the query cache when fresh.
func (s *announcementService) ListForRole(ctx context.Context, role models.Role) ([]models.Announcement, error) {
	audiences := bson.A{models.AudienceAll}
	switch role {
	case models.RoleResident:
		audiences = append(audiences, models.AudienceResidents)
	case models.RoleGuard:
		audiences = append(audiences, models.AudienceGuards)
	case models.RoleAdmin:
		audiences = bson.A{models.AudienceAll, models.AudienceResidents, models.AudienceGuards}
	}

	cacheKey := cache.Key("announcements", string(role))
	var cached []models.Announcement
	if err := s.qc.Get(ctx, cacheKey, &cached); err == nil {
		return cached, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "pinned", Value: -1}, {Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(announcementsCollection).Find(ctx,
		bson.M{"deleted": false, "audience": bson.M{"$in": audiences}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query announcements: %w", err)
	}
	defer cursor.Close(ctx)

	announcements := []models.Announcement{}
	if err = cursor.All(ctx, &announcements); err != nil {
		return nil, fmt.Errorf("failed to decode announcements: %w", err)
	}
	if err := s.qc.Set(ctx, cacheKey, announcements); err != nil {
		log.Printf("WARN: failed to cache announcements: %v", err)
	}
	return announcements, nil
}

// Unpublish soft-deletes an announcement.
func (s *announcementService) Unpublish(ctx context.Context, announcementID primitive.ObjectID) error {
	result, err := s.db.Collection(announcementsCollection).UpdateOne(ctx,
		bson.M{"_id": announcementID, "deleted": false},
		bson.M{"$set": bson.M{"deleted": true, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("db error deleting announcement %s: %w", announcementID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	if err := s.qc.Invalidate(ctx, "announcements:*"); err != nil {
		log.Printf("WARN: failed to invalidate announcement caches: %v", err)
	}
	return nil
}
