package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mudassarbajwa49/eRoyal-sub000/internal/auth"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/config"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/db"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/models"
)

// ErrEmailTaken is returned when registering a user with an email already in use.
var ErrEmailTaken = errors.New("email already registered")

// ErrInvalidCredentials is returned by Authenticate on a bad email/password pair.
var ErrInvalidCredentials = errors.New("invalid email or password")

// IUserService defines the interface for user and resident operations.
type IUserService interface {
	Register(ctx context.Context, name, email, phone, password string, role models.Role, houseID string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	ListByRole(ctx context.Context, role models.Role) ([]models.User, error)
	ListResidents(ctx context.Context) ([]models.User, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, name, phone string) (*models.User, error)
	SetOverdue(ctx context.Context, userIDs []primitive.ObjectID, overdue bool) (int64, error)
	DeleteUser(ctx context.Context, userID primitive.ObjectID) error
}

const usersCollection = "users"

// userService implements IUserService.
type userService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewUserService creates a new UserService.
func NewUserService(database *mongo.Database, cfg *config.Config) IUserService {
	return &userService{db: database, cfg: cfg}
}

// Register creates a new user account. Residents must carry a house id.
func (s *userService) Register(ctx context.Context, name, email, phone, password string, role models.Role, houseID string) (*models.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	if role == models.RoleResident && houseID == "" {
		return nil, fmt.Errorf("resident registration requires a house id")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || name == "" {
		return nil, fmt.Errorf("name and email are required")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Base:         models.NewBase(),
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		Role:         role,
		HouseID:      houseID,
	}

	_, err = s.db.Collection(usersCollection).InsertOne(ctx, user)
	if err != nil {
		if db.IsDuplicateKeyError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to insert user %s: %w", email, err)
	}
	return user, nil
}

// Authenticate verifies an email/password pair and returns the matching user.
func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var user models.User
	err := s.db.Collection(usersCollection).
		FindOne(ctx, bson.M{"email": email, "deleted": false}).
		Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error finding user by email: %w", err)
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// FindByID finds a non-deleted user by id.
func (s *userService) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.db.Collection(usersCollection).
		FindOne(ctx, bson.M{"_id": userID, "deleted": false}).
		Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding user %s: %w", userID.Hex(), err)
	}
	return &user, nil
}

// ListByRole returns all non-deleted users with the given role.
func (s *userService) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.db.Collection(usersCollection).Find(ctx, bson.M{"role": role, "deleted": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query users by role %s: %w", role, err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

// ListResidents returns the billing population: all non-deleted residents.
func (s *userService) ListResidents(ctx context.Context) ([]models.User, error) {
	return s.ListByRole(ctx, models.RoleResident)
}

// UpdateProfile updates the mutable profile fields of a user.
func (s *userService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, name, phone string) (*models.User, error) {
	updates := bson.M{"updated_at": time.Now().UTC()}
	if name != "" {
		updates["name"] = name
	}
	if phone != "" {
		updates["phone"] = phone
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.User
	err := s.db.Collection(usersCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": userID, "deleted": false}, bson.M{"$set": updates}, opts).
		Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to update user %s: %w", userID.Hex(), err)
	}
	return &updated, nil
}

// SetOverdue flips the overdue flag for a set of users and returns how many
// documents changed.
func (s *userService) SetOverdue(ctx context.Context, userIDs []primitive.ObjectID, overdue bool) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	result, err := s.db.Collection(usersCollection).UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": userIDs}, "deleted": false},
		bson.M{"$set": bson.M{"overdue": overdue, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update overdue flags: %w", err)
	}
	return result.ModifiedCount, nil
}

// DeleteUser performs a soft delete.
func (s *userService) DeleteUser(ctx context.Context, userID primitive.ObjectID) error {
	result, err := s.db.Collection(usersCollection).UpdateOne(ctx,
		bson.M{"_id": userID, "deleted": false},
		bson.M{"$set": bson.M{"deleted": true, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("db error deleting user %s: %w", userID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
