package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mudassarbajwa49/eRoyal-sub000/internal/cache"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/config"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/models"
)

var (
	// ErrChargeAlreadyBilled guards against consuming a complaint charge twice.
	ErrChargeAlreadyBilled = errors.New("complaint charge has already been added to a bill")
	// ErrAlreadyResolved is returned when resolving a complaint twice.
	ErrAlreadyResolved = errors.New("complaint is already resolved")
)

// IComplaintService defines complaint ticket operations, including the
// resolve-with-charge path that feeds billing.
type IComplaintService interface {
	CreateComplaint(ctx context.Context, resident *models.User, title, description, category string) (*models.Complaint, error)
	FindByID(ctx context.Context, complaintID primitive.ObjectID) (*models.Complaint, error)
	ListByResident(ctx context.Context, residentID primitive.ObjectID) ([]models.Complaint, error)
	ListAll(ctx context.Context, status models.ComplaintStatus) ([]models.Complaint, error)
	UpdateStatus(ctx context.Context, complaintID primitive.ObjectID, status models.ComplaintStatus) error
	ResolveWithCharge(ctx context.Context, complaintID primitive.ObjectID, notes string, chargeAmount float64, actorID primitive.ObjectID) error
}

const countersCollection = "counters"

// complaintService implements IComplaintService.
type complaintService struct {
	db  *mongo.Database
	cfg *config.Config
	qc  cache.IQueryCache
}

// NewComplaintService creates a new ComplaintService.
func NewComplaintService(database *mongo.Database, cfg *config.Config, qc cache.IQueryCache) IComplaintService {
	return &complaintService{db: database, cfg: cfg, qc: qc}
}

// nextComplaintNumber atomically increments and returns the sequential
// complaint counter.
func (s *complaintService) nextComplaintNumber(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(countersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": "complaints"},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate complaint number: %w", err)
	}
	return counter.Seq, nil
}

// CreateComplaint files a new ticket for a resident.
func (s *complaintService) CreateComplaint(ctx context.Context, resident *models.User, title, description, category string) (*models.Complaint, error) {
	if title == "" {
		return nil, fmt.Errorf("complaint title is required")
	}
	number, err := s.nextComplaintNumber(ctx)
	if err != nil {
		return nil, err
	}

	complaint := &models.Complaint{
		Base:         models.NewBase(),
		Number:       number,
		ResidentID:   resident.ID,
		ResidentName: resident.Name,
		HouseID:      resident.HouseID,
		Title:        title,
		Description:  description,
		Category:     category,
		Status:       models.ComplaintStatusPending,
	}
	if _, err := s.db.Collection(complaintsCollection).InsertOne(ctx, complaint); err != nil {
		return nil, fmt.Errorf("failed to insert complaint #%d: %w", number, err)
	}
	s.invalidateComplaintCaches(ctx)
	return complaint, nil
}

// FindByID finds a non-deleted complaint by id.
func (s *complaintService) FindByID(ctx context.Context, complaintID primitive.ObjectID) (*models.Complaint, error) {
	var complaint models.Complaint
	err := s.db.Collection(complaintsCollection).
		FindOne(ctx, bson.M{"_id": complaintID, "deleted": false}).
		Decode(&complaint)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding complaint %s: %w", complaintID.Hex(), err)
	}
	return &complaint, nil
}

// ListByResident returns a resident's complaints, newest first, cached.
func (s *complaintService) ListByResident(ctx context.Context, residentID primitive.ObjectID) ([]models.Complaint, error) {
	cacheKey := cache.Key("complaints", "resident", residentID.Hex())
	var cached []models.Complaint
	if err := s.qc.Get(ctx, cacheKey, &cached); err == nil {
		return cached, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "number", Value: -1}})
	cursor, err := s.db.Collection(complaintsCollection).Find(ctx,
		bson.M{"resident_id": residentID, "deleted": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query complaints for resident %s: %w", residentID.Hex(), err)
	}
	defer cursor.Close(ctx)

	complaints := []models.Complaint{}
	if err = cursor.All(ctx, &complaints); err != nil {
		return nil, fmt.Errorf("failed to decode complaints: %w", err)
	}
	if err := s.qc.Set(ctx, cacheKey, complaints); err != nil {
		log.Printf("WARN: failed to cache resident complaints: %v", err)
	}
	return complaints, nil
}

// ListAll returns all complaints, optionally filtered by status, cached.
func (s *complaintService) ListAll(ctx context.Context, status models.ComplaintStatus) ([]models.Complaint, error) {
	filter := bson.M{"deleted": false}
	cacheKey := cache.Key("complaints", "all")
	if status != "" {
		if !status.Valid() {
			return nil, fmt.Errorf("invalid complaint status %q", status)
		}
		filter["status"] = status
		cacheKey = cache.Key("complaints", "all", string(status))
	}

	var cached []models.Complaint
	if err := s.qc.Get(ctx, cacheKey, &cached); err == nil {
		return cached, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "number", Value: -1}})
	cursor, err := s.db.Collection(complaintsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query complaints: %w", err)
	}
	defer cursor.Close(ctx)

	complaints := []models.Complaint{}
	if err = cursor.All(ctx, &complaints); err != nil {
		return nil, fmt.Errorf("failed to decode complaints: %w", err)
	}
	if err := s.qc.Set(ctx, cacheKey, complaints); err != nil {
		log.Printf("WARN: failed to cache complaints: %v", err)
	}
	return complaints, nil
}

// UpdateStatus moves a complaint between workflow states. Resolution with a
// charge must go through ResolveWithCharge instead.
func (s *complaintService) UpdateStatus(ctx context.Context, complaintID primitive.ObjectID, status models.ComplaintStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid complaint status %q", status)
	}
	result, err := s.db.Collection(complaintsCollection).UpdateOne(ctx,
		bson.M{"_id": complaintID, "deleted": false},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("db error updating complaint %s: %w", complaintID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	s.invalidateComplaintCaches(ctx)
	return nil
}

// ResolveWithCharge resolves a complaint, optionally attaching a repair
// charge. A zero charge resolves with nothing to bill. With a charge, if the
// resident has an open draft bill for the current month the charge is folded
// into it immediately; otherwise the complaint stays a pending-billing
// candidate for the next generation run.
func (s *complaintService) ResolveWithCharge(ctx context.Context, complaintID primitive.ObjectID, notes string, chargeAmount float64, actorID primitive.ObjectID) error {
	if chargeAmount < 0 {
		return fmt.Errorf("charge amount must not be negative")
	}

	complaint, err := s.FindByID(ctx, complaintID)
	if err != nil {
		return err
	}
	if complaint.AddedToBill {
		return ErrChargeAlreadyBilled
	}
	if complaint.Status == models.ComplaintStatusResolved {
		return ErrAlreadyResolved
	}

	now := time.Now().UTC()
	set := bson.M{
		"status":           models.ComplaintStatusResolved,
		"resolution_notes": notes,
		"charge_amount":    chargeAmount,
		"resolved_by":      actorID,
		"resolved_at":      now,
		"updated_at":       now,
	}

	if chargeAmount == 0 {
		// Nothing to bill, so the charge is trivially consumed.
		set["added_to_bill"] = true
	} else {
		draftBill, err := s.currentMonthDraftBill(ctx, complaint.ResidentID)
		if err != nil {
			return err
		}
		if draftBill != nil {
			if err := s.appendChargeToBill(ctx, draftBill, complaint, chargeAmount, now); err != nil {
				return err
			}
			set["added_to_bill"] = true
			set["bill_id"] = draftBill.ID
		} else {
			// Defer to the next generation run for this resident.
			set["added_to_bill"] = false
		}
	}

	result, err := s.db.Collection(complaintsCollection).UpdateOne(ctx,
		bson.M{"_id": complaintID, "deleted": false, "added_to_bill": false},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("db error resolving complaint %s: %w", complaintID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return ErrChargeAlreadyBilled
	}
	s.invalidateComplaintCaches(ctx)
	return nil
}

// currentMonthDraftBill returns the resident's draft bill for the current
// calendar month, or nil if there is none (no bill yet, or already sent).
func (s *complaintService) currentMonthDraftBill(ctx context.Context, residentID primitive.ObjectID) (*models.Bill, error) {
	month := models.MonthOf(time.Now()).String()
	var bill models.Bill
	err := s.db.Collection(billsCollection).FindOne(ctx, bson.M{
		"resident_id": residentID,
		"month":       month,
		"status":      models.BillStatusDraft,
		"deleted":     false,
	}).Decode(&bill)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("error finding draft bill for resident %s: %w", residentID.Hex(), err)
	}
	return &bill, nil
}

// appendChargeToBill adds a complaint line item to an open draft bill and
// recomputes its total.
func (s *complaintService) appendChargeToBill(ctx context.Context, bill *models.Bill, complaint *models.Complaint, chargeAmount float64, now time.Time) error {
	item := models.ComplaintCharge{
		ComplaintID:     complaint.ID,
		ComplaintNumber: complaint.Number,
		Description:     complaint.Title,
		Amount:          chargeAmount,
	}
	breakdown := bill.Breakdown
	breakdown.ComplaintCharges = append(breakdown.ComplaintCharges, item)

	result, err := s.db.Collection(billsCollection).UpdateOne(ctx,
		bson.M{"_id": bill.ID, "status": models.BillStatusDraft, "deleted": false},
		bson.M{"$set": bson.M{
			"breakdown":  breakdown,
			"amount":     breakdown.Total(),
			"updated_at": now,
		}},
	)
	if err != nil {
		return fmt.Errorf("db error appending charge to bill %s: %w", bill.ID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		// The bill was sent between lookup and update; fall back to deferral
		// is not safe here because the caller already decided to link. Abort.
		return fmt.Errorf("draft bill %s is no longer open", bill.ID.Hex())
	}
	if err := s.qc.Invalidate(ctx, "bills:*"); err != nil {
		log.Printf("WARN: failed to invalidate bill caches: %v", err)
	}
	return nil
}

func (s *complaintService) invalidateComplaintCaches(ctx context.Context) {
	if err := s.qc.Invalidate(ctx, "complaints:*"); err != nil {
		log.Printf("WARN: failed to invalidate complaint caches: %v", err)
	}
}
