package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mudassarbajwa49/eRoyal-sub000/internal/cache"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/config"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/db"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/models"
)

var (
	// ErrBillExists is returned when a resident already has a bill for the month.
	ErrBillExists = errors.New("bill already exists for this resident and month")
	// ErrInvalidTransition is returned when a status change is not allowed
	// from the bill's current state.
	ErrInvalidTransition = errors.New("bill status transition not allowed")
)

// IBillService defines the billing operations: monthly generation, the
// single-bill admin path, the payment lifecycle, and cached reads.
type IBillService interface {
	GenerateMonthlyBills(ctx context.Context, month string, baseCharges float64, actorID primitive.ObjectID) (*models.GenerationResult, error)
	GenerateSingleBill(ctx context.Context, residentID primitive.ObjectID, month string, baseCharges float64, actorID primitive.ObjectID) (*models.Bill, error)
	SendBill(ctx context.Context, billID, actorID primitive.ObjectID) error
	SubmitPaymentProof(ctx context.Context, billID, residentID primitive.ObjectID, proofKey string) (string, error)
	VerifyPayment(ctx context.Context, billID, actorID primitive.ObjectID) error
	RejectPayment(ctx context.Context, billID, actorID primitive.ObjectID) error
	ArchiveBill(ctx context.Context, billID primitive.ObjectID) error
	FindBillByID(ctx context.Context, billID primitive.ObjectID) (*models.Bill, error)
	GetBillsByResident(ctx context.Context, residentID primitive.ObjectID) ([]models.Bill, error)
	GetAllBills(ctx context.Context, month string) ([]models.Bill, error)
	MarkOverdueResidents(ctx context.Context) (int64, error)
}

const (
	billsCollection      = "bills"
	complaintsCollection = "complaints"
)

// billService implements IBillService.
type billService struct {
	db          *mongo.Database
	cfg         *config.Config
	settings    ISettingsService
	userService IUserService
	qc          cache.IQueryCache
}

// NewBillService creates a new BillService.
func NewBillService(database *mongo.Database, cfg *config.Config, settings ISettingsService, userService IUserService, qc cache.IQueryCache) IBillService {
	return &billService{
		db:          database,
		cfg:         cfg,
		settings:    settings,
		userService: userService,
		qc:          qc,
	}
}

// previousDues sums the amounts of prior bills that are still owed, adding
// the late-fee surcharge for each contributing bill. The raw debt and the
// accumulated late fees are folded into one figure in the output breakdown.
func previousDues(priorBills []models.Bill, lateFeeRate float64) float64 {
	dues := 0.0
	lateFees := 0.0
	for _, b := range priorBills {
		dues += b.Amount
		lateFees += b.Amount * lateFeeRate
	}
	return dues + lateFees
}

// complaintLineItems converts unbilled complaints into breakdown line items.
func complaintLineItems(complaints []models.Complaint) []models.ComplaintCharge {
	items := make([]models.ComplaintCharge, 0, len(complaints))
	for _, c := range complaints {
		items = append(items, models.ComplaintCharge{
			ComplaintID:     c.ID,
			ComplaintNumber: c.Number,
			Description:     c.Title,
			Amount:          c.ChargeAmount,
		})
	}
	return items
}

// buildBill assembles a bill document for one resident. The caller decides
// the status and whether sent audit fields are stamped.
func buildBill(resident models.User, month models.Month, baseCharges, dues float64, charges []models.ComplaintCharge, dueDay int, status models.BillStatus) models.Bill {
	breakdown := models.BillBreakdown{
		BaseCharges:      baseCharges,
		ComplaintCharges: charges,
		PreviousDues:     dues,
	}
	return models.Bill{
		Base:         models.NewBase(),
		ResidentID:   resident.ID,
		ResidentName: resident.Name,
		HouseID:      resident.HouseID,
		Month:        month.String(),
		Breakdown:    breakdown,
		Amount:       breakdown.Total(),
		DueDate:      month.DueDate(dueDay),
		Status:       status,
	}
}

// billExists reports whether the resident already has a non-deleted bill for
// the month. This pre-check only feeds the skip counter; the unique index on
// (resident_id, month) is what actually prevents duplicates under races.
func (s *billService) billExists(ctx context.Context, residentID primitive.ObjectID, month string) (bool, error) {
	count, err := s.db.Collection(billsCollection).CountDocuments(ctx,
		bson.M{"resident_id": residentID, "month": month, "deleted": false})
	if err != nil {
		return false, fmt.Errorf("failed to check existing bill for resident %s: %w", residentID.Hex(), err)
	}
	return count > 0, nil
}

// unpaidPriorBills returns the resident's bills for earlier months that are
// not yet paid (unpaid or pending verification).
func (s *billService) unpaidPriorBills(ctx context.Context, residentID primitive.ObjectID, month string) ([]models.Bill, error) {
	filter := bson.M{
		"resident_id": residentID,
		"deleted":     false,
		"month":       bson.M{"$lt": month},
		"status":      bson.M{"$in": bson.A{models.BillStatusUnpaid, models.BillStatusPending}},
	}
	cursor, err := s.db.Collection(billsCollection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query prior bills for resident %s: %w", residentID.Hex(), err)
	}
	defer cursor.Close(ctx)

	var bills []models.Bill
	if err = cursor.All(ctx, &bills); err != nil {
		return nil, fmt.Errorf("failed to decode prior bills: %w", err)
	}
	return bills, nil
}

// unbilledComplaints returns the resident's resolved complaints carrying a
// charge not yet consumed by any bill.
func (s *billService) unbilledComplaints(ctx context.Context, residentID primitive.ObjectID) ([]models.Complaint, error) {
	filter := bson.M{
		"resident_id":   residentID,
		"deleted":       false,
		"added_to_bill": false,
		"charge_amount": bson.M{"$gt": 0},
	}
	cursor, err := s.db.Collection(complaintsCollection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query unbilled complaints for resident %s: %w", residentID.Hex(), err)
	}
	defer cursor.Close(ctx)

	var complaints []models.Complaint
	if err = cursor.All(ctx, &complaints); err != nil {
		return nil, fmt.Errorf("failed to decode unbilled complaints: %w", err)
	}
	return complaints, nil
}

// stagedBill pairs a new bill with the complaint ids it consumes.
type stagedBill struct {
	bill         models.Bill
	complaintIDs []primitive.ObjectID
}

// GenerateMonthlyBills produces one bill per resident for the target month,
// folding in carried-forward dues (with late fees) and unbilled complaint
// charges. All bill inserts and complaint flag flips commit in a single
// multi-document transaction: either the whole run lands or none of it does.
func (s *billService) GenerateMonthlyBills(ctx context.Context, month string, baseCharges float64, actorID primitive.ObjectID) (*models.GenerationResult, error) {
	m, err := models.ParseMonth(month)
	if err != nil {
		return nil, err
	}
	if baseCharges < 0 {
		return nil, fmt.Errorf("base charges must not be negative")
	}
	if baseCharges == 0 {
		baseCharges = s.settings.GetFloat64(ctx, models.SettingBaseCharges, s.cfg.BaseCharges)
	}
	lateFeeRate := s.settings.GetFloat64(ctx, models.SettingLateFeeRate, s.cfg.LateFeeRate)
	dueDay := s.settings.GetInt(ctx, models.SettingBillDueDay, s.cfg.BillDueDay)

	residents, err := s.userService.ListResidents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load billing population: %w", err)
	}

	result := &models.GenerationResult{}
	now := time.Now().UTC()

	var staged []stagedBill
	for _, resident := range residents {
		exists, err := s.billExists(ctx, resident.ID, m.String())
		if err != nil {
			return nil, err
		}
		if exists {
			result.Skipped++
			continue
		}

		priorBills, err := s.unpaidPriorBills(ctx, resident.ID, m.String())
		if err != nil {
			return nil, err
		}
		complaints, err := s.unbilledComplaints(ctx, resident.ID)
		if err != nil {
			return nil, err
		}

		bill := buildBill(resident, m, baseCharges, previousDues(priorBills, lateFeeRate),
			complaintLineItems(complaints), dueDay, models.BillStatusUnpaid)
		// Bulk generation sends immediately: the bill is visible to the
		// resident as soon as the run commits.
		bill.SentBy = &actorID
		bill.SentAt = &now

		ids := make([]primitive.ObjectID, 0, len(complaints))
		for _, c := range complaints {
			ids = append(ids, c.ID)
		}
		staged = append(staged, stagedBill{bill: bill, complaintIDs: ids})
		result.Created++
		result.ChargesApplied += len(ids)
	}

	if len(staged) == 0 {
		return result, nil
	}

	if err := s.commitGeneration(ctx, staged, now); err != nil {
		return nil, fmt.Errorf("failed to generate monthly bills: %w", err)
	}

	s.invalidateBillCaches(ctx)
	return result, nil
}

// commitGeneration writes all staged bills and their complaint linkage
// updates inside one transaction, retried on transient transaction errors.
func (s *billService) commitGeneration(ctx context.Context, staged []stagedBill, now time.Time) error {
	return db.Try(func() error {
		session, err := s.db.Client().StartSession()
		if err != nil {
			return fmt.Errorf("failed to start session: %w", err)
		}
		defer session.EndSession(ctx)

		_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
			bills := s.db.Collection(billsCollection)
			complaints := s.db.Collection(complaintsCollection)
			for _, sb := range staged {
				if _, err := bills.InsertOne(sc, sb.bill); err != nil {
					return nil, err
				}
				for _, complaintID := range sb.complaintIDs {
					res, err := complaints.UpdateOne(sc,
						bson.M{"_id": complaintID, "added_to_bill": false},
						bson.M{"$set": bson.M{
							"added_to_bill": true,
							"bill_id":       sb.bill.ID,
							"updated_at":    now,
						}},
					)
					if err != nil {
						return nil, err
					}
					if res.MatchedCount == 0 {
						// Consumed by a concurrent run between staging and
						// commit; abort so totals never drift from linkage.
						return nil, fmt.Errorf("complaint %s was billed concurrently", complaintID.Hex())
					}
				}
			}
			return nil, nil
		})
		return err
	})
}

// GenerateSingleBill creates a draft bill for one resident. Unlike the bulk
// path it does not consume complaint charges and requires an explicit send
// step before the resident sees it.
func (s *billService) GenerateSingleBill(ctx context.Context, residentID primitive.ObjectID, month string, baseCharges float64, actorID primitive.ObjectID) (*models.Bill, error) {
	m, err := models.ParseMonth(month)
	if err != nil {
		return nil, err
	}
	if baseCharges < 0 {
		return nil, fmt.Errorf("base charges must not be negative")
	}
	if baseCharges == 0 {
		baseCharges = s.settings.GetFloat64(ctx, models.SettingBaseCharges, s.cfg.BaseCharges)
	}
	lateFeeRate := s.settings.GetFloat64(ctx, models.SettingLateFeeRate, s.cfg.LateFeeRate)
	dueDay := s.settings.GetInt(ctx, models.SettingBillDueDay, s.cfg.BillDueDay)

	resident, err := s.userService.FindByID(ctx, residentID)
	if err != nil {
		return nil, fmt.Errorf("resident %s not found: %w", residentID.Hex(), err)
	}
	if resident.Role != models.RoleResident {
		return nil, fmt.Errorf("user %s is not a resident", residentID.Hex())
	}

	exists, err := s.billExists(ctx, residentID, m.String())
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrBillExists
	}

	priorBills, err := s.unpaidPriorBills(ctx, residentID, m.String())
	if err != nil {
		return nil, err
	}

	bill := buildBill(*resident, m, baseCharges, previousDues(priorBills, lateFeeRate),
		[]models.ComplaintCharge{}, dueDay, models.BillStatusDraft)

	if _, err := s.db.Collection(billsCollection).InsertOne(ctx, bill); err != nil {
		if db.IsDuplicateKeyError(err) {
			return nil, ErrBillExists
		}
		return nil, fmt.Errorf("failed to insert bill for resident %s: %w", residentID.Hex(), err)
	}

	s.invalidateBillCaches(ctx)
	return &bill, nil
}

// transition moves a bill between statuses with a guarded filter, applying
// extra filter and update fields supplied by the caller.
func (s *billService) transition(ctx context.Context, billID primitive.ObjectID, from, to models.BillStatus, extraFilter, extraSet bson.M) error {
	filter := bson.M{"_id": billID, "status": from, "deleted": false}
	for k, v := range extraFilter {
		filter[k] = v
	}
	set := bson.M{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range extraSet {
		set[k] = v
	}

	result, err := s.db.Collection(billsCollection).UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("db error updating bill %s: %w", billID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		var bill models.Bill
		checkErr := s.db.Collection(billsCollection).FindOne(ctx, bson.M{"_id": billID, "deleted": false}).Decode(&bill)
		if errors.Is(checkErr, mongo.ErrNoDocuments) {
			return mongo.ErrNoDocuments
		}
		return ErrInvalidTransition
	}
	s.invalidateBillCaches(ctx)
	return nil
}

// SendBill makes a draft bill visible to the resident (draft -> unpaid).
func (s *billService) SendBill(ctx context.Context, billID, actorID primitive.ObjectID) error {
	now := time.Now().UTC()
	return s.transition(ctx, billID, models.BillStatusDraft, models.BillStatusUnpaid, nil, bson.M{
		"sent_by": actorID,
		"sent_at": now,
	})
}

// SubmitPaymentProof attaches a payment-proof object key to an unpaid bill
// and moves it to pending verification. Returns the generated payment
// reference. The bill must belong to the submitting resident.
func (s *billService) SubmitPaymentProof(ctx context.Context, billID, residentID primitive.ObjectID, proofKey string) (string, error) {
	if proofKey == "" {
		return "", fmt.Errorf("payment proof key is required")
	}
	ref := uuid.NewString()
	err := s.transition(ctx, billID, models.BillStatusUnpaid, models.BillStatusPending,
		bson.M{"resident_id": residentID},
		bson.M{"payment_proof_key": proofKey, "payment_ref": ref},
	)
	if err != nil {
		return "", err
	}
	return ref, nil
}

// VerifyPayment confirms a pending payment (pending -> paid).
func (s *billService) VerifyPayment(ctx context.Context, billID, actorID primitive.ObjectID) error {
	now := time.Now().UTC()
	return s.transition(ctx, billID, models.BillStatusPending, models.BillStatusPaid, nil, bson.M{
		"verified_by": actorID,
		"verified_at": now,
	})
}

// RejectPayment sends a pending bill back to unpaid. The proof key is kept
// for audit; a fresh submission overwrites it.
func (s *billService) RejectPayment(ctx context.Context, billID, actorID primitive.ObjectID) error {
	return s.transition(ctx, billID, models.BillStatusPending, models.BillStatusUnpaid, nil, bson.M{})
}

// ArchiveBill flags a paid bill as archived. Paid is otherwise terminal.
func (s *billService) ArchiveBill(ctx context.Context, billID primitive.ObjectID) error {
	result, err := s.db.Collection(billsCollection).UpdateOne(ctx,
		bson.M{"_id": billID, "status": models.BillStatusPaid, "deleted": false, "is_archived": false},
		bson.M{"$set": bson.M{"is_archived": true, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("db error archiving bill %s: %w", billID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		var bill models.Bill
		checkErr := s.db.Collection(billsCollection).FindOne(ctx, bson.M{"_id": billID, "deleted": false}).Decode(&bill)
		if errors.Is(checkErr, mongo.ErrNoDocuments) {
			return mongo.ErrNoDocuments
		}
		return ErrInvalidTransition
	}
	s.invalidateBillCaches(ctx)
	return nil
}

// FindBillByID finds a non-deleted bill by id.
func (s *billService) FindBillByID(ctx context.Context, billID primitive.ObjectID) (*models.Bill, error) {
	var bill models.Bill
	err := s.db.Collection(billsCollection).FindOne(ctx, bson.M{"_id": billID, "deleted": false}).Decode(&bill)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding bill %s: %w", billID.Hex(), err)
	}
	return &bill, nil
}

// GetBillsByResident returns all of a resident's bills, newest month first,
// served from the query cache when fresh.
func (s *billService) GetBillsByResident(ctx context.Context, residentID primitive.ObjectID) ([]models.Bill, error) {
	cacheKey := cache.Key("bills", "resident", residentID.Hex())
	var cached []models.Bill
	if err := s.qc.Get(ctx, cacheKey, &cached); err == nil {
		return cached, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "month", Value: -1}})
	cursor, err := s.db.Collection(billsCollection).Find(ctx,
		bson.M{"resident_id": residentID, "deleted": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query bills for resident %s: %w", residentID.Hex(), err)
	}
	defer cursor.Close(ctx)

	bills := []models.Bill{}
	if err = cursor.All(ctx, &bills); err != nil {
		return nil, fmt.Errorf("failed to decode bills: %w", err)
	}
	if err := s.qc.Set(ctx, cacheKey, bills); err != nil {
		log.Printf("WARN: failed to cache resident bills: %v", err)
	}
	return bills, nil
}

// GetAllBills returns every bill, optionally narrowed to one month, served
// from the query cache when fresh.
func (s *billService) GetAllBills(ctx context.Context, month string) ([]models.Bill, error) {
	filter := bson.M{"deleted": false}
	cacheKey := cache.Key("bills", "all")
	if month != "" {
		m, err := models.ParseMonth(month)
		if err != nil {
			return nil, err
		}
		filter["month"] = m.String()
		cacheKey = cache.Key("bills", "all", m.String())
	}

	var cached []models.Bill
	if err := s.qc.Get(ctx, cacheKey, &cached); err == nil {
		return cached, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "month", Value: -1}, {Key: "house_id", Value: 1}})
	cursor, err := s.db.Collection(billsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query bills: %w", err)
	}
	defer cursor.Close(ctx)

	bills := []models.Bill{}
	if err = cursor.All(ctx, &bills); err != nil {
		return nil, fmt.Errorf("failed to decode bills: %w", err)
	}
	if err := s.qc.Set(ctx, cacheKey, bills); err != nil {
		log.Printf("WARN: failed to cache bills: %v", err)
	}
	return bills, nil
}

// MarkOverdueResidents flags every resident who has an unpaid or pending
// bill past its due date. Returns how many users were newly flagged.
func (s *billService) MarkOverdueResidents(ctx context.Context) (int64, error) {
	raw, err := s.db.Collection(billsCollection).Distinct(ctx, "resident_id", bson.M{
		"deleted":  false,
		"status":   bson.M{"$in": bson.A{models.BillStatusUnpaid, models.BillStatusPending}},
		"due_date": bson.M{"$lt": time.Now().UTC()},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to find overdue residents: %w", err)
	}

	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(primitive.ObjectID); ok {
			ids = append(ids, id)
		}
	}
	return s.userService.SetOverdue(ctx, ids, true)
}

// invalidateBillCaches drops every cached bill query. Called after any write
// touching the bills collection.
func (s *billService) invalidateBillCaches(ctx context.Context) {
	if err := s.qc.Invalidate(ctx, "bills:*"); err != nil {
		log.Printf("WARN: failed to invalidate bill caches: %v", err)
	}
}
