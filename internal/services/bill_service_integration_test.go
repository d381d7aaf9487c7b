package services_test

// Integration tests against a live MongoDB. Set MONGO_URI_TEST to run them;
// GenerateMonthlyBills uses multi-document transactions, so the target must
// be a replica set (a single-node replica set is fine).

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mudassarbajwa49/eRoyal-sub000/internal/cache"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/config"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/db"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/models"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/services"
)

type testEnv struct {
	db               *mongo.Database
	cfg              *config.Config
	userService      services.IUserService
	settingsService  services.ISettingsService
	billService      services.IBillService
	complaintService services.IComplaintService
	cleanup          func()
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	uri := os.Getenv("MONGO_URI_TEST")
	if uri == "" {
		t.Skip("MONGO_URI_TEST not set; skipping integration test")
	}

	dbName := fmt.Sprintf("eroyal_test_%d", time.Now().UnixNano())
	client, database, err := db.ConnectDB(uri, dbName)
	require.NoError(t, err)
	require.NoError(t, db.EnsureIndexes(context.Background(), database))

	cfg := &config.Config{
		BaseCharges: 5000,
		LateFeeRate: 0.10,
		BillDueDay:  25,
	}
	qc := cache.NoopCache{}
	userService := services.NewUserService(database, cfg)
	settingsService := services.NewSettingsService(database, cfg, qc)
	billService := services.NewBillService(database, cfg, settingsService, userService, qc)
	complaintService := services.NewComplaintService(database, cfg, qc)

	return &testEnv{
		db:               database,
		cfg:              cfg,
		userService:      userService,
		settingsService:  settingsService,
		billService:      billService,
		complaintService: complaintService,
		cleanup: func() {
			_ = database.Drop(context.Background())
			_ = db.DisconnectDB(client)
		},
	}
}

func (e *testEnv) mustRegisterResident(t *testing.T, name, email, houseID string) *models.User {
	t.Helper()
	user, err := e.userService.Register(context.Background(), name, email, "", "password123", models.RoleResident, houseID)
	require.NoError(t, err)
	return user
}

func TestBillService_GenerateSingleBill_DraftLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()
	ctx := context.Background()
	admin, err := env.userService.Register(ctx, "Admin", "admin@test.local", "", "password123", models.RoleAdmin, "")
	require.NoError(t, err)
	resident := env.mustRegisterResident(t, "Asif", "asif@test.local", "B-12")

	bill, err := env.billService.GenerateSingleBill(ctx, resident.ID, "2025-08", 0, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillStatusDraft, bill.Status)
	assert.Equal(t, 5000.0, bill.Amount)
	assert.Empty(t, bill.Breakdown.ComplaintCharges)
	assert.Equal(t, time.Date(2025, time.August, 25, 0, 0, 0, 0, time.UTC), bill.DueDate)

	// Second bill for the same resident and month is refused.
	_, err = env.billService.GenerateSingleBill(ctx, resident.ID, "2025-08", 0, admin.ID)
	assert.ErrorIs(t, err, services.ErrBillExists)

	// draft -> unpaid -> pending -> unpaid (reject) -> pending -> paid
	require.NoError(t, env.billService.SendBill(ctx, bill.ID, admin.ID))
	_, err = env.billService.SubmitPaymentProof(ctx, bill.ID, resident.ID, "proofs/a/b/c.jpg")
	require.NoError(t, err)
	require.NoError(t, env.billService.RejectPayment(ctx, bill.ID, admin.ID))
	ref, err := env.billService.SubmitPaymentProof(ctx, bill.ID, resident.ID, "proofs/a/b/d.jpg")
	require.NoError(t, err)
	assert.NotEmpty(t, ref)
	require.NoError(t, env.billService.VerifyPayment(ctx, bill.ID, admin.ID))

	final, err := env.billService.FindBillByID(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillStatusPaid, final.Status)
	assert.Equal(t, "proofs/a/b/d.jpg", final.PaymentProofKey)
	assert.NotNil(t, final.VerifiedBy)

	// Paid bills cannot be re-verified, only archived.
	assert.ErrorIs(t, env.billService.VerifyPayment(ctx, bill.ID, admin.ID), services.ErrInvalidTransition)
	require.NoError(t, env.billService.ArchiveBill(ctx, bill.ID))
	assert.ErrorIs(t, env.billService.ArchiveBill(ctx, bill.ID), services.ErrInvalidTransition)
}

func TestBillService_SubmitProof_WrongResident(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()
	ctx := context.Background()
	admin, err := env.userService.Register(ctx, "Admin", "admin@test.local", "", "password123", models.RoleAdmin, "")
	require.NoError(t, err)
	owner := env.mustRegisterResident(t, "Owner", "owner@test.local", "A-1")
	other := env.mustRegisterResident(t, "Other", "other@test.local", "A-2")

	bill, err := env.billService.GenerateSingleBill(ctx, owner.ID, "2025-08", 0, admin.ID)
	require.NoError(t, err)
	require.NoError(t, env.billService.SendBill(ctx, bill.ID, admin.ID))

	_, err = env.billService.SubmitPaymentProof(ctx, bill.ID, other.ID, "proofs/x.jpg")
	assert.Error(t, err)
}

func TestBillService_GenerateMonthlyBills_CarriesForwardAndFoldsCharges(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()
	ctx := context.Background()
	admin, err := env.userService.Register(ctx, "Admin", "admin@test.local", "", "password123", models.RoleAdmin, "")
	require.NoError(t, err)
	resident := env.mustRegisterResident(t, "Asif", "asif@test.local", "B-12")

	// July bill stays unpaid.
	julyBill, err := env.billService.GenerateSingleBill(ctx, resident.ID, "2025-07", 0, admin.ID)
	require.NoError(t, err)
	require.NoError(t, env.billService.SendBill(ctx, julyBill.ID, admin.ID))

	// A resolved complaint with a charge and no open draft waits for billing.
	complaint, err := env.complaintService.CreateComplaint(ctx, resident, "Broken gate latch", "", "repairs")
	require.NoError(t, err)
	require.NoError(t, env.complaintService.ResolveWithCharge(ctx, complaint.ID, "Replaced latch", 800, admin.ID))

	result, err := env.billService.GenerateMonthlyBills(ctx, "2025-08", 0, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 1, result.ChargesApplied)

	bills, err := env.billService.GetAllBills(ctx, "2025-08")
	require.NoError(t, err)
	require.Len(t, bills, 1)
	aug := bills[0]
	assert.Equal(t, models.BillStatusUnpaid, aug.Status)
	assert.Equal(t, 5000.0, aug.Breakdown.BaseCharges)
	assert.Equal(t, 5500.0, aug.Breakdown.PreviousDues) // 5000 + 10% late fee
	require.Len(t, aug.Breakdown.ComplaintCharges, 1)
	assert.Equal(t, 800.0, aug.Breakdown.ComplaintCharges[0].Amount)
	assert.Equal(t, 11300.0, aug.Amount)
	assert.NotNil(t, aug.SentBy)

	// The complaint is now consumed.
	resolved, err := env.complaintService.FindByID(ctx, complaint.ID)
	require.NoError(t, err)
	assert.True(t, resolved.AddedToBill)
	require.NotNil(t, resolved.BillID)
	assert.Equal(t, aug.ID, *resolved.BillID)

	// Re-running the month creates nothing and charges nothing twice.
	again, err := env.billService.GenerateMonthlyBills(ctx, "2025-08", 0, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Created)
	assert.Equal(t, 1, again.Skipped)
	assert.Equal(t, 0, again.ChargesApplied)
}

func TestBillService_GenerateMonthlyBills_InvalidMonth(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	_, err := env.billService.GenerateMonthlyBills(context.Background(), "2025-13", 0, primitive.NilObjectID)
	assert.Error(t, err)
}

func TestComplaintService_ResolveWithCharge_FoldsIntoOpenDraft(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()
	ctx := context.Background()
	admin, err := env.userService.Register(ctx, "Admin", "admin@test.local", "", "password123", models.RoleAdmin, "")
	require.NoError(t, err)
	resident := env.mustRegisterResident(t, "Asif", "asif@test.local", "B-12")

	currentMonth := models.MonthOf(time.Now()).String()
	draft, err := env.billService.GenerateSingleBill(ctx, resident.ID, currentMonth, 0, admin.ID)
	require.NoError(t, err)

	complaint, err := env.complaintService.CreateComplaint(ctx, resident, "Leaking pipe", "", "plumbing")
	require.NoError(t, err)
	require.NoError(t, env.complaintService.ResolveWithCharge(ctx, complaint.ID, "Sealed joint", 450, admin.ID))

	updated, err := env.billService.FindBillByID(ctx, draft.ID)
	require.NoError(t, err)
	require.Len(t, updated.Breakdown.ComplaintCharges, 1)
	assert.Equal(t, 450.0, updated.Breakdown.ComplaintCharges[0].Amount)
	assert.Equal(t, updated.Breakdown.Total(), updated.Amount)

	resolved, err := env.complaintService.FindByID(ctx, complaint.ID)
	require.NoError(t, err)
	assert.True(t, resolved.AddedToBill)

	// A second resolve attempt must not double-charge.
	err = env.complaintService.ResolveWithCharge(ctx, complaint.ID, "", 450, admin.ID)
	assert.Error(t, err)
}

func TestComplaintService_ResolveWithZeroCharge(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()
	ctx := context.Background()
	admin, err := env.userService.Register(ctx, "Admin", "admin@test.local", "", "password123", models.RoleAdmin, "")
	require.NoError(t, err)
	resident := env.mustRegisterResident(t, "Asif", "asif@test.local", "B-12")

	complaint, err := env.complaintService.CreateComplaint(ctx, resident, "Noise", "", "general")
	require.NoError(t, err)
	require.NoError(t, env.complaintService.ResolveWithCharge(ctx, complaint.ID, "Spoke to resident", 0, admin.ID))

	resolved, err := env.complaintService.FindByID(ctx, complaint.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusResolved, resolved.Status)
	// Nothing to bill: the charge is marked consumed so no run picks it up.
	assert.True(t, resolved.AddedToBill)
	assert.False(t, resolved.PendingBilling())

	// A later generation run must not add a line item for it.
	result, err := env.billService.GenerateMonthlyBills(ctx, "2030-01", 0, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 0, result.ChargesApplied)
}

func TestBillService_MarkOverdueResidents(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()
	ctx := context.Background()
	admin, err := env.userService.Register(ctx, "Admin", "admin@test.local", "", "password123", models.RoleAdmin, "")
	require.NoError(t, err)
	resident := env.mustRegisterResident(t, "Asif", "asif@test.local", "B-12")

	// A long-past month is overdue the moment it is sent.
	bill, err := env.billService.GenerateSingleBill(ctx, resident.ID, "2020-01", 0, admin.ID)
	require.NoError(t, err)
	require.NoError(t, env.billService.SendBill(ctx, bill.ID, admin.ID))

	flagged, err := env.billService.MarkOverdueResidents(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), flagged)

	var stored models.User
	err = env.db.Collection("users").FindOne(ctx, bson.M{"_id": resident.ID}).Decode(&stored)
	require.NoError(t, err)
	assert.True(t, stored.Overdue)
}
