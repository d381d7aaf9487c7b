package handlers_test

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mudassarbajwa49/eRoyal-sub000/internal/api/middleware"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/models"
)

// --- Mocks ---

// MockUserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, name, email, phone, password string, role models.Role, houseID string) (*models.User, error) {
	args := m.Called(ctx, name, email, phone, password, role, houseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserService) ListResidents(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, name, phone string) (*models.User, error) {
	args := m.Called(ctx, userID, name, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) SetOverdue(ctx context.Context, userIDs []primitive.ObjectID, overdue bool) (int64, error) {
	args := m.Called(ctx, userIDs, overdue)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserService) DeleteUser(ctx context.Context, userID primitive.ObjectID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockBillService
type MockBillService struct {
	mock.Mock
}

func (m *MockBillService) GenerateMonthlyBills(ctx context.Context, month string, baseCharges float64, actorID primitive.ObjectID) (*models.GenerationResult, error) {
	args := m.Called(ctx, month, baseCharges, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GenerationResult), args.Error(1)
}

func (m *MockBillService) GenerateSingleBill(ctx context.Context, residentID primitive.ObjectID, month string, baseCharges float64, actorID primitive.ObjectID) (*models.Bill, error) {
	args := m.Called(ctx, residentID, month, baseCharges, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bill), args.Error(1)
}

func (m *MockBillService) SendBill(ctx context.Context, billID, actorID primitive.ObjectID) error {
	args := m.Called(ctx, billID, actorID)
	return args.Error(0)
}

func (m *MockBillService) SubmitPaymentProof(ctx context.Context, billID, residentID primitive.ObjectID, proofKey string) (string, error) {
	args := m.Called(ctx, billID, residentID, proofKey)
	return args.String(0), args.Error(1)
}

func (m *MockBillService) VerifyPayment(ctx context.Context, billID, actorID primitive.ObjectID) error {
	args := m.Called(ctx, billID, actorID)
	return args.Error(0)
}

func (m *MockBillService) RejectPayment(ctx context.Context, billID, actorID primitive.ObjectID) error {
	args := m.Called(ctx, billID, actorID)
	return args.Error(0)
}

func (m *MockBillService) ArchiveBill(ctx context.Context, billID primitive.ObjectID) error {
	args := m.Called(ctx, billID)
	return args.Error(0)
}

func (m *MockBillService) FindBillByID(ctx context.Context, billID primitive.ObjectID) (*models.Bill, error) {
	args := m.Called(ctx, billID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bill), args.Error(1)
}

func (m *MockBillService) GetBillsByResident(ctx context.Context, residentID primitive.ObjectID) ([]models.Bill, error) {
	args := m.Called(ctx, residentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Bill), args.Error(1)
}

func (m *MockBillService) GetAllBills(ctx context.Context, month string) ([]models.Bill, error) {
	args := m.Called(ctx, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Bill), args.Error(1)
}

func (m *MockBillService) MarkOverdueResidents(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockComplaintService
type MockComplaintService struct {
	mock.Mock
}

func (m *MockComplaintService) CreateComplaint(ctx context.Context, resident *models.User, title, description, category string) (*models.Complaint, error) {
	args := m.Called(ctx, resident, title, description, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Complaint), args.Error(1)
}

func (m *MockComplaintService) FindByID(ctx context.Context, complaintID primitive.ObjectID) (*models.Complaint, error) {
	args := m.Called(ctx, complaintID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Complaint), args.Error(1)
}

func (m *MockComplaintService) ListByResident(ctx context.Context, residentID primitive.ObjectID) ([]models.Complaint, error) {
	args := m.Called(ctx, residentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Complaint), args.Error(1)
}

func (m *MockComplaintService) ListAll(ctx context.Context, status models.ComplaintStatus) ([]models.Complaint, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Complaint), args.Error(1)
}

func (m *MockComplaintService) UpdateStatus(ctx context.Context, complaintID primitive.ObjectID, status models.ComplaintStatus) error {
	args := m.Called(ctx, complaintID, status)
	return args.Error(0)
}

func (m *MockComplaintService) ResolveWithCharge(ctx context.Context, complaintID primitive.ObjectID, notes string, chargeAmount float64, actorID primitive.ObjectID) error {
	args := m.Called(ctx, complaintID, notes, chargeAmount, actorID)
	return args.Error(0)
}

// MockSettingsService
type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) Get(ctx context.Context, key string) (interface{}, error) {
	args := m.Called(ctx, key)
	return args.Get(0), args.Error(1)
}

func (m *MockSettingsService) GetFloat64(ctx context.Context, key string, defaultValue float64) float64 {
	args := m.Called(ctx, key, defaultValue)
	return args.Get(0).(float64)
}

func (m *MockSettingsService) GetInt(ctx context.Context, key string, defaultValue int) int {
	args := m.Called(ctx, key, defaultValue)
	return args.Int(0)
}

func (m *MockSettingsService) GetString(ctx context.Context, key string, defaultValue string) string {
	args := m.Called(ctx, key, defaultValue)
	return args.String(0)
}

func (m *MockSettingsService) Set(ctx context.Context, key string, value interface{}, isPublic bool) error {
	args := m.Called(ctx, key, value, isPublic)
	return args.Error(0)
}

func (m *MockSettingsService) GetAllPublic(ctx context.Context) (map[string]interface{}, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

// MockS3Storage
type MockS3Storage struct {
	mock.Mock
}

func (m *MockS3Storage) PresignPaymentProofUpload(ctx context.Context, residentID, billID, filename, contentType string) (string, string, error) {
	args := m.Called(ctx, residentID, billID, filename, contentType)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockS3Storage) PresignListingImageUpload(ctx context.Context, sellerID, listingID, filename, contentType string) (string, string, error) {
	args := m.Called(ctx, sellerID, listingID, filename, contentType)
	return args.String(0), args.String(1), args.Error(2)
}

// MockAsynqClient
type MockAsynqClient struct {
	mock.Mock
}

func (m *MockAsynqClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

// --- Test helpers ---

// authAs installs a stand-in for AuthMiddleware that stamps the given
// identity into the request context.
func authAs(userID primitive.ObjectID, role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, userID.Hex())
		c.Set(middleware.ContextKeyRole, role)
		c.Next()
	}
}
