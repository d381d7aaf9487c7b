package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mudassarbajwa49/eRoyal-sub000/internal/api/handlers"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/models"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/services"
)

func newBillTestRouter(billSvc *MockBillService, s3 *MockS3Storage, taskClient *MockAsynqClient, userID primitive.ObjectID, role models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := handlers.NewBillHandler(billSvc, s3, taskClient)
	r := gin.New()
	r.Use(authAs(userID, role))
	r.POST("/v1/admin/bills/generate", handler.GenerateMonthlyBills)
	r.POST("/v1/admin/bills", handler.GenerateSingleBill)
	r.POST("/v1/admin/bills/:id/send", handler.SendBill)
	r.POST("/v1/admin/bills/:id/verify", handler.VerifyPayment)
	r.POST("/v1/admin/bills/:id/reject", handler.RejectPayment)
	r.GET("/v1/bills", handler.MyBills)
	r.POST("/v1/bills/:id/proof-url", handler.PresignProofUpload)
	r.POST("/v1/bills/:id/proof", handler.SubmitPaymentProof)
	return r
}

func postJSON(r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestBillHandler_GenerateMonthlyBills_Success(t *testing.T) {
	adminID := primitive.NewObjectID()
	billSvc := new(MockBillService)
	taskClient := new(MockAsynqClient)
	r := newBillTestRouter(billSvc, new(MockS3Storage), taskClient, adminID, models.RoleAdmin)

	result := &models.GenerationResult{Created: 3, Skipped: 1, ChargesApplied: 2}
	billSvc.On("GenerateMonthlyBills", mock.Anything, "2025-08", 0.0, adminID).Return(result, nil)
	taskClient.On("EnqueueContext", mock.Anything, mock.Anything).Return(nil, nil)

	w := postJSON(r, "/v1/admin/bills/generate", gin.H{"month": "2025-08"})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool                    `json:"success"`
		Data    models.GenerationResult `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.Data.Created)
	assert.Equal(t, 1, resp.Data.Skipped)
	assert.Equal(t, 2, resp.Data.ChargesApplied)
	billSvc.AssertExpectations(t)
	taskClient.AssertExpectations(t)
}

func TestBillHandler_GenerateMonthlyBills_NothingCreatedSkipsNotify(t *testing.T) {
	adminID := primitive.NewObjectID()
	billSvc := new(MockBillService)
	taskClient := new(MockAsynqClient)
	r := newBillTestRouter(billSvc, new(MockS3Storage), taskClient, adminID, models.RoleAdmin)

	billSvc.On("GenerateMonthlyBills", mock.Anything, "2025-08", 0.0, adminID).
		Return(&models.GenerationResult{Skipped: 4}, nil)

	w := postJSON(r, "/v1/admin/bills/generate", gin.H{"month": "2025-08"})

	assert.Equal(t, http.StatusOK, w.Code)
	taskClient.AssertNotCalled(t, "EnqueueContext", mock.Anything, mock.Anything)
	billSvc.AssertExpectations(t)
}

func TestBillHandler_GenerateMonthlyBills_MissingMonth(t *testing.T) {
	billSvc := new(MockBillService)
	r := newBillTestRouter(billSvc, new(MockS3Storage), new(MockAsynqClient), primitive.NewObjectID(), models.RoleAdmin)

	w := postJSON(r, "/v1/admin/bills/generate", gin.H{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	billSvc.AssertNotCalled(t, "GenerateMonthlyBills", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBillHandler_GenerateSingleBill_Conflict(t *testing.T) {
	adminID := primitive.NewObjectID()
	residentID := primitive.NewObjectID()
	billSvc := new(MockBillService)
	r := newBillTestRouter(billSvc, new(MockS3Storage), new(MockAsynqClient), adminID, models.RoleAdmin)

	billSvc.On("GenerateSingleBill", mock.Anything, residentID, "2025-08", 0.0, adminID).
		Return(nil, services.ErrBillExists)

	w := postJSON(r, "/v1/admin/bills", gin.H{"resident_id": residentID.Hex(), "month": "2025-08"})

	assert.Equal(t, http.StatusConflict, w.Code)
	billSvc.AssertExpectations(t)
}

func TestBillHandler_SendBill_InvalidTransition(t *testing.T) {
	adminID := primitive.NewObjectID()
	billID := primitive.NewObjectID()
	billSvc := new(MockBillService)
	r := newBillTestRouter(billSvc, new(MockS3Storage), new(MockAsynqClient), adminID, models.RoleAdmin)

	billSvc.On("SendBill", mock.Anything, billID, adminID).Return(services.ErrInvalidTransition)

	w := postJSON(r, "/v1/admin/bills/"+billID.Hex()+"/send", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	billSvc.AssertExpectations(t)
}

func TestBillHandler_VerifyPayment_NotFound(t *testing.T) {
	adminID := primitive.NewObjectID()
	billID := primitive.NewObjectID()
	billSvc := new(MockBillService)
	r := newBillTestRouter(billSvc, new(MockS3Storage), new(MockAsynqClient), adminID, models.RoleAdmin)

	billSvc.On("VerifyPayment", mock.Anything, billID, adminID).Return(mongo.ErrNoDocuments)

	w := postJSON(r, "/v1/admin/bills/"+billID.Hex()+"/verify", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	billSvc.AssertExpectations(t)
}

func TestBillHandler_MyBills(t *testing.T) {
	residentID := primitive.NewObjectID()
	billSvc := new(MockBillService)
	r := newBillTestRouter(billSvc, new(MockS3Storage), new(MockAsynqClient), residentID, models.RoleResident)

	bills := []models.Bill{
		{ResidentID: residentID, Month: "2025-08", Amount: 5000, Status: models.BillStatusUnpaid},
	}
	billSvc.On("GetBillsByResident", mock.Anything, residentID).Return(bills, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/bills", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool          `json:"success"`
		Data    []models.Bill `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, "2025-08", resp.Data[0].Month)
	billSvc.AssertExpectations(t)
}

func TestBillHandler_PresignProofUpload(t *testing.T) {
	residentID := primitive.NewObjectID()
	billID := primitive.NewObjectID()
	s3 := new(MockS3Storage)
	r := newBillTestRouter(new(MockBillService), s3, new(MockAsynqClient), residentID, models.RoleResident)

	s3.On("PresignPaymentProofUpload", mock.Anything, residentID.Hex(), billID.Hex(), "receipt.jpg", "image/jpeg").
		Return("https://s3.example/upload", "proofs/x/y/receipt.jpg", nil)

	w := postJSON(r, "/v1/bills/"+billID.Hex()+"/proof-url", gin.H{
		"filename":     "receipt.jpg",
		"content_type": "image/jpeg",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data map[string]string `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://s3.example/upload", resp.Data["upload_url"])
	assert.Equal(t, "proofs/x/y/receipt.jpg", resp.Data["proof_key"])
	s3.AssertExpectations(t)
}

func TestBillHandler_SubmitPaymentProof_Success(t *testing.T) {
	residentID := primitive.NewObjectID()
	billID := primitive.NewObjectID()
	billSvc := new(MockBillService)
	r := newBillTestRouter(billSvc, new(MockS3Storage), new(MockAsynqClient), residentID, models.RoleResident)

	billSvc.On("SubmitPaymentProof", mock.Anything, billID, residentID, "proofs/a/b/c.jpg").
		Return("ref-123", nil)

	w := postJSON(r, "/v1/bills/"+billID.Hex()+"/proof", gin.H{"proof_key": "proofs/a/b/c.jpg"})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data map[string]string `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ref-123", resp.Data["payment_ref"])
	billSvc.AssertExpectations(t)
}

func TestBillHandler_SubmitPaymentProof_NotUnpaid(t *testing.T) {
	residentID := primitive.NewObjectID()
	billID := primitive.NewObjectID()
	billSvc := new(MockBillService)
	r := newBillTestRouter(billSvc, new(MockS3Storage), new(MockAsynqClient), residentID, models.RoleResident)

	billSvc.On("SubmitPaymentProof", mock.Anything, billID, residentID, "proofs/a/b/c.jpg").
		Return("", services.ErrInvalidTransition)

	w := postJSON(r, "/v1/bills/"+billID.Hex()+"/proof", gin.H{"proof_key": "proofs/a/b/c.jpg"})

	assert.Equal(t, http.StatusConflict, w.Code)
	billSvc.AssertExpectations(t)
}
