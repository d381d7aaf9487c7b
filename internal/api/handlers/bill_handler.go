package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mudassarbajwa49/eRoyal-sub000/internal/services"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/storage"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/tasks"
)

// IAsynqClient abstracts the asynq client so handlers can be tested with a
// mock enqueuer.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// BillHandler handles billing endpoints for admins and residents.
type BillHandler struct {
	billService services.IBillService
	s3Storage   storage.IS3Storage
	taskClient  IAsynqClient
}

// NewBillHandler creates a new BillHandler.
func NewBillHandler(billService services.IBillService, s3Storage storage.IS3Storage, taskClient IAsynqClient) *BillHandler {
	return &BillHandler{
		billService: billService,
		s3Storage:   s3Storage,
		taskClient:  taskClient,
	}
}

type generateBillsRequest struct {
	Month       string  `json:"month" binding:"required"`
	BaseCharges float64 `json:"base_charges"`
}

// GenerateMonthlyBills handles POST /v1/admin/bills/generate.
func (h *BillHandler) GenerateMonthlyBills(c *gin.Context) {
	var req generateBillsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body: month is required")
		return
	}
	actorID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	result, err := h.billService.GenerateMonthlyBills(c.Request.Context(), req.Month, req.BaseCharges, actorID)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	// Resident notifications go through the background queue; generation
	// already succeeded, so enqueue failure only loses the emails.
	if result.Created > 0 && h.taskClient != nil {
		task, err := tasks.NewBillNotifyTask(req.Month)
		if err == nil {
			_, err = h.taskClient.EnqueueContext(c.Request.Context(), task)
		}
		if err != nil {
			log.Printf("WARN: failed to enqueue bill notifications for %s: %v", req.Month, err)
		}
	}

	respondOK(c, result)
}

type generateSingleBillRequest struct {
	ResidentID  string  `json:"resident_id" binding:"required"`
	Month       string  `json:"month" binding:"required"`
	BaseCharges float64 `json:"base_charges"`
}

// GenerateSingleBill handles POST /v1/admin/bills.
func (h *BillHandler) GenerateSingleBill(c *gin.Context) {
	var req generateSingleBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body: resident_id and month are required")
		return
	}
	residentID, err := parseHexID(req.ResidentID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid resident_id format")
		return
	}
	actorID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	bill, err := h.billService.GenerateSingleBill(c.Request.Context(), residentID, req.Month, req.BaseCharges, actorID)
	if err != nil {
		if errors.Is(err, services.ErrBillExists) {
			respondError(c, http.StatusConflict, "Bill already exists for this resident and month")
			return
		}
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respondCreated(c, bill)
}

// SendBill handles POST /v1/admin/bills/:id/send.
func (h *BillHandler) SendBill(c *gin.Context) {
	billID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actorID, _ := currentUserID(c)

	if err := h.billService.SendBill(c.Request.Context(), billID, actorID); err != nil {
		h.respondTransitionError(c, err, "Only draft bills can be sent")
		return
	}
	respondMessage(c, "Bill sent")
}

// VerifyPayment handles POST /v1/admin/bills/:id/verify.
func (h *BillHandler) VerifyPayment(c *gin.Context) {
	billID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actorID, _ := currentUserID(c)

	if err := h.billService.VerifyPayment(c.Request.Context(), billID, actorID); err != nil {
		h.respondTransitionError(c, err, "Only bills pending verification can be verified")
		return
	}
	respondMessage(c, "Payment verified")
}

// RejectPayment handles POST /v1/admin/bills/:id/reject.
func (h *BillHandler) RejectPayment(c *gin.Context) {
	billID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actorID, _ := currentUserID(c)

	if err := h.billService.RejectPayment(c.Request.Context(), billID, actorID); err != nil {
		h.respondTransitionError(c, err, "Only bills pending verification can be rejected")
		return
	}
	respondMessage(c, "Payment rejected; bill returned to unpaid")
}

// ArchiveBill handles POST /v1/admin/bills/:id/archive.
func (h *BillHandler) ArchiveBill(c *gin.Context) {
	billID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.billService.ArchiveBill(c.Request.Context(), billID); err != nil {
		h.respondTransitionError(c, err, "Only paid bills can be archived")
		return
	}
	respondMessage(c, "Bill archived")
}

// GetAllBills handles GET /v1/admin/bills?month=YYYY-MM.
func (h *BillHandler) GetAllBills(c *gin.Context) {
	bills, err := h.billService.GetAllBills(c.Request.Context(), c.Query("month"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respondOK(c, bills)
}

// MyBills handles GET /v1/bills for the authenticated resident.
func (h *BillHandler) MyBills(c *gin.Context) {
	residentID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	bills, err := h.billService.GetBillsByResident(c.Request.Context(), residentID)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to retrieve bills")
		return
	}
	respondOK(c, bills)
}

type presignProofRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// PresignProofUpload handles POST /v1/bills/:id/proof-url. The resident
// uploads the file straight to S3 and then submits the returned key.
func (h *BillHandler) PresignProofUpload(c *gin.Context) {
	billID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	residentID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	var req presignProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "filename and content_type are required")
		return
	}

	url, key, err := h.s3Storage.PresignPaymentProofUpload(c.Request.Context(),
		residentID.Hex(), billID.Hex(), req.Filename, req.ContentType)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to create upload URL")
		return
	}
	respondOK(c, gin.H{"upload_url": url, "proof_key": key})
}

type submitProofRequest struct {
	ProofKey string `json:"proof_key" binding:"required"`
}

// SubmitPaymentProof handles POST /v1/bills/:id/proof.
func (h *BillHandler) SubmitPaymentProof(c *gin.Context) {
	billID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	residentID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	var req submitProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "proof_key is required")
		return
	}

	ref, err := h.billService.SubmitPaymentProof(c.Request.Context(), billID, residentID, req.ProofKey)
	if err != nil {
		h.respondTransitionError(c, err, "Only unpaid bills can receive a payment proof")
		return
	}
	respondOKMessage(c, gin.H{"payment_ref": ref}, "Payment submitted for verification")
}

// respondTransitionError maps bill lifecycle errors onto HTTP statuses.
func (h *BillHandler) respondTransitionError(c *gin.Context, err error, conflictMsg string) {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		respondError(c, http.StatusNotFound, "Bill not found")
	case errors.Is(err, services.ErrInvalidTransition):
		respondError(c, http.StatusConflict, conflictMsg)
	default:
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Billing operation failed")
	}
}
