package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mudassarbajwa49/eRoyal-sub000/internal/models"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/services"
)

// ComplaintHandler handles complaint endpoints for residents and admins.
type ComplaintHandler struct {
	complaintService services.IComplaintService
	userService      services.IUserService
}

// NewComplaintHandler creates a new ComplaintHandler.
func NewComplaintHandler(complaintService services.IComplaintService, userService services.IUserService) *ComplaintHandler {
	return &ComplaintHandler{complaintService: complaintService, userService: userService}
}

type createComplaintRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// CreateComplaint handles POST /v1/complaints.
func (h *ComplaintHandler) CreateComplaint(c *gin.Context) {
	residentID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	var req createComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Complaint title is required")
		return
	}

	resident, err := h.userService.FindByID(c.Request.Context(), residentID)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unknown user")
		return
	}

	complaint, err := h.complaintService.CreateComplaint(c.Request.Context(),
		resident, req.Title, req.Description, req.Category)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respondCreated(c, complaint)
}

// MyComplaints handles GET /v1/complaints.
func (h *ComplaintHandler) MyComplaints(c *gin.Context) {
	residentID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	complaints, err := h.complaintService.ListByResident(c.Request.Context(), residentID)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to retrieve complaints")
		return
	}
	respondOK(c, complaints)
}

// ListAll handles GET /v1/admin/complaints?status=pending.
func (h *ComplaintHandler) ListAll(c *gin.Context) {
	status := models.ComplaintStatus(c.Query("status"))
	complaints, err := h.complaintService.ListAll(c.Request.Context(), status)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respondOK(c, complaints)
}

type updateComplaintStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus handles PATCH /v1/admin/complaints/:id/status.
func (h *ComplaintHandler) UpdateStatus(c *gin.Context) {
	complaintID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req updateComplaintStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "status is required")
		return
	}

	err := h.complaintService.UpdateStatus(c.Request.Context(), complaintID, models.ComplaintStatus(req.Status))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondError(c, http.StatusNotFound, "Complaint not found")
			return
		}
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respondMessage(c, "Complaint status updated")
}

type resolveComplaintRequest struct {
	Notes        string  `json:"notes"`
	ChargeAmount float64 `json:"charge_amount"`
}

// Resolve handles POST /v1/admin/complaints/:id/resolve. A positive charge
// amount is folded into the resident's open draft bill for the current month
// when one exists, otherwise it waits for the next generation run.
func (h *ComplaintHandler) Resolve(c *gin.Context) {
	complaintID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actorID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	var req resolveComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.complaintService.ResolveWithCharge(c.Request.Context(),
		complaintID, req.Notes, req.ChargeAmount, actorID)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			respondError(c, http.StatusNotFound, "Complaint not found")
		case errors.Is(err, services.ErrChargeAlreadyBilled):
			respondError(c, http.StatusConflict, "Complaint charge has already been added to a bill")
		case errors.Is(err, services.ErrAlreadyResolved):
			respondError(c, http.StatusConflict, "Complaint is already resolved")
		default:
			respondError(c, http.StatusBadRequest, err.Error())
		}
		return
	}
	respondMessage(c, "Complaint resolved")
}
