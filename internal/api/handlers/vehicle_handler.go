package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mudassarbajwa49/eRoyal-sub000/internal/models"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/services"
)

// VehicleHandler handles the gate log kept by guards.
type VehicleHandler struct {
	vehicleService services.IVehicleService
}

// NewVehicleHandler creates a new VehicleHandler.
func NewVehicleHandler(vehicleService services.IVehicleService) *VehicleHandler {
	return &VehicleHandler{vehicleService: vehicleService}
}

type logMovementRequest struct {
	Plate       string `json:"plate" binding:"required"`
	Direction   string `json:"direction" binding:"required"`
	VisitorName string `json:"visitor_name"`
	HouseID     string `json:"house_id"`
}

// LogMovement handles POST /v1/gate/vehicles.
func (h *VehicleHandler) LogMovement(c *gin.Context) {
	guardID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	var req logMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "plate and direction are required")
		return
	}

	entry, err := h.vehicleService.LogMovement(c.Request.Context(),
		req.Plate, models.VehicleDirection(req.Direction), req.VisitorName, req.HouseID, guardID)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respondCreated(c, entry)
}

// ListLogs handles GET /v1/gate/vehicles?plate=...&since=RFC3339&limit=N.
func (h *VehicleHandler) ListLogs(c *gin.Context) {
	var since time.Time
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "since must be an RFC3339 timestamp")
			return
		}
		since = parsed
	}
	limit, _ := strconv.Atoi(c.Query("limit")) // service caps the range

	logs, err := h.vehicleService.ListLogs(c.Request.Context(), c.Query("plate"), since, limit)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to retrieve vehicle logs")
		return
	}
	respondOK(c, logs)
}
