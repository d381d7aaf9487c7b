package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mudassarbajwa49/eRoyal-sub000/internal/services"
)

// HouseHandler handles the unit registry.
type HouseHandler struct {
	houseService services.IHouseService
}

// NewHouseHandler creates a new HouseHandler.
func NewHouseHandler(houseService services.IHouseService) *HouseHandler {
	return &HouseHandler{houseService: houseService}
}

type addHouseRequest struct {
	Label string `json:"label" binding:"required"`
	Block string `json:"block"`
}

// AddHouse handles POST /v1/admin/houses.
func (h *HouseHandler) AddHouse(c *gin.Context) {
	var req addHouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "House label is required")
		return
	}
	house, err := h.houseService.AddHouse(c.Request.Context(), req.Label, req.Block)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respondCreated(c, house)
}

// ListHouses handles GET /v1/admin/houses.
func (h *HouseHandler) ListHouses(c *gin.Context) {
	houses, err := h.houseService.ListHouses(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to retrieve houses")
		return
	}
	respondOK(c, houses)
}

type setOccupiedRequest struct {
	Occupied *bool `json:"occupied" binding:"required"`
}

// SetOccupied handles PATCH /v1/admin/houses/:label.
func (h *HouseHandler) SetOccupied(c *gin.Context) {
	var req setOccupiedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "occupied is required")
		return
	}
	if err := h.houseService.SetOccupied(c.Request.Context(), c.Param("label"), *req.Occupied); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondError(c, http.StatusNotFound, "House not found")
			return
		}
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to update house")
		return
	}
	respondMessage(c, "House updated")
}
