package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mudassarbajwa49/eRoyal-sub000/internal/services"
)

// SettingsHandler exposes public config and admin setting management.
type SettingsHandler struct {
	settingsService services.ISettingsService
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(settingsService services.ISettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

// GetPublicConfig handles GET /v1/config. No auth: the login screen reads it.
func (h *SettingsHandler) GetPublicConfig(c *gin.Context) {
	settings, err := h.settingsService.GetAllPublic(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to retrieve configuration")
		return
	}
	respondOK(c, settings)
}

type setSettingRequest struct {
	Key      string      `json:"key" binding:"required"`
	Value    interface{} `json:"value" binding:"required"`
	IsPublic bool        `json:"is_public"`
}

// SetSetting handles PUT /v1/admin/settings.
func (h *SettingsHandler) SetSetting(c *gin.Context) {
	var req setSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "key and value are required")
		return
	}
	if err := h.settingsService.Set(c.Request.Context(), req.Key, req.Value, req.IsPublic); err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to store setting")
		return
	}
	respondMessage(c, "Setting stored")
}
