package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mudassarbajwa49/eRoyal-sub000/internal/models"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/services"
)

// AnnouncementHandler handles society notices.
type AnnouncementHandler struct {
	announcementService services.IAnnouncementService
	userService         services.IUserService
}

// NewAnnouncementHandler creates a new AnnouncementHandler.
func NewAnnouncementHandler(announcementService services.IAnnouncementService, userService services.IUserService) *AnnouncementHandler {
	return &AnnouncementHandler{announcementService: announcementService, userService: userService}
}

type publishAnnouncementRequest struct {
	Title    string `json:"title" binding:"required"`
	Body     string `json:"body"`
	Audience string `json:"audience" binding:"required"`
	Pinned   bool   `json:"pinned"`
}

// Publish handles POST /v1/admin/announcements.
func (h *AnnouncementHandler) Publish(c *gin.Context) {
	authorID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	var req publishAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "title and audience are required")
		return
	}

	author, err := h.userService.FindByID(c.Request.Context(), authorID)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unknown user")
		return
	}

	announcement, err := h.announcementService.Publish(c.Request.Context(),
		author, req.Title, req.Body, models.AnnouncementAudience(req.Audience), req.Pinned)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respondCreated(c, announcement)
}

// List handles GET /v1/announcements, scoped to the caller's role.
func (h *AnnouncementHandler) List(c *gin.Context) {
	role, ok := currentRole(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	announcements, err := h.announcementService.ListForRole(c.Request.Context(), role)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to retrieve announcements")
		return
	}
	respondOK(c, announcements)
}

// Unpublish handles DELETE /v1/admin/announcements/:id.
func (h *AnnouncementHandler) Unpublish(c *gin.Context) {
	announcementID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.announcementService.Unpublish(c.Request.Context(), announcementID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondError(c, http.StatusNotFound, "Announcement not found")
			return
		}
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to remove announcement")
		return
	}
	respondMessage(c, "Announcement removed")
}
