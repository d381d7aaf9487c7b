package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mudassarbajwa49/eRoyal-sub000/internal/models"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/services"
)

// UserHandler handles admin user management.
type UserHandler struct {
	userService services.IUserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService services.IUserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type registerUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
	HouseID  string `json:"house_id"`
}

// RegisterUser handles POST /v1/admin/users.
func (h *UserHandler) RegisterUser(c *gin.Context) {
	var req registerUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	user, err := h.userService.Register(c.Request.Context(),
		req.Name, req.Email, req.Phone, req.Password, models.Role(req.Role), req.HouseID)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			respondError(c, http.StatusConflict, "Email already registered")
			return
		}
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respondCreated(c, user)
}

// ListUsers handles GET /v1/admin/users?role=resident.
func (h *UserHandler) ListUsers(c *gin.Context) {
	role := models.Role(c.DefaultQuery("role", string(models.RoleResident)))
	if !role.Valid() {
		respondError(c, http.StatusBadRequest, "Invalid role filter")
		return
	}
	users, err := h.userService.ListByRole(c.Request.Context(), role)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to list users")
		return
	}
	respondOK(c, users)
}

// GetUserByID handles GET /v1/admin/users/:id.
func (h *UserHandler) GetUserByID(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user, err := h.userService.FindByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondError(c, http.StatusNotFound, "User not found")
			return
		}
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to retrieve user")
		return
	}
	respondOK(c, user)
}

// DeleteUser handles DELETE /v1/admin/users/:id.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.userService.DeleteUser(c.Request.Context(), userID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondError(c, http.StatusNotFound, "User not found")
			return
		}
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to delete user")
		return
	}
	respondMessage(c, "User deleted")
}
