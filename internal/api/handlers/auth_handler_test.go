package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mudassarbajwa49/eRoyal-sub000/internal/api/handlers"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/config"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/models"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/services"
)

func testConfig() *config.Config {
	return &config.Config{
		JwtSecret: "test-secret",
		JwtTTL:    time.Hour,
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userSvc := new(MockUserService)
	handler := handlers.NewAuthHandler(testConfig(), userSvc)
	r := gin.New()
	r.POST("/v1/auth/login", handler.Login)

	user := &models.User{Name: "Admin", Email: "admin@eroyal.example.com", Role: models.RoleAdmin}
	user.ID = primitive.NewObjectID()
	userSvc.On("Authenticate", mock.Anything, "admin@eroyal.example.com", "hunter22").Return(user, nil)

	w := postJSON(r, "/v1/auth/login", gin.H{
		"email":    "admin@eroyal.example.com",
		"password": "hunter22",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Token string      `json:"token"`
			User  models.User `json:"user"`
		} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Data.Token)
	assert.Equal(t, "Admin", resp.Data.User.Name)
	userSvc.AssertExpectations(t)
}

func TestAuthHandler_Login_BadCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userSvc := new(MockUserService)
	handler := handlers.NewAuthHandler(testConfig(), userSvc)
	r := gin.New()
	r.POST("/v1/auth/login", handler.Login)

	userSvc.On("Authenticate", mock.Anything, "admin@eroyal.example.com", "wrong").
		Return(nil, services.ErrInvalidCredentials)

	w := postJSON(r, "/v1/auth/login", gin.H{
		"email":    "admin@eroyal.example.com",
		"password": "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	userSvc.AssertExpectations(t)
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userSvc := new(MockUserService)
	handler := handlers.NewAuthHandler(testConfig(), userSvc)
	r := gin.New()
	r.POST("/v1/auth/login", handler.Login)

	w := postJSON(r, "/v1/auth/login", gin.H{"email": "admin@eroyal.example.com"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	userSvc.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthHandler_Me(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userID := primitive.NewObjectID()
	userSvc := new(MockUserService)
	handler := handlers.NewAuthHandler(testConfig(), userSvc)
	r := gin.New()
	r.Use(authAs(userID, models.RoleResident))
	r.GET("/v1/me", handler.Me)

	user := &models.User{Name: "Asif", Role: models.RoleResident, HouseID: "B-12"}
	user.ID = userID
	userSvc.On("FindByID", mock.Anything, userID).Return(user, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/me", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	userSvc.AssertExpectations(t)
}
