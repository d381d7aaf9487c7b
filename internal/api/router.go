package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mudassarbajwa49/eRoyal-sub000/internal/api/handlers"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/api/middleware"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/cache"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/config"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/models"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/services"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/storage"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, taskClient handlers.IAsynqClient) *gin.Engine {
	// Initialize services needed by API handlers here.
	qc := cache.NewQueryCache(rdb, cfg.QueryCacheTTL)
	userService := services.NewUserService(db, cfg)
	settingsService := services.NewSettingsService(db, cfg, qc)
	billService := services.NewBillService(db, cfg, settingsService, userService, qc)
	complaintService := services.NewComplaintService(db, cfg, qc)
	vehicleService := services.NewVehicleService(db)
	listingService := services.NewListingService(db)
	announcementService := services.NewAnnouncementService(db, qc)
	houseService := services.NewHouseService(db)

	s3StorageService, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatalf("CRITICAL: Failed to initialize S3 storage for API: %v", err)
	}

	r := gin.Default()

	// Apply global middleware first (order matters)
	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)
	r.Use(middleware.CORSMiddleware())
	r.Use(rateLimiter.Limit())

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(cfg, userService)
	userHandler := handlers.NewUserHandler(userService)
	billHandler := handlers.NewBillHandler(billService, s3StorageService, taskClient)
	complaintHandler := handlers.NewComplaintHandler(complaintService, userService)
	vehicleHandler := handlers.NewVehicleHandler(vehicleService)
	listingHandler := handlers.NewListingHandler(listingService, userService, s3StorageService)
	announcementHandler := handlers.NewAnnouncementHandler(announcementService, userService)
	settingsHandler := handlers.NewSettingsHandler(settingsService)
	houseHandler := handlers.NewHouseHandler(houseService)

	v1 := r.Group("/v1")
	{
		// Public routes
		v1.POST("/auth/login", authHandler.Login)
		v1.GET("/config", settingsHandler.GetPublicConfig)
		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Authenticated routes (any role)
		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.GET("/me", authHandler.Me)
			authRequired.PATCH("/me", authHandler.UpdateProfile)
			authRequired.GET("/announcements", announcementHandler.List)

			// Marketplace is open to all roles for browsing; sellers are
			// checked per operation by ownership filters.
			authRequired.GET("/listings", listingHandler.ListActive)
			authRequired.GET("/listings/mine", listingHandler.MyListings)
			authRequired.GET("/listings/:id", listingHandler.GetListingByID)
			authRequired.POST("/listings", listingHandler.CreateListing)
			authRequired.PATCH("/listings/:id", listingHandler.UpdateListing)
			authRequired.POST("/listings/:id/image-url", listingHandler.PresignImageUpload)
			authRequired.POST("/listings/:id/images", listingHandler.AddImage)
			authRequired.POST("/listings/:id/sold", listingHandler.MarkSold)
			authRequired.DELETE("/listings/:id", listingHandler.DeleteListing)
		}

		// Resident routes
		residentRequired := v1.Group("/")
		residentRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.RoleMiddleware(models.RoleResident))
		{
			residentRequired.GET("/bills", billHandler.MyBills)
			residentRequired.POST("/bills/:id/proof-url", billHandler.PresignProofUpload)
			residentRequired.POST("/bills/:id/proof", billHandler.SubmitPaymentProof)
			residentRequired.POST("/complaints", complaintHandler.CreateComplaint)
			residentRequired.GET("/complaints", complaintHandler.MyComplaints)
		}

		// Guard routes (admins may operate the gate too)
		gateRequired := v1.Group("/gate")
		gateRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.RoleMiddleware(models.RoleGuard, models.RoleAdmin))
		{
			gateRequired.POST("/vehicles", vehicleHandler.LogMovement)
			gateRequired.GET("/vehicles", vehicleHandler.ListLogs)
		}

		// Admin routes
		adminRequired := v1.Group("/admin")
		adminRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware())
		{
			adminRequired.POST("/users", userHandler.RegisterUser)
			adminRequired.GET("/users", userHandler.ListUsers)
			adminRequired.GET("/users/:id", userHandler.GetUserByID)
			adminRequired.DELETE("/users/:id", userHandler.DeleteUser)

			adminRequired.POST("/bills/generate", billHandler.GenerateMonthlyBills)
			adminRequired.POST("/bills", billHandler.GenerateSingleBill)
			adminRequired.GET("/bills", billHandler.GetAllBills)
			adminRequired.POST("/bills/:id/send", billHandler.SendBill)
			adminRequired.POST("/bills/:id/verify", billHandler.VerifyPayment)
			adminRequired.POST("/bills/:id/reject", billHandler.RejectPayment)
			adminRequired.POST("/bills/:id/archive", billHandler.ArchiveBill)

			adminRequired.GET("/complaints", complaintHandler.ListAll)
			adminRequired.PATCH("/complaints/:id/status", complaintHandler.UpdateStatus)
			adminRequired.POST("/complaints/:id/resolve", complaintHandler.Resolve)

			adminRequired.POST("/announcements", announcementHandler.Publish)
			adminRequired.DELETE("/announcements/:id", announcementHandler.Unpublish)

			adminRequired.PUT("/settings", settingsHandler.SetSetting)
			adminRequired.POST("/houses", houseHandler.AddHouse)
			adminRequired.GET("/houses", houseHandler.ListHouses)
			adminRequired.PATCH("/houses/:label", houseHandler.SetOccupied)
		}
	}

	return r
}

// SetupServiceRouter configures and returns the service Gin engine used by
// operators and end-to-end tests. Requires Redis for the getTestEmail method.
func SetupServiceRouter(cfg *config.Config, rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			fmt.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
				fmt.Println("Shutdown signal sent successfully.")
			default:
				fmt.Println("Shutdown channel already signaled or blocked.")
			}
		case "getTestEmail":
			var args []string // Expect ["notification_kind", "email"]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [kind, email]"})
				return
			}
			kind := args[0]
			emailAddr := args[1]
			redisKey := fmt.Sprintf("mockemail:%s:%s", emailAddr, kind)

			// Poll Redis briefly for the key
			var emailJsonData string
			var getErr error
			found := false
			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()
			for i := 0; i < 10; i++ { // Poll up to ~2 seconds
				emailJsonData, getErr = rdb.Get(ctx, redisKey).Result()
				if getErr == nil {
					found = true
					rdb.Del(ctx, redisKey) // Delete after fetching
					break
				}
				if getErr != redis.Nil {
					log.Printf("Service API: Error getting key %s from Redis: %v", redisKey, getErr)
					c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
					return
				}
				time.Sleep(200 * time.Millisecond)
			}

			if !found {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found in Redis for key %s", redisKey)})
				return
			}

			var emailData map[string]interface{}
			if err := json.Unmarshal([]byte(emailJsonData), &emailData); err != nil {
				log.Printf("Service API: Error unmarshalling email data from key %s: %v", redisKey, err)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
				return
			}

			c.JSON(http.StatusOK, gin.H{"success": true, "data": emailData})

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
