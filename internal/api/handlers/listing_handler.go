package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mudassarbajwa49/eRoyal-sub000/internal/services"
	"github.com/mudassarbajwa49/eRoyal-sub000/internal/storage"
)

// ListingHandler handles the residents' marketplace.
type ListingHandler struct {
	listingService services.IListingService
	userService    services.IUserService
	s3Storage      storage.IS3Storage
}

// NewListingHandler creates a new ListingHandler.
func NewListingHandler(listingService services.IListingService, userService services.IUserService, s3Storage storage.IS3Storage) *ListingHandler {
	return &ListingHandler{
		listingService: listingService,
		userService:    userService,
		s3Storage:      s3Storage,
	}
}

type createListingRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// CreateListing handles POST /v1/listings.
func (h *ListingHandler) CreateListing(c *gin.Context) {
	sellerID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Listing title is required")
		return
	}

	seller, err := h.userService.FindByID(c.Request.Context(), sellerID)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unknown user")
		return
	}

	listing, err := h.listingService.CreateListing(c.Request.Context(),
		seller, req.Title, req.Description, req.Price)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respondCreated(c, listing)
}

// ListActive handles GET /v1/listings?limit=N.
func (h *ListingHandler) ListActive(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	listings, err := h.listingService.ListActive(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to retrieve listings")
		return
	}
	respondOK(c, listings)
}

// GetListingByID handles GET /v1/listings/:id.
func (h *ListingHandler) GetListingByID(c *gin.Context) {
	listingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	listing, err := h.listingService.FindListingByID(c.Request.Context(), listingID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondError(c, http.StatusNotFound, "Listing not found")
			return
		}
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to retrieve listing")
		return
	}
	respondOK(c, listing)
}

// MyListings handles GET /v1/listings/mine.
func (h *ListingHandler) MyListings(c *gin.Context) {
	sellerID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	listings, err := h.listingService.ListBySeller(c.Request.Context(), sellerID)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to retrieve listings")
		return
	}
	respondOK(c, listings)
}

// UpdateListing handles PATCH /v1/listings/:id. Only the seller may edit.
func (h *ListingHandler) UpdateListing(c *gin.Context) {
	listingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	sellerID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	listing, err := h.listingService.UpdateListing(c.Request.Context(), listingID, sellerID, updates)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondError(c, http.StatusNotFound, "Listing not found")
			return
		}
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respondOK(c, listing)
}

type presignImageRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// PresignImageUpload handles POST /v1/listings/:id/image-url.
func (h *ListingHandler) PresignImageUpload(c *gin.Context) {
	listingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	sellerID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	var req presignImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "filename and content_type are required")
		return
	}

	url, key, err := h.s3Storage.PresignListingImageUpload(c.Request.Context(),
		sellerID.Hex(), listingID.Hex(), req.Filename, req.ContentType)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Failed to create upload URL")
		return
	}
	respondOK(c, gin.H{"upload_url": url, "image_key": key})
}

type addImageRequest struct {
	ImageKey string `json:"image_key" binding:"required"`
}

// AddImage handles POST /v1/listings/:id/images after the client uploaded.
func (h *ListingHandler) AddImage(c *gin.Context) {
	listingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	sellerID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	var req addImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "image_key is required")
		return
	}

	if err := h.listingService.AddImageToListing(c.Request.Context(), listingID, sellerID, req.ImageKey); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondError(c, http.StatusNotFound, "Listing not found")
			return
		}
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respondMessage(c, "Image added")
}

// MarkSold handles POST /v1/listings/:id/sold.
func (h *ListingHandler) MarkSold(c *gin.Context) {
	listingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	sellerID, _ := currentUserID(c)
	if err := h.listingService.MarkSold(c.Request.Context(), listingID, sellerID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondError(c, http.StatusNotFound, "Listing not found")
			return
		}
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respondMessage(c, "Listing marked as sold")
}

// DeleteListing handles DELETE /v1/listings/:id.
func (h *ListingHandler) DeleteListing(c *gin.Context) {
	listingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	sellerID, _ := currentUserID(c)
	if err := h.listingService.DeleteListing(c.Request.Context(), listingID, sellerID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondError(c, http.StatusNotFound, "Listing not found")
			return
		}
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respondMessage(c, "Listing deleted")
}
