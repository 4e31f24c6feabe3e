package handlers

import (
	"net/http"

	"food-rescue-backend/internal/middleware"
	"food-rescue-backend/internal/models"
	"food-rescue-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// ListingHandler handles listing and pickup request HTTP requests
type ListingHandler struct {
	listingService *services.ListingService
	imageService   *services.ImageService
}

// NewListingHandler creates a new listing handler. imageService may be nil
// when no bucket is configured.
func NewListingHandler(listingService *services.ListingService, imageService *services.ImageService) *ListingHandler {
	return &ListingHandler{
		listingService: listingService,
		imageService:   imageService,
	}
}

// PickupRequest is the body of POST /api/v1/listings/{id}/request
type PickupRequest struct {
	Message *string `json:"message,omitempty" validate:"omitempty,max=1000"`
}

// ActionRequest is the body of POST /api/v1/requests/{id}/action
type ActionRequest struct {
	Action string `json:"action" validate:"required"`
}

// CreateListing handles POST /api/v1/listings
func (h *ListingHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req services.CreateListingInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	listing, err := h.listingService.CreateListing(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		respondServiceError(w, err, "Failed to create listing")
		return
	}
	respondJSON(w, http.StatusCreated, listing)
}

// BrowseListings handles GET /api/v1/listings
func (h *ListingHandler) BrowseListings(w http.ResponseWriter, r *http.Request) {
	q := services.BrowseQuery{
		Query:         r.URL.Query().Get("q"),
		FoodType:      models.FoodType(r.URL.Query().Get("food_type")),
		MaxDistanceKm: queryFloat(r, "max_distance_km"),
		Limit:         queryInt(r, "limit", 50),
		Offset:        queryInt(r, "offset", 0),
	}
	if q.FoodType != "" && !q.FoodType.Valid() {
		respondError(w, "invalid food_type", http.StatusBadRequest)
		return
	}

	views, err := h.listingService.BrowseListings(r.Context(), middleware.GetUserID(r.Context()), q)
	if err != nil {
		respondServiceError(w, err, "Failed to list listings")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"listings": views,
		"count":    len(views),
	})
}

// GetListing handles GET /api/v1/listings/{id}
func (h *ListingHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	view, err := h.listingService.GetListing(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "Failed to get listing")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// RequestPickup handles POST /api/v1/listings/{id}/request
func (h *ListingHandler) RequestPickup(w http.ResponseWriter, r *http.Request) {
	var req PickupRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	created, err := h.listingService.CreateRequest(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), req.Message)
	if err != nil {
		respondServiceError(w, err, "Failed to request pickup")
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// CompleteListing handles POST /api/v1/listings/{id}/complete
func (h *ListingHandler) CompleteListing(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listingService.CompleteListing(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "Failed to complete listing")
		return
	}
	respondJSON(w, http.StatusOK, listing)
}

// ResolveRequest handles POST /api/v1/requests/{id}/action
func (h *ListingHandler) ResolveRequest(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	decision, err := models.ParseDecision(req.Action)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resolved, err := h.listingService.ResolveRequest(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), decision)
	if err != nil {
		respondServiceError(w, err, "Failed to resolve request")
		return
	}
	respondJSON(w, http.StatusOK, resolved)
}

// UploadImage handles POST /api/v1/listings/images/upload
func (h *ListingHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if h.imageService == nil {
		respondError(w, "Image uploads are not configured", http.StatusServiceUnavailable)
		return
	}

	var req services.UploadRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	userID := middleware.GetUserID(r.Context())
	resp, err := h.imageService.PresignUpload(r.Context(), userID, req)
	if err != nil {
		respondServiceError(w, err, "Failed to generate upload URL")
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("image_url", resp.ImageURL).
		Msg("Upload URL generated")

	respondJSON(w, http.StatusOK, resp)
}
