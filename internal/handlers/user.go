package handlers

import (
	"net/http"

	"food-rescue-backend/internal/geo"
	"food-rescue-backend/internal/middleware"
	"food-rescue-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// UserHandler handles auth and account HTTP requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// LoginRequest is the body of POST /api/v1/auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LocationRequest is the body of PUT /api/v1/me/location
type LocationRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
}

// PushTokenRequest is the body of PUT /api/v1/me/push-token. An empty token
// clears it.
type PushTokenRequest struct {
	PushToken string `json:"push_token" validate:"max=200"`
}

// Register handles POST /api/v1/auth/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.userService.Register(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "Failed to register user")
		return
	}

	log.Info().
		Str("user_id", result.User.ID).
		Str("role", string(result.User.Role)).
		Msg("User registered")

	respondJSON(w, http.StatusCreated, result)
}

// Login handles POST /api/v1/auth/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, err, "Failed to log in")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Me handles GET /api/v1/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, err, "Failed to get user")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// UpdateLocation handles PUT /api/v1/me/location
func (h *UserHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req LocationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	userID := middleware.GetUserID(r.Context())
	loc := &geo.Point{Lat: *req.Lat, Lng: *req.Lng}
	if err := h.userService.UpdateLocation(r.Context(), userID, loc); err != nil {
		respondServiceError(w, err, "Failed to update location")
		return
	}
	respondJSON(w, http.StatusOK, loc)
}

// UpdatePushToken handles PUT /api/v1/me/push-token
func (h *UserHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	var req PushTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var token *string
	if req.PushToken != "" {
		token = &req.PushToken
	}
	if err := h.userService.UpdatePushToken(r.Context(), middleware.GetUserID(r.Context()), token); err != nil {
		respondServiceError(w, err, "Failed to update push token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VerifyUser handles POST /api/v1/admin/users/{id}/verify
func (h *UserHandler) VerifyUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if err := h.userService.SetVerified(r.Context(), middleware.GetUserID(r.Context()), userID, true); err != nil {
		respondServiceError(w, err, "Failed to verify user")
		return
	}
	log.Info().Str("user_id", userID).Msg("User verified")
	respondJSON(w, http.StatusOK, map[string]interface{}{"id": userID, "verified": true})
}

// DeactivateUser handles POST /api/v1/admin/users/{id}/deactivate
func (h *UserHandler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if err := h.userService.SetActive(r.Context(), middleware.GetUserID(r.Context()), userID, false); err != nil {
		respondServiceError(w, err, "Failed to deactivate user")
		return
	}
	log.Info().Str("user_id", userID).Msg("User deactivated")
	respondJSON(w, http.StatusOK, map[string]interface{}{"id": userID, "active": false})
}
