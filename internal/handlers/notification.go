package handlers

import (
	"net/http"

	"food-rescue-backend/internal/middleware"
	"food-rescue-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// NotificationHandler serves the notification inbox and dashboard stats
type NotificationHandler struct {
	notifier     *services.Notifier
	statsService *services.StatsService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifier *services.Notifier, statsService *services.StatsService) *NotificationHandler {
	return &NotificationHandler{
		notifier:     notifier,
		statsService: statsService,
	}
}

// ListNotifications handles GET /api/v1/notifications
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	unreadOnly := r.URL.Query().Get("unread") == "true"
	notifications, err := h.notifier.List(r.Context(), middleware.GetUserID(r.Context()), unreadOnly, queryInt(r, "limit", 50))
	if err != nil {
		respondServiceError(w, err, "Failed to list notifications")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"count":         len(notifications),
	})
}

// MarkRead handles POST /api/v1/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notifier.MarkRead(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err, "Failed to mark notification read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DashboardStats handles GET /api/v1/dashboard/stats
func (h *NotificationHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.ForUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, err, "Failed to load stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
