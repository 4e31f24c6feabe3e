package handlers

import (
	"net/http"

	"food-rescue-backend/internal/middleware"
	"food-rescue-backend/internal/models"
	"food-rescue-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterDeps are the services the HTTP surface is built from
type RouterDeps struct {
	Users         *services.UserService
	Listings      *services.ListingService
	Images        *services.ImageService
	Notifier      *services.Notifier
	Stats         *services.StatsService
	Registry      *services.ConnRegistry
	DB            Pinger
	AuthRateLimit func(http.Handler) http.Handler
}

// NewRouter wires every route onto a chi router
func NewRouter(d RouterDeps) http.Handler {
	userHandler := NewUserHandler(d.Users)
	listingHandler := NewListingHandler(d.Listings, d.Images)
	notificationHandler := NewNotificationHandler(d.Notifier, d.Stats)
	wsHandler := NewWebSocketHandler(d.Registry, d.Users)

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/api/health", Health(d.DB))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if d.AuthRateLimit != nil {
				r.Use(d.AuthRateLimit)
			}
			r.Post("/register", userHandler.Register)
			r.Post("/login", userHandler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(d.Users))

			r.Get("/me", userHandler.Me)
			r.Put("/me/location", userHandler.UpdateLocation)
			r.Put("/me/push-token", userHandler.UpdatePushToken)

			r.Route("/listings", func(r chi.Router) {
				r.Get("/", listingHandler.BrowseListings)
				r.With(middleware.RequireRole(models.RoleDonor, models.RoleAdmin)).Post("/", listingHandler.CreateListing)
				r.With(middleware.RequireRole(models.RoleDonor, models.RoleAdmin)).Post("/images/upload", listingHandler.UploadImage)
				r.Get("/{id}", listingHandler.GetListing)
				r.With(middleware.RequireRole(models.RoleNGO)).Post("/{id}/request", listingHandler.RequestPickup)
				r.Post("/{id}/complete", listingHandler.CompleteListing)
			})

			r.Post("/requests/{id}/action", listingHandler.ResolveRequest)

			r.Get("/notifications", notificationHandler.ListNotifications)
			r.Post("/notifications/{id}/read", notificationHandler.MarkRead)

			r.Get("/dashboard/stats", notificationHandler.DashboardStats)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))
				r.Post("/users/{id}/verify", userHandler.VerifyUser)
				r.Post("/users/{id}/deactivate", userHandler.DeactivateUser)
			})
		})
	})

	r.Get("/ws", wsHandler.HandleWebSocket)

	return r
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
