package models

import (
	"encoding/json"
	"time"

	"food-rescue-backend/internal/geo"
)

// User represents a registered donor, NGO or administrator
type User struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"`
	Role           Role       `json:"role"`
	Phone          *string    `json:"phone,omitempty"`
	Address        *string    `json:"address,omitempty"`
	Organization   *string    `json:"organization,omitempty"`
	Verified       bool       `json:"verified"`
	Active         bool       `json:"active"`
	Location       *geo.Point `json:"location,omitempty"`
	PushToken      *string    `json:"push_token,omitempty"`
	DonationsCount int        `json:"donations_count"`
	PickupsCount   int        `json:"pickups_count"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Listing represents surplus food offered by a donor
type Listing struct {
	ID            string        `json:"id"`
	DonorID       string        `json:"donor_id"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Quantity      string        `json:"quantity"`
	FoodType      FoodType      `json:"food_type"`
	PickupAddress string        `json:"pickup_address"`
	ImageURL      *string       `json:"image_url,omitempty"`
	Location      *geo.Point    `json:"location,omitempty"`
	Status        ListingStatus `json:"status"`
	ExpiresAt     time.Time     `json:"expires_at"`
	RequestsCount int           `json:"requests_count"`
	ViewsCount    int           `json:"views_count"`
	CreatedAt     time.Time     `json:"created_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
}

// EffectiveStatus reports the status as seen at now: an available listing
// past its expiry is expired even before the sweep has persisted it.
func (l *Listing) EffectiveStatus(now time.Time) ListingStatus {
	if l.Status == ListingAvailable && !now.Before(l.ExpiresAt) {
		return ListingExpired
	}
	return l.Status
}

// HoursRemaining returns whole hours until expiry, never negative
func (l *Listing) HoursRemaining(now time.Time) int {
	d := l.ExpiresAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(d / time.Hour)
}

// Request represents an NGO's pickup request for a listing
type Request struct {
	ID          string        `json:"id"`
	ListingID   string        `json:"listing_id"`
	RequesterID string        `json:"requester_id"`
	Message     *string       `json:"message,omitempty"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Notification is a persisted message addressed to one user
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Payload   json.RawMessage  `json:"payload,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

// NotificationType tags a notification
type NotificationType string

const (
	NotificationNewListing      NotificationType = "new_listing"
	NotificationNewRequest      NotificationType = "new_request"
	NotificationRequestAccepted NotificationType = "request_accepted"
	NotificationRequestRejected NotificationType = "request_rejected"
	NotificationPickupCompleted NotificationType = "pickup_completed"
)

// ListingFilter narrows listing searches
type ListingFilter struct {
	DonorID  string
	Status   ListingStatus
	FoodType FoodType
	Query    string
	ActiveAt *time.Time
	Limit    int
	Offset   int
}

// ListingCounts aggregates a donor's listings by status
type ListingCounts struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Requested int `json:"requested"`
	PickedUp  int `json:"picked_up"`
	Expired   int `json:"expired"`
}

// RequestCounts aggregates an NGO's requests by status
type RequestCounts struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}
