package services

import (
	"context"
	"time"

	"food-rescue-backend/internal/geo"
	"food-rescue-backend/internal/models"
)

// UserStore persists accounts
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// ListNotifiable returns active, verified users of the role that have a location
	ListNotifiable(ctx context.Context, role models.Role) ([]*models.User, error)
	IncrementDonations(ctx context.Context, id string) error
	UpdateLocation(ctx context.Context, id string, loc *geo.Point) error
	UpdatePushToken(ctx context.Context, id string, token *string) error
	SetVerified(ctx context.Context, id string, verified bool) error
	SetActive(ctx context.Context, id string, active bool) error
}

// ListingStore persists listings. Status changes are conditional updates
// so that concurrent writers cannot move a listing backwards.
type ListingStore interface {
	Create(ctx context.Context, listing *models.Listing) error
	GetByID(ctx context.Context, id string) (*models.Listing, error)
	List(ctx context.Context, filter models.ListingFilter) ([]*models.Listing, error)
	IncrementViews(ctx context.Context, id string) error
	// Complete moves a requested listing, or an available one that has not
	// expired at at, to picked_up. In the same unit it rejects the listing's
	// pending requests and credits the accepted requester with a pickup. It
	// returns the accepted request, or nil when there was none.
	Complete(ctx context.Context, id string, at time.Time) (*models.Request, error)
	// ExpireBefore marks every available listing with expires_at <= now as expired
	ExpireBefore(ctx context.Context, now time.Time) (int64, error)
	CountByDonor(ctx context.Context, donorID string) (*models.ListingCounts, error)
}

// RequestStore persists pickup requests
type RequestStore interface {
	// CreateForAvailable inserts the request and bumps the listing's request
	// counter only while the listing is still available and unexpired at now.
	CreateForAvailable(ctx context.Context, req *models.Request, now time.Time) error
	GetByID(ctx context.Context, id string) (*models.Request, error)
	ListByListing(ctx context.Context, listingID string) ([]*models.Request, error)
	// Accept atomically accepts a pending request, marks its listing requested
	// and rejects every other pending request of that listing.
	Accept(ctx context.Context, id, listingID string, at time.Time) error
	Reject(ctx context.Context, id string, at time.Time) error
	CountByRequester(ctx context.Context, requesterID string) (*models.RequestCounts, error)
}

// NotificationStore persists notifications
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}
