package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"food-rescue-backend/internal/geo"
	"food-rescue-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultNotifyRadiusKm is how far from a new listing NGOs are alerted
const DefaultNotifyRadiusKm = 50.0

// ListingService implements the listing and request lifecycle
type ListingService struct {
	users    UserStore
	listings ListingStore
	requests RequestStore
	notifier *Notifier
	radiusKm float64
	now      func() time.Time
}

// NewListingService creates a new listing service
func NewListingService(
	users UserStore,
	listings ListingStore,
	requests RequestStore,
	notifier *Notifier,
	radiusKm float64,
) *ListingService {
	if radiusKm <= 0 {
		radiusKm = DefaultNotifyRadiusKm
	}
	return &ListingService{
		users:    users,
		listings: listings,
		requests: requests,
		notifier: notifier,
		radiusKm: radiusKm,
		now:      time.Now,
	}
}

// SetClock replaces the time source
func (s *ListingService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateListingInput holds the donor supplied fields of a listing
type CreateListingInput struct {
	Title         string          `json:"title" validate:"required,max=200"`
	Description   string          `json:"description" validate:"max=2000"`
	Quantity      string          `json:"quantity" validate:"required,max=100"`
	FoodType      models.FoodType `json:"food_type" validate:"required,oneof=veg non-veg both"`
	PickupAddress string          `json:"pickup_address" validate:"required,max=500"`
	ExpiryHours   int             `json:"expiry_hours" validate:"required,gt=0,lte=168"`
	ImageURL      *string         `json:"image_url,omitempty" validate:"omitempty,url"`
	Location      *geo.Point      `json:"location,omitempty"`
}

// ListingView is a listing decorated for a particular viewer
type ListingView struct {
	*models.Listing
	HoursRemaining int               `json:"hours_remaining"`
	DistanceKm     *float64          `json:"distance_km,omitempty"`
	Requests       []*models.Request `json:"requests,omitempty"`
}

// BrowseQuery filters what an NGO sees
type BrowseQuery struct {
	Query         string
	FoodType      models.FoodType
	MaxDistanceKm float64
	Limit         int
	Offset        int
}

func (s *ListingService) actor(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.Active {
		return nil, fmt.Errorf("account is deactivated: %w", models.ErrForbidden)
	}
	return user, nil
}

// CreateListing posts a new available listing for the donor
func (s *ListingService) CreateListing(ctx context.Context, donorID string, in CreateListingInput) (*models.Listing, error) {
	donor, err := s.actor(ctx, donorID)
	if err != nil {
		return nil, err
	}
	if !donor.Role.CanDonate() {
		return nil, fmt.Errorf("only donors can create listings: %w", models.ErrForbidden)
	}
	if in.ExpiryHours <= 0 {
		return nil, fmt.Errorf("expiry_hours must be positive: %w", models.ErrValidation)
	}
	if in.Location != nil && !in.Location.Valid() {
		return nil, fmt.Errorf("location out of range: %w", models.ErrValidation)
	}

	now := s.now().UTC()
	listing := &models.Listing{
		ID:            uuid.New().String(),
		DonorID:       donor.ID,
		Title:         in.Title,
		Description:   in.Description,
		Quantity:      in.Quantity,
		FoodType:      in.FoodType,
		PickupAddress: in.PickupAddress,
		ImageURL:      in.ImageURL,
		Location:      in.Location,
		Status:        models.ListingAvailable,
		ExpiresAt:     now.Add(time.Duration(in.ExpiryHours) * time.Hour),
		CreatedAt:     now,
	}

	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	if err := s.users.IncrementDonations(ctx, donor.ID); err != nil {
		log.Error().Err(err).Str("user_id", donor.ID).Msg("Failed to increment donations count")
	}

	log.Info().
		Str("listing_id", listing.ID).
		Str("donor_id", donor.ID).
		Time("expires_at", listing.ExpiresAt).
		Msg("Listing created")

	if listing.Location != nil {
		s.notifier.Dispatch(func(ctx context.Context) {
			s.notifyNearby(ctx, listing)
		})
	}

	return listing, nil
}

// notifyNearby alerts verified NGOs within the radius of the listing
func (s *ListingService) notifyNearby(ctx context.Context, listing *models.Listing) {
	ngos, err := s.users.ListNotifiable(ctx, models.RoleNGO)
	if err != nil {
		log.Error().Err(err).Str("listing_id", listing.ID).Msg("Failed to load NGOs for fan-out")
		return
	}

	sent := 0
	for _, ngo := range ngos {
		d := geo.Distance(listing.Location, ngo.Location)
		if d > s.radiusKm {
			continue
		}
		_, err := s.notifier.Notify(ctx, ngo.ID, models.NotificationNewListing,
			"New food available nearby",
			fmt.Sprintf("%s (%s) is available %.1f km away", listing.Title, listing.Quantity, d),
			map[string]interface{}{
				"listing_id":  listing.ID,
				"distance_km": math.Round(d*10) / 10,
			},
		)
		if err != nil {
			log.Error().Err(err).Str("user_id", ngo.ID).Msg("Failed to notify NGO")
			continue
		}
		sent++
	}

	log.Debug().Str("listing_id", listing.ID).Int("notified", sent).Msg("Listing fan-out finished")
}

// CreateRequest records a verified NGO's request for an available listing
func (s *ListingService) CreateRequest(ctx context.Context, ngoID, listingID string, message *string) (*models.Request, error) {
	ngo, err := s.actor(ctx, ngoID)
	if err != nil {
		return nil, err
	}
	if !ngo.Role.CanRequest() {
		return nil, fmt.Errorf("only NGOs can request pickups: %w", models.ErrForbidden)
	}
	if !ngo.Verified {
		return nil, fmt.Errorf("NGO is not verified: %w", models.ErrForbidden)
	}

	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}

	now := s.now().UTC()
	if listing.EffectiveStatus(now) != models.ListingAvailable {
		return nil, fmt.Errorf("listing not available: %w", models.ErrNotFound)
	}

	req := &models.Request{
		ID:          uuid.New().String(),
		ListingID:   listing.ID,
		RequesterID: ngo.ID,
		Message:     message,
		Status:      models.RequestPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.requests.CreateForAvailable(ctx, req, now); err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	log.Info().
		Str("request_id", req.ID).
		Str("listing_id", listing.ID).
		Str("ngo_id", ngo.ID).
		Msg("Pickup requested")

	s.notifier.NotifyAsync(listing.DonorID, models.NotificationNewRequest,
		"New pickup request",
		fmt.Sprintf("%s requested %q", displayName(ngo), listing.Title),
		map[string]interface{}{
			"listing_id": listing.ID,
			"request_id": req.ID,
		},
	)

	return req, nil
}

// ResolveRequest accepts or rejects a pending request. Resolving a request
// that is no longer pending, or accepting a second request for a listing,
// fails with ErrInvalidTransition.
func (s *ListingService) ResolveRequest(ctx context.Context, actorID, requestID string, decision models.Decision) (*models.Request, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}

	listing, err := s.listings.GetByID(ctx, req.ListingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}

	if listing.DonorID != actor.ID && !actor.Role.IsAdmin() {
		return nil, fmt.Errorf("can only manage requests for own listings: %w", models.ErrForbidden)
	}

	if req.Status.Terminal() {
		return nil, fmt.Errorf("request already %s: %w", req.Status, models.ErrInvalidTransition)
	}

	now := s.now().UTC()
	switch decision {
	case models.DecisionAccept:
		err = s.requests.Accept(ctx, req.ID, listing.ID, now)
	case models.DecisionReject:
		err = s.requests.Reject(ctx, req.ID, now)
	default:
		return nil, fmt.Errorf("unknown decision %q: %w", decision, models.ErrValidation)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to %s request: %w", decision, err)
	}

	req.Status = decision.Status()
	req.UpdatedAt = now

	log.Info().
		Str("request_id", req.ID).
		Str("listing_id", listing.ID).
		Str("status", string(req.Status)).
		Msg("Request resolved")

	payload := map[string]interface{}{
		"listing_id": listing.ID,
		"request_id": req.ID,
	}
	if decision == models.DecisionAccept {
		s.notifier.NotifyAsync(req.RequesterID, models.NotificationRequestAccepted,
			"Pickup request accepted",
			fmt.Sprintf("Your request for %q was accepted. Pickup at %s", listing.Title, listing.PickupAddress),
			payload,
		)
	} else {
		s.notifier.NotifyAsync(req.RequesterID, models.NotificationRequestRejected,
			"Pickup request declined",
			fmt.Sprintf("Your request for %q was declined", listing.Title),
			payload,
		)
	}

	return req, nil
}

// CompleteListing marks a listing picked up and credits the accepted NGO
func (s *ListingService) CompleteListing(ctx context.Context, actorID, listingID string) (*models.Listing, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}

	if listing.DonorID != actor.ID && !actor.Role.IsAdmin() {
		return nil, fmt.Errorf("can only manage own listings: %w", models.ErrForbidden)
	}

	now := s.now().UTC()
	if status := listing.EffectiveStatus(now); !status.CanTransitionTo(models.ListingPickedUp) {
		return nil, fmt.Errorf("listing is %s: %w", status, models.ErrInvalidTransition)
	}

	accepted, err := s.listings.Complete(ctx, listing.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to complete listing: %w", err)
	}
	listing.Status = models.ListingPickedUp
	listing.CompletedAt = &now

	log.Info().Str("listing_id", listing.ID).Msg("Pickup completed")

	if accepted == nil {
		return listing, nil
	}

	s.notifier.NotifyAsync(accepted.RequesterID, models.NotificationPickupCompleted,
		"Pickup completed",
		fmt.Sprintf("Pickup of %q has been marked complete. Thank you!", listing.Title),
		map[string]interface{}{
			"listing_id": listing.ID,
			"request_id": accepted.ID,
		},
	)

	return listing, nil
}

// GetListing returns a single listing and counts the view. The owner and
// admins also receive the listing's requests.
func (s *ListingService) GetListing(ctx context.Context, viewerID, listingID string) (*ListingView, error) {
	viewer, err := s.actor(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}

	if listing.DonorID != viewer.ID {
		if err := s.listings.IncrementViews(ctx, listing.ID); err != nil {
			log.Warn().Err(err).Str("listing_id", listing.ID).Msg("Failed to count view")
		} else {
			listing.ViewsCount++
		}
	}

	view := s.view(listing, viewer)
	if listing.DonorID == viewer.ID || viewer.Role.IsAdmin() {
		requests, err := s.requests.ListByListing(ctx, listing.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list requests: %w", err)
		}
		view.Requests = requests
	}
	return view, nil
}

// BrowseListings lists what the viewer may see: NGOs get available,
// unexpired listings ordered by distance; donors get their own listings;
// admins get everything.
func (s *ListingService) BrowseListings(ctx context.Context, viewerID string, q BrowseQuery) ([]*ListingView, error) {
	viewer, err := s.actor(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	filter := models.ListingFilter{
		FoodType: q.FoodType,
		Query:    strings.TrimSpace(q.Query),
	}

	switch viewer.Role {
	case models.RoleNGO:
		now := s.now().UTC()
		filter.Status = models.ListingAvailable
		filter.ActiveAt = &now
		if q.MaxDistanceKm <= 0 {
			filter.Limit = q.Limit
			filter.Offset = q.Offset
		}
	case models.RoleDonor:
		filter.DonorID = viewer.ID
		filter.Limit = q.Limit
		filter.Offset = q.Offset
	default:
		filter.Limit = q.Limit
		filter.Offset = q.Offset
	}

	listings, err := s.listings.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}

	views := make([]*ListingView, 0, len(listings))
	for _, l := range listings {
		v := s.view(l, viewer)
		if viewer.Role == models.RoleNGO && q.MaxDistanceKm > 0 {
			if v.DistanceKm == nil || *v.DistanceKm > q.MaxDistanceKm {
				continue
			}
		}
		views = append(views, v)
	}

	if viewer.Role == models.RoleNGO && viewer.Location != nil {
		sort.SliceStable(views, func(i, j int) bool {
			return distanceOrInf(views[i]) < distanceOrInf(views[j])
		})
	}

	// distance filtering happens after the query, so paginate here
	if viewer.Role == models.RoleNGO && q.MaxDistanceKm > 0 {
		if q.Offset >= len(views) {
			return []*ListingView{}, nil
		}
		views = views[q.Offset:]
		if len(views) > q.Limit {
			views = views[:q.Limit]
		}
	}

	return views, nil
}

func (s *ListingService) view(l *models.Listing, viewer *models.User) *ListingView {
	now := s.now().UTC()
	l.Status = l.EffectiveStatus(now)
	v := &ListingView{
		Listing:        l,
		HoursRemaining: l.HoursRemaining(now),
	}
	if d := geo.Distance(viewer.Location, l.Location); !math.IsInf(d, 1) {
		rounded := math.Round(d*100) / 100
		v.DistanceKm = &rounded
	}
	return v
}

func distanceOrInf(v *ListingView) float64 {
	if v.DistanceKm == nil {
		return math.Inf(1)
	}
	return *v.DistanceKm
}

func displayName(u *models.User) string {
	if u.Organization != nil && *u.Organization != "" {
		return *u.Organization
	}
	return u.Name
}
