package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"food-rescue-backend/internal/models"
)

// ListingRepository stores listings in memory
type ListingRepository struct {
	s *state
}

// Create creates a new listing
func (r *ListingRepository) Create(ctx context.Context, l *models.Listing) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.listings[l.ID]; ok {
		return fmt.Errorf("listing %s exists: %w", l.ID, models.ErrConflict)
	}
	r.s.listings[l.ID] = copyListing(l)
	return nil
}

// GetByID retrieves a listing by ID
func (r *ListingRepository) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l, ok := r.s.listings[id]
	if !ok {
		return nil, fmt.Errorf("listing not found: %w", models.ErrNotFound)
	}
	return copyListing(l), nil
}

func matches(l *models.Listing, f models.ListingFilter) bool {
	if f.DonorID != "" && l.DonorID != f.DonorID {
		return false
	}
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	if f.FoodType != "" && l.FoodType != f.FoodType {
		return false
	}
	if f.ActiveAt != nil && !l.ExpiresAt.After(*f.ActiveAt) {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(l.Title), q) &&
			!strings.Contains(strings.ToLower(l.Description), q) &&
			!strings.Contains(strings.ToLower(l.PickupAddress), q) {
			return false
		}
	}
	return true
}

// List retrieves listings matching the filter, newest first
func (r *ListingRepository) List(ctx context.Context, f models.ListingFilter) ([]*models.Listing, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*models.Listing
	for _, l := range r.s.listings {
		if matches(l, f) {
			out = append(out, copyListing(l))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if f.Limit > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
		if len(out) > f.Limit {
			out = out[:f.Limit]
		}
	}
	return out, nil
}

// IncrementViews bumps the listing's view counter
func (r *ListingRepository) IncrementViews(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l, ok := r.s.listings[id]
	if !ok {
		return fmt.Errorf("listing not found: %w", models.ErrNotFound)
	}
	l.ViewsCount++
	return nil
}

// Complete marks a requested or still-live available listing as picked up.
// Pending requests are rejected and the accepted requester, if any, is
// credited with a pickup. Nothing changes unless every step succeeds.
func (r *ListingRepository) Complete(ctx context.Context, id string, at time.Time) (*models.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l, ok := r.s.listings[id]
	if !ok || l.EffectiveStatus(at) == models.ListingExpired || !l.Status.CanTransitionTo(models.ListingPickedUp) {
		return nil, fmt.Errorf("listing cannot be completed: %w", models.ErrInvalidTransition)
	}

	var accepted *models.Request
	var pending []*models.Request
	for _, req := range r.s.requests {
		if req.ListingID != id {
			continue
		}
		switch req.Status {
		case models.RequestAccepted:
			accepted = req
		case models.RequestPending:
			pending = append(pending, req)
		}
	}

	var ngo *models.User
	if accepted != nil {
		if ngo, ok = r.s.users[accepted.RequesterID]; !ok {
			return nil, fmt.Errorf("requester %s not found: %w", accepted.RequesterID, models.ErrNotFound)
		}
	}

	l.Status = models.ListingPickedUp
	l.CompletedAt = &at
	for _, req := range pending {
		req.Status = models.RequestRejected
		req.UpdatedAt = at
	}
	if accepted == nil {
		return nil, nil
	}
	ngo.PickupsCount++
	return copyRequest(accepted), nil
}

// ExpireBefore expires all available listings past their expiry
func (r *ListingRepository) ExpireBefore(ctx context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, l := range r.s.listings {
		if l.Status == models.ListingAvailable && !l.ExpiresAt.After(now) {
			l.Status = models.ListingExpired
			n++
		}
	}
	return n, nil
}

// CountByDonor groups a donor's listings by status
func (r *ListingRepository) CountByDonor(ctx context.Context, donorID string) (*models.ListingCounts, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	counts := &models.ListingCounts{}
	for _, l := range r.s.listings {
		if l.DonorID != donorID {
			continue
		}
		counts.Total++
		switch l.Status {
		case models.ListingAvailable:
			counts.Available++
		case models.ListingRequested:
			counts.Requested++
		case models.ListingPickedUp:
			counts.PickedUp++
		case models.ListingExpired:
			counts.Expired++
		}
	}
	return counts, nil
}
