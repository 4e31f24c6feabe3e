package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"food-rescue-backend/internal/models"
)

// RequestRepository stores pickup requests in memory
type RequestRepository struct {
	s *state
}

// CreateForAvailable inserts a request if the listing is still available
func (r *RequestRepository) CreateForAvailable(ctx context.Context, req *models.Request, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l, ok := r.s.listings[req.ListingID]
	if !ok || l.Status != models.ListingAvailable || !l.ExpiresAt.After(now) {
		return fmt.Errorf("listing not available: %w", models.ErrNotFound)
	}
	for _, existing := range r.s.requests {
		if existing.ListingID == req.ListingID && existing.RequesterID == req.RequesterID {
			return fmt.Errorf("listing already requested by this user: %w", models.ErrDuplicate)
		}
	}

	l.RequestsCount++
	r.s.requests[req.ID] = copyRequest(req)
	return nil
}

// GetByID retrieves a request by ID
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	req, ok := r.s.requests[id]
	if !ok {
		return nil, fmt.Errorf("request not found: %w", models.ErrNotFound)
	}
	return copyRequest(req), nil
}

// ListByListing retrieves all requests for a listing, oldest first
func (r *RequestRepository) ListByListing(ctx context.Context, listingID string) ([]*models.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*models.Request
	for _, req := range r.s.requests {
		if req.ListingID == listingID {
			out = append(out, copyRequest(req))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Accept moves the listing to requested, accepts the request and rejects
// the remaining pending requests under one lock
func (r *RequestRepository) Accept(ctx context.Context, id, listingID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l, ok := r.s.listings[listingID]
	if !ok || l.Status != models.ListingAvailable || !l.ExpiresAt.After(at) {
		return fmt.Errorf("listing is no longer available: %w", models.ErrInvalidTransition)
	}
	req, ok := r.s.requests[id]
	if !ok || req.ListingID != listingID || req.Status != models.RequestPending {
		return fmt.Errorf("request is not pending: %w", models.ErrInvalidTransition)
	}

	l.Status = models.ListingRequested
	req.Status = models.RequestAccepted
	req.UpdatedAt = at
	for _, other := range r.s.requests {
		if other.ListingID == listingID && other.ID != id && other.Status == models.RequestPending {
			other.Status = models.RequestRejected
			other.UpdatedAt = at
		}
	}
	return nil
}

// Reject moves a pending request to rejected
func (r *RequestRepository) Reject(ctx context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	req, ok := r.s.requests[id]
	if !ok || req.Status != models.RequestPending {
		return fmt.Errorf("request is not pending: %w", models.ErrInvalidTransition)
	}
	req.Status = models.RequestRejected
	req.UpdatedAt = at
	return nil
}

// CountByRequester groups an NGO's requests by status
func (r *RequestRepository) CountByRequester(ctx context.Context, requesterID string) (*models.RequestCounts, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	counts := &models.RequestCounts{}
	for _, req := range r.s.requests {
		if req.RequesterID != requesterID {
			continue
		}
		counts.Total++
		switch req.Status {
		case models.RequestPending:
			counts.Pending++
		case models.RequestAccepted:
			counts.Accepted++
		case models.RequestRejected:
			counts.Rejected++
		}
	}
	return counts, nil
}
