package services

import (
	"context"
	"fmt"

	"food-rescue-backend/internal/models"
)

// DonorStats summarises a donor's activity
type DonorStats struct {
	Role             models.Role `json:"role"`
	TotalListings    int         `json:"total_listings"`
	ActiveListings   int         `json:"active_listings"`
	CompletedPickups int         `json:"completed_pickups"`
	ExpiredListings  int         `json:"expired_listings"`
	DonationsCount   int         `json:"donations_count"`
}

// NGOStats summarises an NGO's activity
type NGOStats struct {
	Role             models.Role `json:"role"`
	TotalRequests    int         `json:"total_requests"`
	PendingRequests  int         `json:"pending_requests"`
	AcceptedRequests int         `json:"accepted_requests"`
	CompletedPickups int         `json:"completed_pickups"`
	Verified         bool        `json:"verified"`
}

// StatsService builds per-role dashboard figures
type StatsService struct {
	users    UserStore
	listings ListingStore
	requests RequestStore
	registry *ConnRegistry
}

// NewStatsService creates a new stats service
func NewStatsService(users UserStore, listings ListingStore, requests RequestStore, registry *ConnRegistry) *StatsService {
	return &StatsService{
		users:    users,
		listings: listings,
		requests: requests,
		registry: registry,
	}
}

// AdminStats adds live connection figures to the donor view, since admins
// can post listings too.
type AdminStats struct {
	DonorStats
	ConnectedUsers int `json:"connected_users"`
}

// ForUser returns the stats variant matching the user's role
func (s *StatsService) ForUser(ctx context.Context, userID string) (interface{}, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	switch user.Role {
	case models.RoleNGO:
		counts, err := s.requests.CountByRequester(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count requests: %w", err)
		}
		return &NGOStats{
			Role:             user.Role,
			TotalRequests:    counts.Total,
			PendingRequests:  counts.Pending,
			AcceptedRequests: counts.Accepted,
			CompletedPickups: user.PickupsCount,
			Verified:         user.Verified,
		}, nil
	case models.RoleDonor, models.RoleAdmin:
		counts, err := s.listings.CountByDonor(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count listings: %w", err)
		}
		donor := DonorStats{
			Role:             user.Role,
			TotalListings:    counts.Total,
			ActiveListings:   counts.Available + counts.Requested,
			CompletedPickups: counts.PickedUp,
			ExpiredListings:  counts.Expired,
			DonationsCount:   user.DonationsCount,
		}
		if user.Role == models.RoleAdmin {
			return &AdminStats{DonorStats: donor, ConnectedUsers: s.registry.Count()}, nil
		}
		return &donor, nil
	}
	return nil, fmt.Errorf("unknown role %q: %w", user.Role, models.ErrValidation)
}
