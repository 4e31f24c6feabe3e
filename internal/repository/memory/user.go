package memory

import (
	"context"
	"fmt"
	"sort"

	"food-rescue-backend/internal/geo"
	"food-rescue-backend/internal/models"
)

// UserRepository stores users in memory
type UserRepository struct {
	s *state
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == user.Email {
			return fmt.Errorf("email already registered: %w", models.ErrConflict)
		}
	}
	r.s.users[user.ID] = copyUser(user)
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", models.ErrNotFound)
	}
	return copyUser(u), nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", models.ErrNotFound)
}

// ListNotifiable returns active, verified users of a role that have a location
func (r *UserRepository) ListNotifiable(ctx context.Context, role models.Role) ([]*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var users []*models.User
	for _, u := range r.s.users {
		if u.Role == role && u.Active && u.Verified && u.Location != nil {
			users = append(users, copyUser(u))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *UserRepository) update(id string, fn func(u *models.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return fmt.Errorf("user not found: %w", models.ErrNotFound)
	}
	fn(u)
	return nil
}

// IncrementDonations bumps the donor's donation counter
func (r *UserRepository) IncrementDonations(ctx context.Context, id string) error {
	return r.update(id, func(u *models.User) { u.DonationsCount++ })
}

// UpdateLocation updates or clears the user's coordinate
func (r *UserRepository) UpdateLocation(ctx context.Context, id string, loc *geo.Point) error {
	return r.update(id, func(u *models.User) {
		if loc == nil {
			u.Location = nil
			return
		}
		p := *loc
		u.Location = &p
	})
}

// UpdatePushToken updates the push token for a user
func (r *UserRepository) UpdatePushToken(ctx context.Context, id string, token *string) error {
	return r.update(id, func(u *models.User) { u.PushToken = token })
}

// SetVerified sets the verification flag
func (r *UserRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	return r.update(id, func(u *models.User) { u.Verified = verified })
}

// SetActive sets the active flag
func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.update(id, func(u *models.User) { u.Active = active })
}
