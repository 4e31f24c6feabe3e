// Package memory is an in-process store with the same conditional update
// semantics as the PostgreSQL repositories. It backs tests and the
// "memory" database driver.
package memory

import (
	"sync"

	"food-rescue-backend/internal/models"
)

type state struct {
	mu            sync.Mutex
	users         map[string]*models.User
	listings      map[string]*models.Listing
	requests      map[string]*models.Request
	notifications []*models.Notification
}

// Store groups the repositories over one shared state
type Store struct {
	Users         *UserRepository
	Listings      *ListingRepository
	Requests      *RequestRepository
	Notifications *NotificationRepository
}

// New creates an empty store
func New() *Store {
	s := &state{
		users:    make(map[string]*models.User),
		listings: make(map[string]*models.Listing),
		requests: make(map[string]*models.Request),
	}
	return &Store{
		Users:         &UserRepository{s: s},
		Listings:      &ListingRepository{s: s},
		Requests:      &RequestRepository{s: s},
		Notifications: &NotificationRepository{s: s},
	}
}

func copyUser(u *models.User) *models.User {
	c := *u
	if u.Location != nil {
		loc := *u.Location
		c.Location = &loc
	}
	return &c
}

func copyListing(l *models.Listing) *models.Listing {
	c := *l
	if l.Location != nil {
		loc := *l.Location
		c.Location = &loc
	}
	return &c
}

func copyRequest(r *models.Request) *models.Request {
	c := *r
	return &c
}
