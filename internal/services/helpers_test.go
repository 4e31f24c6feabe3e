package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"food-rescue-backend/internal/geo"
	"food-rescue-backend/internal/models"
	"food-rescue-backend/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var (
	testNow   = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	bengaluru = geo.Point{Lat: 12.9716, Lng: 77.5946}
)

// offset returns a point roughly km kilometres north of p
func offset(p geo.Point, km float64) *geo.Point {
	return &geo.Point{Lat: p.Lat + km/111.195, Lng: p.Lng}
}

type testEnv struct {
	store    *memory.Store
	registry *ConnRegistry
	notifier *Notifier
	listings *ListingService
	users    *UserService
	stats    *StatsService
	clock    *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	registry := NewConnRegistry()
	notifier := NewNotifier(store.Notifications, store.Users, registry, nil)
	clock := &fakeClock{now: testNow}

	listings := NewListingService(store.Users, store.Listings, store.Requests, notifier, DefaultNotifyRadiusKm)
	listings.SetClock(clock.Now)

	return &testEnv{
		store:    store,
		registry: registry,
		notifier: notifier,
		listings: listings,
		users:    NewUserService(store.Users, "test-secret"),
		stats:    NewStatsService(store.Users, store.Listings, store.Requests, registry),
		clock:    clock,
	}
}

func (e *testEnv) addUser(t *testing.T, role models.Role, verified bool, loc *geo.Point) *models.User {
	t.Helper()
	id := uuid.New().String()
	u := &models.User{
		ID:        id,
		Name:      string(role) + "-" + id[:8],
		Email:     id + "@example.org",
		Role:      role,
		Verified:  verified,
		Active:    true,
		Location:  loc,
		CreatedAt: testNow,
	}
	require.NoError(t, e.store.Users.Create(context.Background(), u))
	return u
}

func (e *testEnv) createListing(t *testing.T, donor *models.User, loc *geo.Point) *models.Listing {
	t.Helper()
	l, err := e.listings.CreateListing(context.Background(), donor.ID, CreateListingInput{
		Title:         "Rice and dal",
		Quantity:      "20 meals",
		FoodType:      models.FoodVeg,
		PickupAddress: "MG Road",
		ExpiryHours:   4,
		Location:      loc,
	})
	require.NoError(t, err)
	return l
}

func (e *testEnv) notificationsOf(t *testing.T, userID string) []*models.Notification {
	t.Helper()
	e.notifier.Wait()
	list, err := e.store.Notifications.ListByUser(context.Background(), userID, false, 100)
	require.NoError(t, err)
	return list
}

func typesOf(list []*models.Notification) []models.NotificationType {
	out := make([]models.NotificationType, 0, len(list))
	for _, n := range list {
		out = append(out, n.Type)
	}
	return out
}

// fakeChannel records writes and can be told to fail
type fakeChannel struct {
	mu     sync.Mutex
	sent   [][]byte
	fail   bool
	closed bool
}

func (c *fakeChannel) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail || c.closed {
		return errors.New("broken pipe")
	}
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeChannel) Sent() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *fakeChannel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
