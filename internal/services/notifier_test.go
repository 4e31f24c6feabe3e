package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"food-rescue-backend/internal/models"
	"food-rescue-backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPush struct {
	mu     sync.Mutex
	tokens []string
	err    error
}

func (p *recordingPush) Push(ctx context.Context, deviceToken string, n *models.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens = append(p.tokens, deviceToken)
	return p.err
}

type failingNotifications struct {
	NotificationStore
}

func (failingNotifications) Create(ctx context.Context, n *models.Notification) error {
	return errors.New("disk full")
}

func TestNotifyDeliversLive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ngo := env.addUser(t, models.RoleNGO, true, nil)

	ch := &fakeChannel{}
	env.registry.Register(ngo.ID, ch)

	n, err := env.notifier.Notify(ctx, ngo.ID, models.NotificationNewListing, "New food", "Rice", map[string]string{"listing_id": "l1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"listing_id":"l1"}`, string(n.Payload))

	require.Equal(t, 1, ch.Sent())
	var msg struct {
		Type string               `json:"type"`
		Data *models.Notification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(ch.sent[0], &msg))
	assert.Equal(t, "notification", msg.Type)
	assert.Equal(t, n.ID, msg.Data.ID)

	stored := env.notificationsOf(t, ngo.ID)
	require.Len(t, stored, 1)
	assert.False(t, stored[0].Read)
}

func TestNotifyPersistsWhenDeliveryFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ngo := env.addUser(t, models.RoleNGO, true, nil)

	broken := &fakeChannel{fail: true}
	env.registry.Register(ngo.ID, broken)

	_, err := env.notifier.Notify(ctx, ngo.ID, models.NotificationRequestAccepted, "Accepted", "", nil)
	require.NoError(t, err)

	assert.False(t, env.registry.IsOnline(ngo.ID))
	assert.Len(t, env.notificationsOf(t, ngo.ID), 1)

	// offline users still get the record
	_, err = env.notifier.Notify(ctx, ngo.ID, models.NotificationPickupCompleted, "Done", "", nil)
	require.NoError(t, err)
	assert.Len(t, env.notificationsOf(t, ngo.ID), 2)
}

func TestNotifyFallsBackToPush(t *testing.T) {
	store := memory.New()
	registry := NewConnRegistry()
	push := &recordingPush{err: errors.New("apns down")}
	notifier := NewNotifier(store.Notifications, store.Users, registry, push)
	ctx := context.Background()

	token := "device-token"
	withToken := &models.User{ID: "a", Email: "a@example.org", Role: models.RoleNGO, Active: true, PushToken: &token}
	without := &models.User{ID: "b", Email: "b@example.org", Role: models.RoleNGO, Active: true}
	online := &models.User{ID: "c", Email: "c@example.org", Role: models.RoleNGO, Active: true, PushToken: &token}
	for _, u := range []*models.User{withToken, without, online} {
		require.NoError(t, store.Users.Create(ctx, u))
	}
	registry.Register(online.ID, &fakeChannel{})

	for _, id := range []string{"a", "b", "c"} {
		_, err := notifier.Notify(ctx, id, models.NotificationNewRequest, "New request", "", nil)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{token}, push.tokens)
}

func TestNotifyReturnsPersistenceError(t *testing.T) {
	store := memory.New()
	notifier := NewNotifier(failingNotifications{}, store.Users, NewConnRegistry(), nil)

	ch := &fakeChannel{}
	notifier.registry.Register("u1", ch)

	_, err := notifier.Notify(context.Background(), "u1", models.NotificationNewListing, "t", "b", nil)
	assert.Error(t, err)
	assert.Equal(t, 0, ch.Sent())
}

func TestNotifierListAndMarkRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ngo := env.addUser(t, models.RoleNGO, true, nil)
	other := env.addUser(t, models.RoleNGO, true, nil)

	n, err := env.notifier.Notify(ctx, ngo.ID, models.NotificationNewListing, "a", "", nil)
	require.NoError(t, err)
	_, err = env.notifier.Notify(ctx, ngo.ID, models.NotificationNewListing, "b", "", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, env.notifier.MarkRead(ctx, other.ID, n.ID), models.ErrNotFound)
	require.NoError(t, env.notifier.MarkRead(ctx, ngo.ID, n.ID))

	unread, err := env.notifier.List(ctx, ngo.ID, true, 0)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "b", unread[0].Title)

	all, err := env.notifier.List(ctx, ngo.ID, false, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
