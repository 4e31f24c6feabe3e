package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"food-rescue-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// PushSender delivers a notification to a device when the user is offline
type PushSender interface {
	Push(ctx context.Context, deviceToken string, n *models.Notification) error
}

// Notifier persists notifications and pushes them to connected users
type Notifier struct {
	store    NotificationStore
	users    UserStore
	registry *ConnRegistry
	push     PushSender
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewNotifier creates a notifier. push may be nil.
func NewNotifier(store NotificationStore, users UserStore, registry *ConnRegistry, push PushSender) *Notifier {
	return &Notifier{
		store:    store,
		users:    users,
		registry: registry,
		push:     push,
		now:      time.Now,
	}
}

// Notify stores a notification and then attempts live delivery. Only the
// persistence step can fail; delivery problems are logged and dropped.
func (n *Notifier) Notify(
	ctx context.Context,
	userID string,
	typ models.NotificationType,
	title, body string,
	payload interface{},
) (*models.Notification, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		raw = b
	}

	notification := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Body:      body,
		Payload:   raw,
		CreatedAt: n.now().UTC(),
	}

	if err := n.store.Create(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to persist notification: %w", err)
	}

	n.deliver(ctx, notification)
	return notification, nil
}

func (n *Notifier) deliver(ctx context.Context, notification *models.Notification) {
	err := n.registry.Send(notification.UserID, WSMessage{
		Type:      "notification",
		Timestamp: notification.CreatedAt.UnixMilli(),
		Data:      notification,
	})
	if err == nil {
		return
	}
	if !errors.Is(err, ErrNotConnected) {
		log.Warn().
			Err(err).
			Str("user_id", notification.UserID).
			Str("notification_id", notification.ID).
			Msg("Live delivery failed")
	}

	if n.push == nil {
		return
	}
	user, err := n.users.GetByID(ctx, notification.UserID)
	if err != nil || user.PushToken == nil || *user.PushToken == "" {
		return
	}
	if err := n.push.Push(ctx, *user.PushToken, notification); err != nil {
		log.Warn().
			Err(err).
			Str("user_id", notification.UserID).
			Msg("Push delivery failed")
	}
}

// Dispatch runs fn in the background, detached from the caller's request.
func (n *Notifier) Dispatch(fn func(ctx context.Context)) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		fn(context.Background())
	}()
}

// NotifyAsync is the fire-and-forget form of Notify
func (n *Notifier) NotifyAsync(userID string, typ models.NotificationType, title, body string, payload interface{}) {
	n.Dispatch(func(ctx context.Context) {
		if _, err := n.Notify(ctx, userID, typ, title, body, payload); err != nil {
			log.Error().
				Err(err).
				Str("user_id", userID).
				Str("type", string(typ)).
				Msg("Failed to notify user")
		}
	})
}

// Wait blocks until all dispatched work has finished
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// List returns the user's notifications, newest first
func (n *Notifier) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return n.store.ListByUser(ctx, userID, unreadOnly, limit)
}

// MarkRead flips the read flag on one of the user's notifications
func (n *Notifier) MarkRead(ctx context.Context, userID, notificationID string) error {
	return n.store.MarkRead(ctx, notificationID, userID)
}
