package services

import (
	"context"
	"fmt"

	"food-rescue-backend/internal/models"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"
	"github.com/sideshow/apns2/payload"
)

// APNsSender pushes notifications to iOS devices
type APNsSender struct {
	client *apns2.Client
	topic  string
}

// NewAPNsSender loads the .p12 certificate and builds an APNs client
func NewAPNsSender(certFile, password, topic string, production bool) (*APNsSender, error) {
	cert, err := certificate.FromP12File(certFile, password)
	if err != nil {
		return nil, fmt.Errorf("failed to read APNs certificate: %w", err)
	}

	client := apns2.NewClient(cert)
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNsSender{client: client, topic: topic}, nil
}

// Push sends an alert for the notification to the device
func (s *APNsSender) Push(ctx context.Context, deviceToken string, n *models.Notification) error {
	p := payload.NewPayload().
		AlertTitle(n.Title).
		AlertBody(n.Body).
		Sound("default").
		Custom("notification_id", n.ID).
		Custom("type", string(n.Type))

	res, err := s.client.PushWithContext(ctx, &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       s.topic,
		Payload:     p,
	})
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("apns rejected notification: %d %s", res.StatusCode, res.Reason)
	}
	return nil
}
