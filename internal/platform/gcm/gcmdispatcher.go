// --- File: internal/platform/gcm/gcmdispatcher.go ---
package gcm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"firebase.google.com/go/v4/messaging"

	"github.com/tinywideclouds/go-invitation-service/pkg/invitation"
)

// collapseKey makes newer invitation pushes replace queued older ones on
// the device; timeToLive matches the ADM expiry.
const (
	collapseKey = "Invitation"
	timeToLive  = 60 * time.Second
)

// MessagingClient defines the subset of the Firebase Messaging API we use.
// This interface allows us to mock the client for unit testing.
type MessagingClient interface {
	Send(ctx context.Context, msg *messaging.Message) (string, error)
}

type Dispatcher struct {
	client MessagingClient // Changed from *messaging.Client
	logger *slog.Logger
}

// NewDispatcher accepts the concrete client but stores it as the interface.
// Note: *messaging.Client automatically satisfies this interface.
func NewDispatcher(client MessagingClient, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		client: client,
		logger: logger.With("component", "GCMDispatcher"),
	}
}

// Send targets exactly one registration id per call. Any non-success
// response, including a stale registration id, is one uniform error; the
// caller owns the fallback decision and we never retry here.
func (d *Dispatcher) Send(ctx context.Context, endpoint string, event invitation.Event) (string, error) {
	ttl := timeToLive
	msg := &messaging.Message{
		Token: endpoint,
		Data:  event.PushData(),
		Android: &messaging.AndroidConfig{
			CollapseKey: collapseKey,
			TTL:         &ttl,
		},
	}

	messageID, err := d.client.Send(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("gcm send failed: %w", err)
	}

	d.logger.Debug("GCM notification sent", "message_id", messageID)
	return messageID, nil
}
