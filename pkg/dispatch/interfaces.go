// --- File: pkg/dispatch/interfaces.go ---
package dispatch

import (
	"context"

	"github.com/tinywideclouds/go-invitation-service/pkg/invitation"
)

// CloudDispatcher defines the contract for a component that can deliver an
// invitation event through a specific push provider (ADM or GCM).
type CloudDispatcher interface {
	// Send delivers the event to a single provider endpoint and returns the
	// provider's message identifier. Any non-success response is an error;
	// the caller decides whether to fall back, never the dispatcher.
	Send(ctx context.Context, endpoint string, event invitation.Event) (string, error)
}

// EndpointRegistrar exchanges a raw device token for a provider endpoint at
// registration time. Providers that address devices by the token itself do
// not implement this.
type EndpointRegistrar interface {
	RegisterEndpoint(ctx context.Context, deviceToken string) (string, error)
}

// EmailSender is the fallback delivery channel. There is nothing behind it;
// an error here is terminal for the request.
type EmailSender interface {
	Send(ctx context.Context, event invitation.Event) error
}

// RegistrationStore defines the contract for the per-user registration
// records. It allows the service to remember "where" to push for a user.
type RegistrationStore interface {
	// Put adds or replaces the record for record.UserID (last-write-wins).
	Put(ctx context.Context, record invitation.Registration) error

	// Get retrieves the record for userID. A missing key is (nil, false, nil);
	// a non-nil error means the store call failed or the stored value could
	// not be decoded, which callers must keep distinct from plain absence.
	Get(ctx context.Context, userID string) (*invitation.Registration, bool, error)
}
