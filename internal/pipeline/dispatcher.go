package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tinywideclouds/go-invitation-service/pkg/dispatch"
	"github.com/tinywideclouds/go-invitation-service/pkg/invitation"
)

// Outcome is the caller-visible result of a dispatch. Which provider was
// involved, and why a fallback happened, is logged rather than returned.
type Outcome int

const (
	// OutcomeDelivered - the push provider accepted the notification.
	OutcomeDelivered Outcome = iota
	// OutcomeFallback - delivered by email instead of push.
	OutcomeFallback
	// OutcomeFailed - the fallback channel failed too; nothing was delivered.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeFallback:
		return "fallback_delivered"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Dispatcher routes one invitation event: resolve the target's registration,
// push through the matching cloud if possible, otherwise fall back to email.
// It holds no per-request state; concurrent events for the same target are
// not coordinated and may both deliver.
type Dispatcher struct {
	store  dispatch.RegistrationStore
	clouds map[invitation.CloudType]dispatch.CloudDispatcher
	mailer dispatch.EmailSender
	logger *slog.Logger
}

func NewDispatcher(
	store dispatch.RegistrationStore,
	clouds map[invitation.CloudType]dispatch.CloudDispatcher,
	mailer dispatch.EmailSender,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		store:  store,
		clouds: clouds,
		mailer: mailer,
		logger: logger.With("component", "InvitationDispatcher"),
	}
}

// Dispatch runs the event to a terminal outcome. Provider and store errors
// are converted into the next transition here; nothing escapes except the
// terminal email failure.
func (d *Dispatcher) Dispatch(ctx context.Context, event invitation.Event) (Outcome, error) {
	log := d.logger.With(
		"action", string(event.Action),
		"target", event.TargetEmail(),
	)

	record, status := d.resolveRegistration(ctx, event.TargetID(), log)

	if status == invitation.StatusRegistered {
		messageID, err := d.clouds[record.Cloud].Send(ctx, record.Endpoint, event)
		if err == nil {
			// messageID is diagnostics only; the caller never needs it.
			log.Info("Push notification delivered", "cloud", string(record.Cloud), "message_id", messageID)
			return OutcomeDelivered, nil
		}
		// One attempt per endpoint per request; the recovery is the email.
		log.Warn("Push delivery failed, falling back to email",
			"cloud", string(record.Cloud), "endpoint", record.Endpoint, "err", err)
	}

	if err := d.mailer.Send(ctx, event); err != nil {
		log.Error("Fallback email delivery failed", "err", err)
		return OutcomeFailed, fmt.Errorf("fallback email delivery failed: %w", err)
	}

	log.Info("Delivered via email fallback", "registration_status", status.String())
	return OutcomeFallback, nil
}

// resolveRegistration classifies the target's registration on every lookup.
// StatusRegistered guarantees the record is non-nil and its cloud type has a
// configured dispatcher.
func (d *Dispatcher) resolveRegistration(ctx context.Context, targetID string, log *slog.Logger) (*invitation.Registration, invitation.RegistrationStatus) {
	record, found, err := d.store.Get(ctx, targetID)
	if err != nil {
		// Elevated severity: this is infrastructure trouble, not business state.
		log.Error("Registration lookup failed", "found", found, "err", err)
		return nil, invitation.StatusRecordError
	}
	if !found {
		log.Info("Target has no registration record")
		return nil, invitation.StatusUnregistered
	}

	if _, ok := d.clouds[record.Cloud]; !ok {
		// Unknown or unconfigured cloud type: never attempt a send with it.
		log.Error("Registration record names an unusable cloud type", "cloud", string(record.Cloud))
		return nil, invitation.StatusRecordError
	}

	return record, invitation.StatusRegistered
}
