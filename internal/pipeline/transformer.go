// --- File: internal/pipeline/transformer.go ---
// Package pipeline contains the invitation dispatch engine and the message
// processing components that feed it.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/tinywideclouds/go-invitation-service/internal/identity"
	"github.com/tinywideclouds/go-invitation-service/pkg/invitation"
)

// InvitationEventTransformer is a dataflow Transformer that safely
// unmarshals and validates a raw message payload into an invitation.Event.
//
// The identity checks mirror the HTTP boundary: every identity entering the
// dispatcher passes the address-format validation, no matter which door it
// came through.
func InvitationEventTransformer(
	_ context.Context,
	msg *messagepipeline.Message,
) (*invitation.Event, bool, error) {
	var event invitation.Event

	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		// Malformed payloads are skipped so the StreamingService can handle
		// the Nack/DLQ logic.
		return nil, true, fmt.Errorf("failed to unmarshal invitation event from message %s: %w", msg.ID, err)
	}

	if _, err := invitation.ParseActionType(string(event.Action)); err != nil {
		return nil, true, fmt.Errorf("message %s rejected: %w", msg.ID, err)
	}
	if !identity.ValidEmail(event.CallerEmail) || !identity.ValidEmail(event.CalleeEmail) {
		return nil, true, fmt.Errorf("message %s rejected: caller or callee identity failed format validation", msg.ID)
	}

	return &event, false, nil
}
