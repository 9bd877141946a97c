package pipeline

import (
	"context"
	"log/slog"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/tinywideclouds/go-invitation-service/pkg/invitation"
)

// NewProcessor adapts the Dispatcher into a dataflow StreamProcessor so
// invitation events arriving on the async ingestion channel run through the
// exact same push-then-fallback engine as the HTTP requests.
func NewProcessor(
	dispatcher *Dispatcher,
	logger *slog.Logger,
) messagepipeline.StreamProcessor[invitation.Event] {

	return func(ctx context.Context, original messagepipeline.Message, event *invitation.Event) error {
		procLogger := logger.With(
			"action", string(event.Action),
			"pubsub_msg_id", original.ID,
		)

		outcome, err := dispatcher.Dispatch(ctx, *event)
		if err != nil {
			// Terminal delivery failure: returning the error lets the
			// pipeline retry and eventually dead-letter the message.
			procLogger.Error("Invitation delivery failed", "err", err)
			return err
		}

		procLogger.Info("Invitation delivered", "outcome", outcome.String())
		return nil
	}
}
