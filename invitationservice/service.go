// --- File: invitationservice/service.go ---
package invitationservice

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-microservice-base/pkg/microservice"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"

	"github.com/tinywideclouds/go-invitation-service/internal/api"
	"github.com/tinywideclouds/go-invitation-service/internal/pipeline"
	"github.com/tinywideclouds/go-invitation-service/invitationservice/config"
	"github.com/tinywideclouds/go-invitation-service/pkg/dispatch"
	"github.com/tinywideclouds/go-invitation-service/pkg/invitation"
)

type Wrapper struct {
	*microservice.BaseServer
	pipelineService *messagepipeline.StreamingService[invitation.Event]
	logger          *slog.Logger
}

// New assembles the service: one dispatch engine shared by the HTTP
// boundary and the async ingestion pipeline.
func New(
	cfg *config.Config,
	consumer messagepipeline.MessageConsumer,
	clouds map[invitation.CloudType]dispatch.CloudDispatcher,
	registrars map[invitation.CloudType]dispatch.EndpointRegistrar,
	mailer dispatch.EmailSender,
	store dispatch.RegistrationStore,
	logger *slog.Logger,
) (*Wrapper, error) {

	// 1. Base Server
	baseServer := microservice.NewBaseServer(logger, cfg.ListenAddr)

	// 2. Dispatch engine
	dispatcher := pipeline.NewDispatcher(store, clouds, mailer, logger)

	// 3. Pipeline
	streamingService, err := messagepipeline.NewStreamingService[invitation.Event](
		messagepipeline.StreamingServiceConfig{NumWorkers: cfg.NumPipelineWorkers},
		consumer,
		pipeline.InvitationEventTransformer,
		pipeline.NewProcessor(dispatcher, logger),
		slog.New(slog.DiscardHandler),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create streaming service: %w", err)
	}

	// 4. API (Registration + Call actions)
	inviteAPI := api.NewInviteAPI(store, registrars, dispatcher, logger)

	// Register Routes
	mux := baseServer.Mux()

	corsMiddleware := middleware.NewCorsMiddleware(cfg.CorsConfig, logger)

	// OPTIONS
	preflight := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	mux.Handle("OPTIONS /register", preflight)
	mux.Handle("OPTIONS /call", preflight)

	// The legacy clients call these unauthenticated, with query parameters.
	mux.Handle("GET /register", corsMiddleware(http.HandlerFunc(inviteAPI.RegisterHandler)))
	mux.Handle("GET /call", corsMiddleware(http.HandlerFunc(inviteAPI.CallHandler)))

	return &Wrapper{
		BaseServer:      baseServer,
		pipelineService: streamingService,
		logger:          logger,
	}, nil
}

func (w *Wrapper) Start(ctx context.Context) error {
	w.logger.Info("Core processing pipeline starting...")
	if err := w.pipelineService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start processing service: %w", err)
	}
	w.SetReady(true)
	w.logger.Info("Service is now ready.")
	return w.BaseServer.Start()
}

func (w *Wrapper) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down service components...")
	var finalErr error
	if err := w.pipelineService.Stop(ctx); err != nil {
		w.logger.Error("Processing pipeline shutdown failed.", "err", err)
		finalErr = err
	}
	if err := w.BaseServer.Shutdown(ctx); err != nil {
		w.logger.Error("HTTP server shutdown failed.", "err", err)
		finalErr = err
	}
	w.logger.Info("Service shutdown complete.")
	return finalErr
}
