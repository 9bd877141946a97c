package api

import (
	"context"
	"net/http"

	"log/slog"

	"github.com/tinywideclouds/go-microservice-base/pkg/response"

	"github.com/tinywideclouds/go-invitation-service/internal/identity"
	"github.com/tinywideclouds/go-invitation-service/internal/pipeline"
	"github.com/tinywideclouds/go-invitation-service/pkg/dispatch"
	"github.com/tinywideclouds/go-invitation-service/pkg/invitation"
)

// Dispatcher is the slice of the pipeline engine the API needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, event invitation.Event) (pipeline.Outcome, error)
}

type InviteAPI struct {
	Store      dispatch.RegistrationStore
	Registrars map[invitation.CloudType]dispatch.EndpointRegistrar
	Dispatcher Dispatcher
	Logger     *slog.Logger
}

func NewInviteAPI(
	store dispatch.RegistrationStore,
	registrars map[invitation.CloudType]dispatch.EndpointRegistrar,
	dispatcher Dispatcher,
	logger *slog.Logger,
) *InviteAPI {
	return &InviteAPI{
		Store:      store,
		Registrars: registrars,
		Dispatcher: dispatcher,
		Logger:     logger,
	}
}

// --- GET /register?id=&device=&cloud= ---

// RegisterHandler upserts the caller's push registration. The write is
// best-effort: a store failure is logged and the request still succeeds,
// but a push-provider rejection of the device token fails the request.
func (api *InviteAPI) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	userID := q.Get("id")
	deviceToken := q.Get("device")
	cloudValue := q.Get("cloud")

	// A valid register call must have all 3 values.
	if userID == "" || deviceToken == "" || cloudValue == "" {
		response.WriteJSONError(w, http.StatusBadRequest, "id, device and cloud are required")
		return
	}

	cloud, err := invitation.ParseCloudType(cloudValue)
	if err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "unknown cloud type")
		return
	}

	// ADM exchanges the device token for a provider endpoint up front; GCM
	// addresses the device by the token itself.
	endpoint := deviceToken
	if registrar, ok := api.Registrars[cloud]; ok {
		endpoint, err = registrar.RegisterEndpoint(ctx, deviceToken)
		if err != nil {
			api.Logger.Error("Push provider rejected device registration",
				"user_id", userID, "cloud", cloudValue, "err", err)
			response.WriteJSONError(w, http.StatusInternalServerError, "push provider error")
			return
		}
	}

	record := invitation.Registration{UserID: userID, Cloud: cloud, Endpoint: endpoint}
	if err := api.Store.Put(ctx, record); err != nil {
		// Fire-and-forget: registration is eventually consistent, the
		// dispatcher falls back to email for anyone the write missed.
		api.Logger.Error("Registration write failed", "user_id", userID, "err", err)
	} else {
		api.Logger.Info("Registered user",
			"user_id", userID, "email", identity.Decode(userID), "cloud", cloudValue)
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// --- GET /call?caller=&callee=&action= ---

// CallHandler decodes and validates both identities, then hands the event
// to the dispatch engine. Both parties must carry a well-formed address
// even though only one of them is the notification target.
func (api *InviteAPI) CallHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	callerID := q.Get("caller")
	calleeID := q.Get("callee")

	callerEmail := identity.Decode(callerID)
	calleeEmail := identity.Decode(calleeID)
	if !identity.ValidEmail(callerEmail) || !identity.ValidEmail(calleeEmail) {
		api.Logger.Warn("Call rejected: identity failed validation")
		response.WriteJSONError(w, http.StatusBadRequest,
			"ensure you have encoded a valid email address for both caller and callee")
		return
	}

	action, err := invitation.ParseActionType(q.Get("action"))
	if err != nil {
		api.Logger.Warn("Call rejected: bad action", "action", q.Get("action"))
		response.WriteJSONError(w, http.StatusBadRequest, "unknown or missing action")
		return
	}

	event := invitation.Event{
		Action:      action,
		Room:        callerID, // the caller's token doubles as the room path segment
		CallerID:    callerID,
		CalleeID:    calleeID,
		CallerEmail: callerEmail,
		CalleeEmail: calleeEmail,
	}

	outcome, err := api.Dispatcher.Dispatch(ctx, event)
	if err != nil {
		response.WriteJSONError(w, http.StatusInternalServerError, "delivery failed")
		return
	}

	api.Logger.Info("Call action handled", "action", string(action), "outcome", outcome.String())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
