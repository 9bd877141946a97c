package api_test

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/tinywideclouds/go-invitation-service/internal/api"
	"github.com/tinywideclouds/go-invitation-service/internal/pipeline"
	"github.com/tinywideclouds/go-invitation-service/pkg/dispatch"
	"github.com/tinywideclouds/go-invitation-service/pkg/invitation"
)

// --- Mocks ---

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Put(ctx context.Context, record invitation.Registration) error {
	return m.Called(ctx, record).Error(0)
}
func (m *MockStore) Get(ctx context.Context, userID string) (*invitation.Registration, bool, error) {
	args := m.Called(ctx, userID)
	var rec *invitation.Registration
	if args.Get(0) != nil {
		rec = args.Get(0).(*invitation.Registration)
	}
	return rec, args.Bool(1), args.Error(2)
}

type MockRegistrar struct {
	mock.Mock
}

func (m *MockRegistrar) RegisterEndpoint(ctx context.Context, deviceToken string) (string, error) {
	args := m.Called(ctx, deviceToken)
	return args.String(0), args.Error(1)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, event invitation.Event) (pipeline.Outcome, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(pipeline.Outcome), args.Error(1)
}

// --- Setup ---

func setupAPI() (*api.InviteAPI, *MockStore, *MockRegistrar, *MockDispatcher) {
	store := new(MockStore)
	registrar := new(MockRegistrar)
	dispatcher := new(MockDispatcher)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := api.NewInviteAPI(
		store,
		map[invitation.CloudType]dispatch.EndpointRegistrar{invitation.CloudADM: registrar},
		dispatcher,
		logger,
	)
	return handler, store, registrar, dispatcher
}

func encodeToken(email string) string {
	s := base64.StdEncoding.EncodeToString([]byte(email))
	s = strings.ReplaceAll(s, "+", "-")
	s = strings.ReplaceAll(s, "/", "_")
	return strings.TrimRight(s, "=")
}

func getRequest(path string, params url.Values) *http.Request {
	return httptest.NewRequest("GET", path+"?"+params.Encode(), nil)
}

// --- Tests ---

func TestRegisterHandler(t *testing.T) {
	t.Run("GCM stores the device token as the endpoint", func(t *testing.T) {
		handler, store, registrar, _ := setupAPI()
		w := httptest.NewRecorder()

		store.On("Put", mock.Anything, invitation.Registration{
			UserID: "userA", Cloud: invitation.CloudGCM, Endpoint: "tok123",
		}).Return(nil)

		handler.RegisterHandler(w, getRequest("/register", url.Values{
			"id": {"userA"}, "device": {"tok123"}, "cloud": {"GCM"},
		}))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
		store.AssertExpectations(t)
		registrar.AssertNotCalled(t, "RegisterEndpoint", mock.Anything, mock.Anything)
	})

	t.Run("ADM exchanges the device token first", func(t *testing.T) {
		handler, store, registrar, _ := setupAPI()
		w := httptest.NewRecorder()

		registrar.On("RegisterEndpoint", mock.Anything, "adm-device-1").Return("arn:endpoint/1", nil)
		store.On("Put", mock.Anything, invitation.Registration{
			UserID: "userB", Cloud: invitation.CloudADM, Endpoint: "arn:endpoint/1",
		}).Return(nil)

		handler.RegisterHandler(w, getRequest("/register", url.Values{
			"id": {"userB"}, "device": {"adm-device-1"}, "cloud": {"ADM"},
		}))

		assert.Equal(t, http.StatusOK, w.Code)
		store.AssertExpectations(t)
		registrar.AssertExpectations(t)
	})

	t.Run("Missing cloud is rejected with no store write", func(t *testing.T) {
		handler, store, _, _ := setupAPI()
		w := httptest.NewRecorder()

		handler.RegisterHandler(w, getRequest("/register", url.Values{
			"id": {"userA"}, "device": {"tok123"},
		}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	})

	t.Run("Unknown cloud is rejected", func(t *testing.T) {
		handler, store, _, _ := setupAPI()
		w := httptest.NewRecorder()

		handler.RegisterHandler(w, getRequest("/register", url.Values{
			"id": {"userA"}, "device": {"tok123"}, "cloud": {"APNS"},
		}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	})

	t.Run("Provider rejection fails the request before any write", func(t *testing.T) {
		handler, store, registrar, _ := setupAPI()
		w := httptest.NewRecorder()

		registrar.On("RegisterEndpoint", mock.Anything, "bad-device").Return("", errors.New("InvalidParameter"))

		handler.RegisterHandler(w, getRequest("/register", url.Values{
			"id": {"userB"}, "device": {"bad-device"}, "cloud": {"ADM"},
		}))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	})

	t.Run("Store write failure is fire-and-forget", func(t *testing.T) {
		handler, store, _, _ := setupAPI()
		w := httptest.NewRecorder()

		store.On("Put", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

		handler.RegisterHandler(w, getRequest("/register", url.Values{
			"id": {"userA"}, "device": {"tok123"}, "cloud": {"GCM"},
		}))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestCallHandler(t *testing.T) {
	callerTok := encodeToken("caller@x.com")
	calleeTok := encodeToken("callee@x.com")

	t.Run("Builds the event and reports success", func(t *testing.T) {
		handler, _, _, dispatcher := setupAPI()
		w := httptest.NewRecorder()

		dispatcher.On("Dispatch", mock.Anything, invitation.Event{
			Action:      invitation.ActionInvite,
			Room:        callerTok,
			CallerID:    callerTok,
			CalleeID:    calleeTok,
			CallerEmail: "caller@x.com",
			CalleeEmail: "callee@x.com",
		}).Return(pipeline.OutcomeFallback, nil)

		handler.CallHandler(w, getRequest("/call", url.Values{
			"caller": {callerTok}, "callee": {calleeTok}, "action": {"inviteInvite"},
		}))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
		dispatcher.AssertExpectations(t)
	})

	t.Run("Rejects identities that fail validation", func(t *testing.T) {
		handler, _, _, dispatcher := setupAPI()

		bad := []url.Values{
			{"caller": {"x"}, "callee": {calleeTok}, "action": {"inviteInvite"}},            // too short
			{"caller": {callerTok}, "callee": {encodeToken("no-at")}, "action": {"inviteInvite"}}, // decodes, not an address
			{"callee": {calleeTok}, "action": {"inviteInvite"}},                             // missing caller
		}
		for _, params := range bad {
			w := httptest.NewRecorder()
			handler.CallHandler(w, getRequest("/call", params))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		}
		dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	})

	t.Run("Rejects missing or unknown action", func(t *testing.T) {
		handler, _, _, dispatcher := setupAPI()

		for _, action := range []string{"", "inviteSnooze"} {
			w := httptest.NewRecorder()
			handler.CallHandler(w, getRequest("/call", url.Values{
				"caller": {callerTok}, "callee": {calleeTok}, "action": {action},
			}))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		}
		dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	})

	t.Run("Terminal delivery failure maps to 500", func(t *testing.T) {
		handler, _, _, dispatcher := setupAPI()
		w := httptest.NewRecorder()

		dispatcher.On("Dispatch", mock.Anything, mock.Anything).
			Return(pipeline.OutcomeFailed, errors.New("fallback email delivery failed"))

		handler.CallHandler(w, getRequest("/call", url.Values{
			"caller": {callerTok}, "callee": {calleeTok}, "action": {"inviteCancel"},
		}))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
