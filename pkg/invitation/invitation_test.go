package invitation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/go-invitation-service/pkg/invitation"
)

func TestParseActionType(t *testing.T) {
	for _, wire := range []string{"inviteInvite", "inviteCancel", "inviteAccept", "inviteDecline"} {
		a, err := invitation.ParseActionType(wire)
		require.NoError(t, err)
		assert.Equal(t, wire, string(a))
	}

	_, err := invitation.ParseActionType("inviteSnooze")
	assert.Error(t, err)
	_, err = invitation.ParseActionType("")
	assert.Error(t, err)
}

func TestParseCloudType(t *testing.T) {
	for _, wire := range []string{"ADM", "GCM"} {
		c, err := invitation.ParseCloudType(wire)
		require.NoError(t, err)
		assert.Equal(t, wire, string(c))
	}

	// Case matters on the wire, and leading/trailing junk is never trimmed.
	_, err := invitation.ParseCloudType("adm")
	assert.Error(t, err)
	_, err = invitation.ParseCloudType("ADM ")
	assert.Error(t, err)
	_, err = invitation.ParseCloudType("APNS")
	assert.Error(t, err)
}

func TestEventTargetSelection(t *testing.T) {
	base := invitation.Event{
		Room:        "room-1",
		CallerID:    "caller-token",
		CalleeID:    "callee-token",
		CallerEmail: "caller@x.com",
		CalleeEmail: "callee@x.com",
	}

	t.Run("Invite and Cancel target the callee", func(t *testing.T) {
		for _, a := range []invitation.ActionType{invitation.ActionInvite, invitation.ActionCancel} {
			e := base
			e.Action = a
			assert.Equal(t, "callee-token", e.TargetID())
			assert.Equal(t, "callee@x.com", e.TargetEmail())
		}
	})

	t.Run("Accept and Decline target the caller", func(t *testing.T) {
		for _, a := range []invitation.ActionType{invitation.ActionAccept, invitation.ActionDecline} {
			e := base
			e.Action = a
			assert.Equal(t, "caller-token", e.TargetID())
			assert.Equal(t, "caller@x.com", e.TargetEmail())
		}
	})
}

func TestEventPushData(t *testing.T) {
	e := invitation.Event{
		Action:      invitation.ActionInvite,
		Room:        "room-42",
		CallerEmail: "caller@x.com",
		CalleeEmail: "callee@x.com",
	}

	data := e.PushData()
	assert.Equal(t, "caller@x.com is calling ...", data["INVITATION_MESSAGE"])
	assert.Equal(t, "room-42", data["INVITATION_ROOM"])
	assert.Equal(t, "caller@x.com", data["INVITATION_EMAIL_CALLER"])
	assert.Equal(t, "callee@x.com", data["INVITATION_EMAIL_CALLEE"])
	assert.Equal(t, "inviteInvite", data["INVITATION_TYPE"])

	e.Action = invitation.ActionAccept
	assert.Equal(t, "callee@x.com has accepted the video call you started.", e.PushMessage())
}
