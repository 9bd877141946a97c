// Package invitation contains the public domain model for the invitation
// dispatch service: the call-action vocabulary, the registration record
// stored per user, and the transient event that flows through the
// dispatcher.
package invitation

import "fmt"

// ActionType identifies the call-invitation lifecycle event being relayed.
// The string values are the wire values used by the clients.
type ActionType string

const (
	// ActionInvite - the caller is making the invite.
	ActionInvite ActionType = "inviteInvite"
	// ActionCancel - the caller is cancelling the invite.
	ActionCancel ActionType = "inviteCancel"
	// ActionAccept - the callee has accepted the invite.
	ActionAccept ActionType = "inviteAccept"
	// ActionDecline - the callee has declined the invite.
	ActionDecline ActionType = "inviteDecline"
)

// ParseActionType maps a wire value onto the closed action set.
func ParseActionType(s string) (ActionType, error) {
	switch a := ActionType(s); a {
	case ActionInvite, ActionCancel, ActionAccept, ActionDecline:
		return a, nil
	}
	return "", fmt.Errorf("unknown action type %q", s)
}

// CloudType identifies the push provider a device registered through.
type CloudType string

const (
	CloudADM CloudType = "ADM"
	CloudGCM CloudType = "GCM"
)

// ParseCloudType maps a wire value onto the closed cloud set.
func ParseCloudType(s string) (CloudType, error) {
	switch c := CloudType(s); c {
	case CloudADM, CloudGCM:
		return c, nil
	}
	return "", fmt.Errorf("unknown cloud type %q", s)
}

// RegistrationStatus is the read-time classification of a target's push
// registration. It is derived on every lookup, never stored.
type RegistrationStatus int

const (
	// StatusRegistered - a well-formed record exists for the target.
	StatusRegistered RegistrationStatus = iota
	// StatusUnregistered - no record exists for the target.
	StatusUnregistered
	// StatusRecordError - the store failed, the record was undecodable, or
	// the stored cloud type is not one we can send through.
	StatusRecordError
)

func (s RegistrationStatus) String() string {
	switch s {
	case StatusRegistered:
		return "registered"
	case StatusUnregistered:
		return "unregistered"
	case StatusRecordError:
		return "record_error"
	}
	return "unknown"
}

// Registration is the per-user record owned by the RegistrationStore.
// It is serialized as a single JSON value under key = UserID, and a later
// registration for the same UserID replaces the earlier record outright.
// The json tags match the record format the legacy service wrote.
type Registration struct {
	UserID   string    `json:"userId"`
	Cloud    CloudType `json:"cloud"`
	Endpoint string    `json:"endpointArn"`
}

// Event is the transient call-action event built per request.
// CallerID and CalleeID are the opaque encoded identity tokens (they double
// as registration-store keys); CallerEmail and CalleeEmail are their decoded,
// validated addresses.
type Event struct {
	Action      ActionType `json:"action"`
	Room        string     `json:"room"`
	CallerID    string     `json:"callerId"`
	CalleeID    string     `json:"calleeId"`
	CallerEmail string     `json:"callerEmail"`
	CalleeEmail string     `json:"calleeEmail"`
}

// TargetID returns the registration key of the party to notify.
// Invite and Cancel flow towards the callee; Accept and Decline are
// responses flowing back to the call's originator.
func (e Event) TargetID() string {
	switch e.Action {
	case ActionAccept, ActionDecline:
		return e.CallerID
	case ActionInvite, ActionCancel:
		return e.CalleeID
	}
	return ""
}

// TargetEmail returns the address of the party to notify, under the same
// rule as TargetID.
func (e Event) TargetEmail() string {
	switch e.Action {
	case ActionAccept, ActionDecline:
		return e.CallerEmail
	case ActionInvite, ActionCancel:
		return e.CalleeEmail
	}
	return ""
}

// PushMessage is the human-readable line carried in the push payload.
func (e Event) PushMessage() string {
	switch e.Action {
	case ActionInvite:
		return e.CallerEmail + " is calling ..."
	case ActionCancel:
		return e.CallerEmail + " has canceled the video call they started."
	case ActionAccept:
		return e.CalleeEmail + " has accepted the video call you started."
	case ActionDecline:
		return e.CalleeEmail + " has declined the video call you started."
	}
	return ""
}

// PushData builds the provider-agnostic data payload. The INVITATION_* keys
// are the contract with the mobile clients.
func (e Event) PushData() map[string]string {
	return map[string]string{
		"INVITATION_MESSAGE":      e.PushMessage(),
		"INVITATION_ROOM":         e.Room,
		"INVITATION_EMAIL_CALLER": e.CallerEmail,
		"INVITATION_EMAIL_CALLEE": e.CalleeEmail,
		"INVITATION_TYPE":         string(e.Action),
	}
}
