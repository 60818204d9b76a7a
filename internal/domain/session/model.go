package session

import "time"

// TokenKey is the storage key the session token is persisted under.
const TokenKey = "authToken"

// State is the authentication state of the client.
type State string

const (
	StateAnonymous     State = "anonymous"
	StateAuthenticated State = "authenticated"
)

// EventType identifies a session transition.
type EventType string

const (
	// EventSignedIn follows a successful login or signup.
	EventSignedIn EventType = "signed_in"
	// EventSignedOut follows an explicit logout.
	EventSignedOut EventType = "signed_out"
	// EventInvalidated follows a rejected credential (HTTP 401).
	EventInvalidated EventType = "invalidated"
)

// Event is published to subscribers on every session transition.
type Event struct {
	Type   EventType `json:"type"`
	State  State     `json:"state"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// Status is a point-in-time view of the session.
type Status struct {
	State         State `json:"state"`
	Authenticated bool  `json:"authenticated"`
}
