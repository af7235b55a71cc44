package schemas

import "time"

// -- Session Schemas --

// SessionState tracks the lifecycle of the one browser session an
// orchestrator owns. Transitions are strictly forward:
// Uninitialized -> Authenticating -> Authenticated -> Closed, with
// AuthFailed as the terminal error state reachable from Authenticating (or
// from Authenticated when a challenge appears mid-session).
type SessionState string

const (
	StateUninitialized  SessionState = "UNINITIALIZED"
	StateAuthenticating SessionState = "AUTHENTICATING"
	StateAuthenticated  SessionState = "AUTHENTICATED"
	StateAuthFailed     SessionState = "AUTH_FAILED"
	StateClosed         SessionState = "CLOSED"
)

// SessionInfo is a read-only snapshot of the live session, safe to log.
// It never carries credentials or cookie values.
type SessionInfo struct {
	ID        string       `json:"id"`
	Account   string       `json:"account"`
	State     SessionState `json:"state"`
	StartedAt time.Time    `json:"started_at"`
	// RestoredFromJar is true when the current authentication came from a
	// persisted cookie jar rather than a credential login.
	RestoredFromJar bool `json:"restored_from_jar"`
}
