package model

import "time"

// SessionState is the orchestrator state machine position for a session.
type SessionState string

// Session state constants.
const (
	StateAwaitingMaterial     SessionState = "awaiting_material"
	StateExtracting           SessionState = "extracting"
	StateAwaitingConfirmation SessionState = "awaiting_confirmation"
	StateCommitted            SessionState = "committed"
	StateCancelled            SessionState = "cancelled"
	StateFailed               SessionState = "failed"
)

// Terminal reports whether a session can accept further turns. Failed is not
// terminal: a corrected turn re-enters the flow with accumulated fields intact.
func (s SessionState) Terminal() bool {
	return s == StateCommitted || s == StateCancelled
}

// TurnActor identifies who produced a turn.
type TurnActor string

// Turn actor constants.
const (
	ActorCaller TurnActor = "caller"
	ActorSystem TurnActor = "system"
)

// Turn is one message exchange within a session. Immutable once appended.
type Turn struct {
	At       time.Time
	Actor    TurnActor
	Text     string
	ImageRef string
}

// Session is one end-to-end conversational attempt to turn an upload into a
// committed transaction. Owned by the conversation store; mutated only by the
// orchestrator through its API.
type Session struct {
	CreatedAt    time.Time
	LastActivity time.Time
	Key          string
	State        SessionState
	Turns        []Turn
	Candidate    Candidate

	// Draft holds the reconciled transaction while awaiting confirmation,
	// and is preserved across a failed commit so confirm can be retried.
	Draft *Draft
}
