package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a coworking session.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionActive    SessionStatus = "active"
	SessionDeclined  SessionStatus = "declined"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// Responses accepted by the respond operation.
const (
	ResponseAccept  = "accept"
	ResponseDecline = "decline"
)

// Session event types worth announcing in a chat timeline.
const (
	EventAccepted  = "accepted"
	EventCompleted = "completed"
)

// Terminal reports whether no further status transitions are possible.
func (s SessionStatus) Terminal() bool {
	switch s {
	case SessionDeclined, SessionCompleted, SessionCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine permits moving from s
// to next: pending -> {active, declined, cancelled},
// active -> {completed, cancelled}.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case SessionPending:
		return next == SessionActive || next == SessionDeclined || next == SessionCancelled
	case SessionActive:
		return next == SessionCompleted || next == SessionCancelled
	}
	return false
}

// SessionRecord represents a proposed or confirmed coworking session tied
// to a match. The row is owned by the server; clients only issue intents.
type SessionRecord struct {
	ID                  uuid.UUID     `json:"id"`
	MatchID             uuid.UUID     `json:"match_id"`
	InitiatedBy         uuid.UUID     `json:"initiated_by"`
	Status              SessionStatus `json:"status"`
	ScheduledDate       string        `json:"scheduled_date"` // "YYYY-MM-DD"
	AcceptedAt          *time.Time    `json:"accepted_at,omitempty"`
	CompletedAt         *time.Time    `json:"completed_at,omitempty"`
	CompletedAck        bool          `json:"completed_ack"`
	LockedByInitiatorAt *time.Time    `json:"locked_by_initiator_at,omitempty"`
	LockedByInviteeAt   *time.Time    `json:"locked_by_invitee_at,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// WasAccepted reports whether the session was ever accepted. This is what
// distinguishes a missed session from a cancelled invite.
func (s *SessionRecord) WasAccepted() bool {
	return s.AcceptedAt != nil
}

// BothLockedIn reports whether both participants have confirmed the
// session is proceeding; only then is it eligible for completion.
func (s *SessionRecord) BothLockedIn() bool {
	return s.LockedByInitiatorAt != nil && s.LockedByInviteeAt != nil
}

// Open reports whether the session still blocks creating a new one for
// the same match.
func (s *SessionRecord) Open() bool {
	return s.Status == SessionPending || s.Status == SessionActive
}

// SessionEvent is an immutable append-only log entry produced when a
// state transition worth announcing occurs.
type SessionEvent struct {
	ID        string    `json:"id"` // ULID
	SessionID uuid.UUID `json:"session_id"`
	EventType string    `json:"event_type"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
