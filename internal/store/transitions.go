package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/chloekuoi/cowork-connect/internal/models"
)

// Session transitions are validated and applied here, in memory, so both
// store implementations share one state machine. Callers load the row
// (with the match, to resolve roles), apply, and persist inside a
// transaction.

// sessionRole resolves which side of the session the user is on.
// Returns ErrNotParticipant if the user is not in the match.
func sessionRole(sess *models.SessionRecord, match *models.Match, userID uuid.UUID) (isInitiator bool, err error) {
	if !match.Involves(userID) {
		return false, ErrNotParticipant
	}
	return sess.InitiatedBy == userID, nil
}

// applyRespond applies an accept or decline by the invitee to a pending
// session. On accept it returns the session event to append.
func applyRespond(sess *models.SessionRecord, isInitiator bool, response string, now time.Time) (*models.SessionEvent, error) {
	if isInitiator {
		return nil, ErrNotInvitee
	}
	if sess.Status != models.SessionPending {
		return nil, ErrInvalidTransition
	}

	switch response {
	case models.ResponseAccept:
		sess.Status = models.SessionActive
		sess.AcceptedAt = &now
		sess.UpdatedAt = now
		return &models.SessionEvent{
			ID:        ulid.Make().String(),
			SessionID: sess.ID,
			EventType: models.EventAccepted,
			Message:   "Session accepted",
			CreatedAt: now,
		}, nil
	case models.ResponseDecline:
		sess.Status = models.SessionDeclined
		sess.UpdatedAt = now
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid response %q", response)
	}
}

// applyCancel cancels a pending session (initiator only) or an active
// session (either participant). AcceptedAt is left untouched: its
// presence is what distinguishes a missed session from a cancelled
// invite downstream.
func applyCancel(sess *models.SessionRecord, isInitiator bool, now time.Time) error {
	switch sess.Status {
	case models.SessionPending:
		if !isInitiator {
			return ErrNotInitiator
		}
	case models.SessionActive:
		// either party
	default:
		return ErrInvalidTransition
	}
	sess.Status = models.SessionCancelled
	sess.UpdatedAt = now
	return nil
}

// applyLockIn records the caller's lock-in timestamp on an active
// session. When the second participant locks in, the same application
// completes the session and returns the completion event. A repeat
// lock-in by the same participant returns ErrDuplicate.
func applyLockIn(sess *models.SessionRecord, isInitiator bool, now time.Time) (*models.SessionEvent, error) {
	if sess.Status != models.SessionActive {
		return nil, ErrInvalidTransition
	}

	if isInitiator {
		if sess.LockedByInitiatorAt != nil {
			return nil, ErrDuplicate
		}
		sess.LockedByInitiatorAt = &now
	} else {
		if sess.LockedByInviteeAt != nil {
			return nil, ErrDuplicate
		}
		sess.LockedByInviteeAt = &now
	}
	sess.UpdatedAt = now

	if !sess.BothLockedIn() {
		return nil, nil
	}

	sess.Status = models.SessionCompleted
	sess.CompletedAt = &now
	sess.CompletedAck = true
	return &models.SessionEvent{
		ID:        ulid.Make().String(),
		SessionID: sess.ID,
		EventType: models.EventCompleted,
		Message:   "Session completed",
		CreatedAt: now,
	}, nil
}
