package store

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/chloekuoi/cowork-connect/internal/models"
)

func testPair(t *testing.T) (*models.Match, uuid.UUID, uuid.UUID) {
	t.Helper()
	initiator := uuid.New()
	invitee := uuid.New()
	u1, u2 := orderPair(initiator, invitee)
	return &models.Match{ID: uuid.New(), User1ID: u1, User2ID: u2}, initiator, invitee
}

func pendingSession(match *models.Match, initiator uuid.UUID) *models.SessionRecord {
	return &models.SessionRecord{
		ID:            uuid.New(),
		MatchID:       match.ID,
		InitiatedBy:   initiator,
		Status:        models.SessionPending,
		ScheduledDate: "2026-08-28",
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
}

func TestSessionRole(t *testing.T) {
	match, initiator, invitee := testPair(t)
	sess := pendingSession(match, initiator)

	isInit, err := sessionRole(sess, match, initiator)
	if err != nil || !isInit {
		t.Errorf("initiator role: got (%v, %v)", isInit, err)
	}

	isInit, err = sessionRole(sess, match, invitee)
	if err != nil || isInit {
		t.Errorf("invitee role: got (%v, %v)", isInit, err)
	}

	if _, err := sessionRole(sess, match, uuid.New()); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("outsider: expected ErrNotParticipant, got %v", err)
	}
}

func TestRespondAccept(t *testing.T) {
	match, initiator, _ := testPair(t)
	sess := pendingSession(match, initiator)
	now := time.Now().UTC()

	event, err := applyRespond(sess, false, models.ResponseAccept, now)
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if sess.Status != models.SessionActive {
		t.Errorf("status = %s, want active", sess.Status)
	}
	if sess.AcceptedAt == nil || !sess.AcceptedAt.Equal(now) {
		t.Errorf("AcceptedAt = %v, want %v", sess.AcceptedAt, now)
	}
	if event == nil || event.EventType != models.EventAccepted {
		t.Fatalf("expected accepted event, got %+v", event)
	}
	if event.SessionID != sess.ID {
		t.Errorf("event session = %s, want %s", event.SessionID, sess.ID)
	}
}

func TestRespondDecline(t *testing.T) {
	match, initiator, _ := testPair(t)
	sess := pendingSession(match, initiator)

	event, err := applyRespond(sess, false, models.ResponseDecline, time.Now().UTC())
	if err != nil {
		t.Fatalf("decline failed: %v", err)
	}
	if sess.Status != models.SessionDeclined {
		t.Errorf("status = %s, want declined", sess.Status)
	}
	if sess.AcceptedAt != nil {
		t.Error("decline must not set AcceptedAt")
	}
	if event != nil {
		t.Errorf("decline must not emit an event, got %+v", event)
	}
}

func TestRespondGuards(t *testing.T) {
	match, initiator, _ := testPair(t)

	sess := pendingSession(match, initiator)
	if _, err := applyRespond(sess, true, models.ResponseAccept, time.Now().UTC()); !errors.Is(err, ErrNotInvitee) {
		t.Errorf("initiator responding: expected ErrNotInvitee, got %v", err)
	}

	sess = pendingSession(match, initiator)
	sess.Status = models.SessionActive
	if _, err := applyRespond(sess, false, models.ResponseAccept, time.Now().UTC()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("responding to active: expected ErrInvalidTransition, got %v", err)
	}

	sess = pendingSession(match, initiator)
	if _, err := applyRespond(sess, false, "maybe", time.Now().UTC()); err == nil {
		t.Error("bogus response accepted")
	}
}

func TestCancelPending(t *testing.T) {
	match, initiator, _ := testPair(t)

	sess := pendingSession(match, initiator)
	if err := applyCancel(sess, false, time.Now().UTC()); !errors.Is(err, ErrNotInitiator) {
		t.Errorf("invitee cancelling pending: expected ErrNotInitiator, got %v", err)
	}
	if sess.Status != models.SessionPending {
		t.Errorf("rejected cancel mutated status to %s", sess.Status)
	}

	if err := applyCancel(sess, true, time.Now().UTC()); err != nil {
		t.Fatalf("initiator cancel failed: %v", err)
	}
	if sess.Status != models.SessionCancelled {
		t.Errorf("status = %s, want cancelled", sess.Status)
	}
	if sess.AcceptedAt != nil {
		t.Error("cancelled pending session must have nil AcceptedAt")
	}
}

func TestCancelActiveKeepsAcceptedAt(t *testing.T) {
	match, initiator, _ := testPair(t)
	sess := pendingSession(match, initiator)
	accepted := time.Now().UTC()
	if _, err := applyRespond(sess, false, models.ResponseAccept, accepted); err != nil {
		t.Fatal(err)
	}

	for _, isInitiator := range []bool{true, false} {
		s2 := *sess
		if err := applyCancel(&s2, isInitiator, accepted.Add(time.Minute)); err != nil {
			t.Fatalf("cancel active (initiator=%v) failed: %v", isInitiator, err)
		}
		if s2.Status != models.SessionCancelled {
			t.Errorf("status = %s, want cancelled", s2.Status)
		}
		if s2.AcceptedAt == nil {
			t.Error("cancel must preserve AcceptedAt on an accepted session")
		}
	}
}

func TestCancelTerminal(t *testing.T) {
	match, initiator, _ := testPair(t)
	for _, status := range []models.SessionStatus{models.SessionDeclined, models.SessionCompleted, models.SessionCancelled} {
		sess := pendingSession(match, initiator)
		sess.Status = status
		if err := applyCancel(sess, true, time.Now().UTC()); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("cancel %s: expected ErrInvalidTransition, got %v", status, err)
		}
	}
}

func TestLockInCompletes(t *testing.T) {
	match, initiator, _ := testPair(t)
	sess := pendingSession(match, initiator)
	now := time.Now().UTC()
	if _, err := applyRespond(sess, false, models.ResponseAccept, now); err != nil {
		t.Fatal(err)
	}

	event, err := applyLockIn(sess, true, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("first lock-in failed: %v", err)
	}
	if event != nil {
		t.Errorf("single lock-in must not complete, got event %+v", event)
	}
	if sess.Status != models.SessionActive {
		t.Errorf("status = %s, want active after one lock-in", sess.Status)
	}
	if sess.LockedByInitiatorAt == nil {
		t.Error("initiator lock-in not recorded")
	}

	done := now.Add(2 * time.Minute)
	event, err = applyLockIn(sess, false, done)
	if err != nil {
		t.Fatalf("second lock-in failed: %v", err)
	}
	if sess.Status != models.SessionCompleted {
		t.Errorf("status = %s, want completed", sess.Status)
	}
	if !sess.CompletedAck {
		t.Error("completion must set CompletedAck")
	}
	if sess.CompletedAt == nil || !sess.CompletedAt.Equal(done) {
		t.Errorf("CompletedAt = %v, want %v", sess.CompletedAt, done)
	}
	if event == nil || event.EventType != models.EventCompleted {
		t.Fatalf("expected completed event, got %+v", event)
	}
}

func TestLockInGuards(t *testing.T) {
	match, initiator, _ := testPair(t)

	sess := pendingSession(match, initiator)
	if _, err := applyLockIn(sess, true, time.Now().UTC()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("lock-in on pending: expected ErrInvalidTransition, got %v", err)
	}

	now := time.Now().UTC()
	if _, err := applyRespond(sess, false, models.ResponseAccept, now); err != nil {
		t.Fatal(err)
	}
	if _, err := applyLockIn(sess, true, now); err != nil {
		t.Fatal(err)
	}
	if _, err := applyLockIn(sess, true, now.Add(time.Second)); !errors.Is(err, ErrDuplicate) {
		t.Errorf("repeat lock-in: expected ErrDuplicate, got %v", err)
	}
}
