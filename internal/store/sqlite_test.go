package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/chloekuoi/cowork-connect/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func createUser(t *testing.T, s *SQLiteStore, email, name string) *models.Profile {
	t.Helper()
	p, err := s.CreateProfile(context.Background(), email, "hash", name)
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return p
}

func createTestMatch(t *testing.T, s *SQLiteStore) (*models.Match, *models.Profile, *models.Profile) {
	t.Helper()
	a := createUser(t, s, "a@example.com", "A")
	b := createUser(t, s, "b@example.com", "B")
	m, err := s.CreateMatch(context.Background(), a.ID, b.ID)
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	return m, a, b
}

func TestProfileRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := createUser(t, s, "a@example.com", "Alice")
	if p.Email != "a@example.com" || p.Name != "Alice" {
		t.Errorf("unexpected profile %+v", p)
	}

	p.Bio = "remote developer"
	p.Interests = []string{"go", "coffee"}
	p.OnboardingComplete = true
	if err := s.UpdateProfile(ctx, p); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.GetProfileByEmail(ctx, "a@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Bio != "remote developer" || len(got.Interests) != 2 || !got.OnboardingComplete {
		t.Errorf("round trip lost fields: %+v", got)
	}

	missing, err := s.GetProfileByID(ctx, uuid.New())
	if err != nil || missing != nil {
		t.Errorf("missing profile: got (%v, %v)", missing, err)
	}
}

func TestIntentUpsertReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "a@example.com", "A")

	intent := &models.WorkIntent{
		UserID: u.ID, TaskDescription: "write docs",
		Latitude: 51.5, Longitude: -0.1, IntentDate: "2026-08-28",
	}
	first, err := s.UpsertIntent(ctx, intent)
	if err != nil {
		t.Fatal(err)
	}

	intent.TaskDescription = "review PRs"
	second, err := s.UpsertIntent(ctx, intent)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Errorf("upsert created a second row: %s vs %s", second.ID, first.ID)
	}
	if second.TaskDescription != "review PRs" {
		t.Errorf("task not replaced: %q", second.TaskDescription)
	}
}

func TestSwipeDuplicateAndMatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := createUser(t, s, "a@example.com", "A")
	b := createUser(t, s, "b@example.com", "B")

	if err := s.RecordSwipe(ctx, a.ID, b.ID, "right", "2026-08-28"); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordSwipe(ctx, a.ID, b.ID, "right", "2026-08-28"); !errors.Is(err, ErrDuplicate) {
		t.Errorf("repeat swipe: expected ErrDuplicate, got %v", err)
	}

	mutual, err := s.HasRightSwipe(ctx, a.ID, b.ID, "2026-08-28")
	if err != nil || !mutual {
		t.Errorf("HasRightSwipe = (%v, %v)", mutual, err)
	}

	m1, err := s.CreateMatch(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	m2, err := s.CreateMatch(ctx, b.ID, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if m1.ID != m2.ID {
		t.Errorf("match not idempotent for the pair: %s vs %s", m1.ID, m2.ID)
	}
}

func TestMessagesAndUnread(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m, a, b := createTestMatch(t, s)

	for i, id := range []string{"01AAA", "01AAB", "01AAC"} {
		sender := a.ID
		if i > 0 {
			sender = b.ID
		}
		if err := s.InsertMessage(ctx, &models.Message{
			ID: id, MatchID: m.ID, SenderID: sender, Content: "hello", CreatedAt: nowUTC(),
		}); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := s.ListMessages(ctx, m.ID)
	if err != nil || len(msgs) != 3 {
		t.Fatalf("ListMessages = (%d, %v)", len(msgs), err)
	}

	// A has two unread (both from B, after the initial read marker).
	count, err := s.UnreadCount(ctx, a.ID)
	if err != nil || count != 2 {
		t.Errorf("UnreadCount = (%d, %v), want 2", count, err)
	}

	if err := s.MarkChatRead(ctx, m.ID, a.ID); err != nil {
		t.Fatal(err)
	}
	count, err = s.UnreadCount(ctx, a.ID)
	if err != nil || count != 0 {
		t.Errorf("UnreadCount after read = (%d, %v), want 0", count, err)
	}

	previews, err := s.ListMatchPreviews(ctx, a.ID)
	if err != nil || len(previews) != 1 {
		t.Fatalf("ListMatchPreviews = (%d, %v)", len(previews), err)
	}
	if previews[0].OtherUser.ID != b.ID || previews[0].LastMessage != "hello" {
		t.Errorf("preview = %+v", previews[0])
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m, a, b := createTestMatch(t, s)

	sess, err := s.CreateSession(ctx, m.ID, a.ID, "2026-08-28")
	if err != nil {
		t.Fatal(err)
	}
	if sess.Status != models.SessionPending {
		t.Errorf("status = %s, want pending", sess.Status)
	}

	// Only one open session per match.
	if _, err := s.CreateSession(ctx, m.ID, b.ID, "2026-08-29"); !errors.Is(err, ErrSessionExists) {
		t.Errorf("second open session: expected ErrSessionExists, got %v", err)
	}

	// Initiator cannot respond.
	if _, _, err := s.RespondToSession(ctx, sess.ID, a.ID, models.ResponseAccept); !errors.Is(err, ErrNotInvitee) {
		t.Errorf("initiator responding: expected ErrNotInvitee, got %v", err)
	}

	sess, event, err := s.RespondToSession(ctx, sess.ID, b.ID, models.ResponseAccept)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Status != models.SessionActive || sess.AcceptedAt == nil {
		t.Errorf("after accept: %+v", sess)
	}
	if event == nil || event.EventType != models.EventAccepted {
		t.Fatalf("expected accepted event, got %+v", event)
	}

	sess, event, err = s.LockInSession(ctx, sess.ID, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Status != models.SessionActive || event != nil {
		t.Errorf("single lock-in: %+v event=%+v", sess, event)
	}
	if _, _, err := s.LockInSession(ctx, sess.ID, a.ID); !errors.Is(err, ErrDuplicate) {
		t.Errorf("repeat lock-in: expected ErrDuplicate, got %v", err)
	}

	sess, event, err = s.LockInSession(ctx, sess.ID, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Status != models.SessionCompleted || !sess.CompletedAck || sess.CompletedAt == nil {
		t.Errorf("after both lock-ins: %+v", sess)
	}
	if event == nil || event.EventType != models.EventCompleted {
		t.Fatalf("expected completed event, got %+v", event)
	}

	events, err := s.ListSessionEvents(ctx, []uuid.UUID{sess.ID})
	if err != nil || len(events) != 2 {
		t.Fatalf("ListSessionEvents = (%d, %v), want 2", len(events), err)
	}
	if !events[0].CreatedAt.Before(events[1].CreatedAt) && !events[0].CreatedAt.Equal(events[1].CreatedAt) {
		t.Error("events not in chronological order")
	}

	// Completed session no longer blocks a new one.
	if _, err := s.CreateSession(ctx, m.ID, b.ID, "2026-08-29"); err != nil {
		t.Errorf("new session after completion: %v", err)
	}
}

func TestCancelRules(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m, a, b := createTestMatch(t, s)

	sess, err := s.CreateSession(ctx, m.ID, a.ID, "2026-08-28")
	if err != nil {
		t.Fatal(err)
	}

	// Invitee cannot cancel a pending session.
	if _, err := s.CancelSession(ctx, sess.ID, b.ID); !errors.Is(err, ErrNotInitiator) {
		t.Errorf("invitee cancel pending: expected ErrNotInitiator, got %v", err)
	}

	// Outsiders get ErrNotParticipant.
	outsider := createUser(t, s, "c@example.com", "C")
	if _, err := s.CancelSession(ctx, sess.ID, outsider.ID); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("outsider cancel: expected ErrNotParticipant, got %v", err)
	}

	sess, _, err = s.RespondToSession(ctx, sess.ID, b.ID, models.ResponseAccept)
	if err != nil {
		t.Fatal(err)
	}

	// Either participant can cancel once active; AcceptedAt survives.
	cancelled, err := s.CancelSession(ctx, sess.ID, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if cancelled.Status != models.SessionCancelled || cancelled.AcceptedAt == nil {
		t.Errorf("cancelled active session: %+v", cancelled)
	}
}

func TestAutoCancelStaleSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m, a, _ := createTestMatch(t, s)

	stale, err := s.CreateSession(ctx, m.ID, a.ID, "2026-08-27")
	if err != nil {
		t.Fatal(err)
	}

	cancelled, err := s.AutoCancelStaleSessions(ctx, "2026-08-28")
	if err != nil {
		t.Fatal(err)
	}
	if len(cancelled) != 1 || cancelled[0].ID != stale.ID {
		t.Fatalf("cancelled = %+v", cancelled)
	}

	got, err := s.GetSession(ctx, stale.ID)
	if err != nil || got == nil || got.Status != models.SessionCancelled {
		t.Errorf("stale session not cancelled: %+v err=%v", got, err)
	}

	// Nothing left to sweep.
	again, err := s.AutoCancelStaleSessions(ctx, "2026-08-28")
	if err != nil || len(again) != 0 {
		t.Errorf("second sweep = (%d, %v)", len(again), err)
	}
}
