package cowork

import (
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI emulates the server for one match.
type fakeAPI struct {
	mu       sync.Mutex
	userID   string
	messages []Message
	sessions []Session
	events   []SessionEvent
	now      time.Time

	failMessages bool
	failSend     bool

	nextID int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{userID: "me", now: base}
}

func (f *fakeAPI) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeAPI) Messages(matchID string) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMessages {
		return nil, &FetchError{Op: "messages", Err: &APIError{Status: 500, Message: "boom"}}
	}
	out := make([]Message, len(f.messages))
	copy(out, f.messages)
	return out, nil
}

func (f *fakeAPI) SendMessage(matchID, content string) (*Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend {
		return nil, &CommandError{Op: "send message", Err: &APIError{Status: 500, Message: "boom"}}
	}
	f.now = f.now.Add(time.Second)
	msg := Message{ID: f.id("msg"), MatchID: matchID, SenderID: f.userID, Content: content, CreatedAt: f.now}
	f.messages = append(f.messages, msg)
	return &msg, nil
}

func (f *fakeAPI) MarkRead(matchID string) error { return nil }

func (f *fakeAPI) Sessions(matchID string) ([]Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Session, len(f.sessions))
	copy(out, f.sessions)
	return out, nil
}

func (f *fakeAPI) SessionEvents(sessionIDs []string) ([]SessionEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[string]bool, len(sessionIDs))
	for _, id := range sessionIDs {
		want[id] = true
	}
	var out []SessionEvent
	for _, ev := range f.events {
		if want[ev.SessionID] {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeAPI) find(sessionID string) *Session {
	for i := range f.sessions {
		if f.sessions[i].ID == sessionID {
			return &f.sessions[i]
		}
	}
	return nil
}

func (f *fakeAPI) ProposeSession(matchID, scheduledDate string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.sessions {
		if f.sessions[i].Open() {
			return nil, &CommandError{Op: "propose session",
				Err: &APIError{Status: http.StatusConflict, Message: "an open session already exists"}}
		}
	}
	f.now = f.now.Add(time.Second)
	sess := Session{
		ID: f.id("sess"), MatchID: matchID, InitiatedBy: f.userID,
		Status: StatusPending, ScheduledDate: scheduledDate,
		CreatedAt: f.now, UpdatedAt: f.now,
	}
	f.sessions = append(f.sessions, sess)
	return &sess, nil
}

func (f *fakeAPI) RespondToSession(sessionID, response string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess := f.find(sessionID)
	if sess == nil || sess.Status != StatusPending {
		return nil, &CommandError{Op: "respond to session",
			Err: &APIError{Status: http.StatusConflict, Message: "not pending"}}
	}
	f.now = f.now.Add(time.Second)
	if response == ResponseAccept {
		at := f.now
		sess.Status = StatusActive
		sess.AcceptedAt = &at
		f.events = append(f.events, SessionEvent{
			ID: f.id("ev"), SessionID: sess.ID, EventType: EventAccepted,
			Message: "Session accepted", CreatedAt: at,
		})
	} else {
		sess.Status = StatusDeclined
	}
	sess.UpdatedAt = f.now
	out := *sess
	return &out, nil
}

func (f *fakeAPI) CancelSession(sessionID string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess := f.find(sessionID)
	if sess == nil || !sess.Open() {
		return nil, &CommandError{Op: "cancel session",
			Err: &APIError{Status: http.StatusConflict, Message: "not open"}}
	}
	f.now = f.now.Add(time.Second)
	sess.Status = StatusCancelled
	sess.UpdatedAt = f.now
	out := *sess
	return &out, nil
}

func (f *fakeAPI) LockInSession(sessionID string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess := f.find(sessionID)
	if sess == nil || sess.Status != StatusActive {
		return nil, &CommandError{Op: "lock in session",
			Err: &APIError{Status: http.StatusConflict, Message: "not active"}}
	}
	f.now = f.now.Add(time.Second)
	at := f.now
	if sess.LockedByInitiatorAt == nil {
		sess.LockedByInitiatorAt = &at
	} else if sess.LockedByInviteeAt == nil {
		sess.LockedByInviteeAt = &at
		sess.Status = StatusCompleted
		sess.CompletedAt = &at
		sess.CompletedAck = true
		f.events = append(f.events, SessionEvent{
			ID: f.id("ev"), SessionID: sess.ID, EventType: EventCompleted,
			Message: "Session completed", CreatedAt: at,
		})
	} else {
		return nil, &CommandError{Op: "lock in session",
			Err: &APIError{Status: http.StatusConflict, Message: "already recorded"}}
	}
	sess.UpdatedAt = f.now
	out := *sess
	return &out, nil
}

type movableClock struct {
	mu sync.Mutex
	at time.Time
}

func (c *movableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *movableClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.at = c.at.Add(d)
	c.mu.Unlock()
}

func newController(api *fakeAPI) (*ChatController, *movableClock) {
	clock := &movableClock{at: base}
	return NewChatController("m1", api, api, clock.Now), clock
}

func TestLoadAndSend(t *testing.T) {
	api := newFakeAPI()
	ctrl, _ := newController(api)

	require.NoError(t, ctrl.Load())
	assert.Empty(t, ctrl.Timeline())

	msg, err := ctrl.Send("hello")
	require.NoError(t, err)

	items := ctrl.Timeline()
	require.Len(t, items, 1)
	assert.Equal(t, msg.ID, items[0].ID())
	assert.Equal(t, "hello", items[0].Message.Content)
}

func TestFailedCommandLeavesStateUntouched(t *testing.T) {
	api := newFakeAPI()
	api.failSend = true
	ctrl, _ := newController(api)
	require.NoError(t, ctrl.Load())

	_, err := ctrl.Send("hello")
	require.Error(t, err)
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)

	assert.Empty(t, ctrl.Timeline())
}

func TestLoadDegradesOnFetchError(t *testing.T) {
	api := newFakeAPI()
	api.failMessages = true
	api.sessions = []Session{{ID: "s1", MatchID: "m1", Status: StatusPending, CreatedAt: base}}
	ctrl, _ := newController(api)

	err := ctrl.Load()
	require.Error(t, err)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)

	// Sessions still loaded; the controller stays usable.
	require.Len(t, ctrl.Sessions(), 1)
	assert.NotNil(t, ctrl.OpenSession())
}

func TestSessionWorkflowAcceptShowsEvent(t *testing.T) {
	api := newFakeAPI()
	ctrl, _ := newController(api)
	require.NoError(t, ctrl.Load())

	sess, err := ctrl.Propose("2026-08-28")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, sess.Status)

	// Only one open session per match.
	_, err = ctrl.Propose("2026-08-29")
	require.Error(t, err)
	assert.True(t, IsConflict(err))

	sess, err = ctrl.Respond(sess.ID, ResponseAccept)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, sess.Status)
	require.NotNil(t, sess.AcceptedAt)

	// Announcement newest, then the session card.
	items := ctrl.Timeline()
	require.Len(t, items, 2)
	assert.Equal(t, ItemEvent, items[0].Kind)
	assert.Equal(t, EventAccepted, items[0].Event.EventType)
	assert.Equal(t, ItemSession, items[1].Kind)
	assert.Equal(t, sess.ID, items[1].Session.ID)

	// A newer message retires the announcement; the card stays.
	_, err = ctrl.Send("on my way")
	require.NoError(t, err)
	items = ctrl.Timeline()
	require.Len(t, items, 2)
	assert.Equal(t, ItemMessage, items[0].Kind)
	assert.Equal(t, ItemSession, items[1].Kind)
}

func TestLockInCompletionShowsToastAndHidesEvents(t *testing.T) {
	api := newFakeAPI()
	ctrl, clock := newController(api)
	require.NoError(t, ctrl.Load())

	sess, err := ctrl.Propose("2026-08-28")
	require.NoError(t, err)
	_, err = ctrl.Respond(sess.ID, ResponseAccept)
	require.NoError(t, err)

	_, err = ctrl.LockIn(sess.ID)
	require.NoError(t, err)
	done, err := ctrl.LockIn(sess.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, done.Status)
	assert.True(t, done.CompletedAck)
	require.NotNil(t, done.CompletedAt)

	// Completion toast fires once, within the window.
	clock.at = done.CompletedAt.Add(time.Second)
	toast := ctrl.ActiveToast()
	require.NotNil(t, toast)
	assert.Equal(t, ToastCompleted, toast.Text)

	// Acknowledged completion hides the session's card and events.
	assert.Empty(t, ctrl.Timeline())
}

func TestDeclineToastOncePerGuard(t *testing.T) {
	api := newFakeAPI()
	ctrl, _ := newController(api)
	require.NoError(t, ctrl.Load())

	sess, err := ctrl.Propose("2026-08-28")
	require.NoError(t, err)
	_, err = ctrl.Respond(sess.ID, ResponseDecline)
	require.NoError(t, err)

	toast := ctrl.ActiveToast()
	require.NotNil(t, toast)
	assert.Equal(t, ToastDeclined, toast.Text)

	// Reload does not replay the toast.
	require.NoError(t, ctrl.Load())
	ctrl.activeToast = nil
	assert.Nil(t, ctrl.ActiveToast())
}

func TestCancelledToasts(t *testing.T) {
	t.Run("pending cancel is a withdrawn invite", func(t *testing.T) {
		api := newFakeAPI()
		ctrl, _ := newController(api)
		require.NoError(t, ctrl.Load())

		sess, err := ctrl.Propose("2026-08-28")
		require.NoError(t, err)
		_, err = ctrl.Cancel(sess.ID)
		require.NoError(t, err)

		toast := ctrl.ActiveToast()
		require.NotNil(t, toast)
		assert.Equal(t, ToastCancelledInvite, toast.Text)
	})

	t.Run("active cancel is a missed session", func(t *testing.T) {
		api := newFakeAPI()
		ctrl, _ := newController(api)
		require.NoError(t, ctrl.Load())

		sess, err := ctrl.Propose("2026-08-28")
		require.NoError(t, err)
		_, err = ctrl.Respond(sess.ID, ResponseAccept)
		require.NoError(t, err)
		_, err = ctrl.Cancel(sess.ID)
		require.NoError(t, err)

		toast := ctrl.ActiveToast()
		require.NotNil(t, toast)
		assert.Equal(t, ToastMissed, toast.Text)
	})
}

func TestToastAutoDismissAndPreemption(t *testing.T) {
	api := newFakeAPI()
	ctrl, clock := newController(api)
	require.NoError(t, ctrl.Load())

	sess, err := ctrl.Propose("2026-08-28")
	require.NoError(t, err)
	_, err = ctrl.Respond(sess.ID, ResponseDecline)
	require.NoError(t, err)
	require.NotNil(t, ctrl.ActiveToast())

	// Auto-dismiss after the display window.
	clock.Advance(toastDuration + time.Second)
	assert.Nil(t, ctrl.ActiveToast())

	// A new terminal session pre-empts whatever is showing.
	sess2, err := ctrl.Propose("2026-08-29")
	require.NoError(t, err)
	_, err = ctrl.Cancel(sess2.ID)
	require.NoError(t, err)

	toast := ctrl.ActiveToast()
	require.NotNil(t, toast)
	assert.Equal(t, ToastCancelledInvite, toast.Text)
	assert.Equal(t, sess2.ID, toast.SessionID)
}

func TestRealtimeInsertsAreIdempotent(t *testing.T) {
	api := newFakeAPI()
	ctrl, _ := newController(api)
	require.NoError(t, ctrl.Load())

	m := Message{ID: "dup", MatchID: "m1", SenderID: "other", Content: "hey", CreatedAt: base}
	ctrl.ApplyMessageInsert(m)
	ctrl.ApplyMessageInsert(m)
	assert.Len(t, ctrl.Timeline(), 1)

	sess := Session{ID: "s9", MatchID: "m1", Status: StatusActive, AcceptedAt: &base, CreatedAt: base}
	ctrl.ApplySessionUpdate(sess)
	ev := SessionEvent{ID: "ev-dup", SessionID: "s9", EventType: EventAccepted, CreatedAt: base.Add(time.Minute)}
	ctrl.ApplySessionEventInsert(ev)
	ctrl.ApplySessionEventInsert(ev)

	// Message, session card, and one event.
	assert.Len(t, ctrl.Timeline(), 3)
}

func TestSessionUpdateReplacesById(t *testing.T) {
	api := newFakeAPI()
	ctrl, _ := newController(api)
	require.NoError(t, ctrl.Load())

	ctrl.ApplySessionUpdate(Session{ID: "s1", MatchID: "m1", Status: StatusPending})
	require.NotNil(t, ctrl.OpenSession())

	ctrl.ApplySessionUpdate(Session{ID: "s1", MatchID: "m1", Status: StatusDeclined})
	assert.Nil(t, ctrl.OpenSession())
	assert.Len(t, ctrl.Sessions(), 1)
}
