package cowork

import (
	"sync"
	"time"
)

// SessionAPI is the slice of the API the chat controller needs for
// session workflow commands and reads.
type SessionAPI interface {
	Sessions(matchID string) ([]Session, error)
	SessionEvents(sessionIDs []string) ([]SessionEvent, error)
	ProposeSession(matchID, scheduledDate string) (*Session, error)
	RespondToSession(sessionID, response string) (*Session, error)
	CancelSession(sessionID string) (*Session, error)
	LockInSession(sessionID string) (*Session, error)
}

// MessagingAPI is the slice of the API the chat controller needs for
// messages.
type MessagingAPI interface {
	Messages(matchID string) ([]Message, error)
	SendMessage(matchID, content string) (*Message, error)
	MarkRead(matchID string) error
}

// Realtime delivers live inserts and updates for a chat screen.
type Realtime interface {
	SubscribeMessages(matchID string, handler func(Message)) (UnsubscribeFunc, error)
	SubscribeSession(sessionID string, handler func(Session)) (UnsubscribeFunc, error)
	SubscribeSessionEvents(sessionID string, handler func(SessionEvent)) (UnsubscribeFunc, error)
}

// toastDuration is how long a toast stays up before auto-dismissing.
const toastDuration = 4 * time.Second

// ChatController holds the state behind one chat screen: messages,
// sessions, session events, and the transient toast. All state changes
// go through commands (which never mutate locally before the server
// confirms) or through Apply* calls fed by realtime subscriptions.
type ChatController struct {
	MatchID string

	sessions  SessionAPI
	messaging MessagingAPI
	guard     *ToastGuard
	clock     func() time.Time

	mu           sync.Mutex
	messages     []Message
	sessionList  []Session
	events       []SessionEvent
	messageIDs   map[string]struct{}
	eventIDs     map[string]struct{}
	activeToast  *Toast
	toastShownAt time.Time
	unsubs       []UnsubscribeFunc
	watched      map[string]struct{}
	rt           Realtime
}

// NewChatController creates a controller for one match. The clock is
// injectable for tests; nil means time.Now.
func NewChatController(matchID string, sessions SessionAPI, messaging MessagingAPI, clock func() time.Time) *ChatController {
	if clock == nil {
		clock = time.Now
	}
	return &ChatController{
		MatchID:    matchID,
		sessions:   sessions,
		messaging:  messaging,
		guard:      NewToastGuard(clock),
		clock:      clock,
		messageIDs: make(map[string]struct{}),
		eventIDs:   make(map[string]struct{}),
		watched:    make(map[string]struct{}),
	}
}

// Load fetches messages, sessions, and session events. A failed read
// degrades to the empty slice for that concern; the error is returned
// so callers can surface it, but the controller stays usable.
func (c *ChatController) Load() error {
	var firstErr error

	messages, err := c.messaging.Messages(c.MatchID)
	if err != nil {
		messages = nil
		firstErr = err
	}

	sessions, err := c.sessions.Sessions(c.MatchID)
	if err != nil {
		sessions = nil
		if firstErr == nil {
			firstErr = err
		}
	}

	var events []SessionEvent
	if len(sessions) > 0 {
		ids := make([]string, len(sessions))
		for i := range sessions {
			ids[i] = sessions[i].ID
		}
		events, err = c.sessions.SessionEvents(ids)
		if err != nil {
			events = nil
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	c.mu.Lock()
	c.messages = messages
	c.sessionList = sessions
	c.events = events
	c.messageIDs = make(map[string]struct{}, len(messages))
	for i := range messages {
		c.messageIDs[messages[i].ID] = struct{}{}
	}
	c.eventIDs = make(map[string]struct{}, len(events))
	for i := range events {
		c.eventIDs[events[i].ID] = struct{}{}
	}
	toasts := c.guard.Evaluate(sessions)
	c.showLocked(toasts)
	c.mu.Unlock()

	c.watchSessions(sessions)

	return firstErr
}

// Timeline returns the current reconciled timeline, newest first.
func (c *ChatController) Timeline() []TimelineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return BuildTimeline(c.messages, c.events, c.sessionList)
}

// Sessions returns a snapshot of the known sessions.
func (c *ChatController) Sessions() []Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Session, len(c.sessionList))
	copy(out, c.sessionList)
	return out
}

// OpenSession returns the pending or active session, if any.
func (c *ChatController) OpenSession() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.sessionList {
		if c.sessionList[i].Open() {
			sess := c.sessionList[i]
			return &sess
		}
	}
	return nil
}

// ActiveToast returns the toast currently on screen, or nil once it has
// auto-dismissed.
func (c *ChatController) ActiveToast() *Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeToast == nil {
		return nil
	}
	if c.clock().Sub(c.toastShownAt) > toastDuration {
		c.activeToast = nil
		return nil
	}
	toast := *c.activeToast
	return &toast
}

// showLocked displays toasts; a new toast pre-empts the current one.
// Callers hold c.mu.
func (c *ChatController) showLocked(toasts []Toast) {
	for i := range toasts {
		toast := toasts[i]
		c.activeToast = &toast
		c.toastShownAt = c.clock()
	}
}

// Send sends a chat message. Local state changes only after the server
// confirms.
func (c *ChatController) Send(content string) (*Message, error) {
	msg, err := c.messaging.SendMessage(c.MatchID, content)
	if err != nil {
		return nil, err
	}
	c.ApplyMessageInsert(*msg)
	return msg, nil
}

// MarkRead advances the read marker for this match.
func (c *ChatController) MarkRead() error {
	return c.messaging.MarkRead(c.MatchID)
}

// Propose proposes a session on this match.
func (c *ChatController) Propose(scheduledDate string) (*Session, error) {
	sess, err := c.sessions.ProposeSession(c.MatchID, scheduledDate)
	if err != nil {
		return nil, err
	}
	c.ApplySessionUpdate(*sess)
	return sess, nil
}

// Respond accepts or declines a pending session, then refreshes the
// session's events so the timeline picks up the announcement.
func (c *ChatController) Respond(sessionID, response string) (*Session, error) {
	sess, err := c.sessions.RespondToSession(sessionID, response)
	if err != nil {
		return nil, err
	}
	c.ApplySessionUpdate(*sess)
	c.refreshEvents(sessionID)
	return sess, nil
}

// Cancel cancels a pending or active session.
func (c *ChatController) Cancel(sessionID string) (*Session, error) {
	sess, err := c.sessions.CancelSession(sessionID)
	if err != nil {
		return nil, err
	}
	c.ApplySessionUpdate(*sess)
	return sess, nil
}

// LockIn records this user's lock-in on an active session.
func (c *ChatController) LockIn(sessionID string) (*Session, error) {
	sess, err := c.sessions.LockInSession(sessionID)
	if err != nil {
		return nil, err
	}
	c.ApplySessionUpdate(*sess)
	c.refreshEvents(sessionID)
	return sess, nil
}

func (c *ChatController) refreshEvents(sessionID string) {
	events, err := c.sessions.SessionEvents([]string{sessionID})
	if err != nil {
		return
	}
	for i := range events {
		c.ApplySessionEventInsert(events[i])
	}
}

// ApplyMessageInsert merges a realtime-delivered message. Duplicate
// deliveries are ignored.
func (c *ChatController) ApplyMessageInsert(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.messageIDs[msg.ID]; ok {
		return
	}
	c.messageIDs[msg.ID] = struct{}{}
	c.messages = append(c.messages, msg)
}

// ApplySessionUpdate merges a session state change, re-evaluating the
// toast rules for it.
func (c *ChatController) ApplySessionUpdate(sess Session) {
	c.mu.Lock()
	found := false
	for i := range c.sessionList {
		if c.sessionList[i].ID == sess.ID {
			c.sessionList[i] = sess
			found = true
			break
		}
	}
	if !found {
		c.sessionList = append(c.sessionList, sess)
	}
	toasts := c.guard.Evaluate([]Session{sess})
	c.showLocked(toasts)
	c.mu.Unlock()

	c.watchSessions([]Session{sess})
}

// ApplySessionEventInsert merges a realtime-delivered session event.
// Duplicate deliveries are ignored.
func (c *ChatController) ApplySessionEventInsert(event SessionEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.eventIDs[event.ID]; ok {
		return
	}
	c.eventIDs[event.ID] = struct{}{}
	c.events = append(c.events, event)
}

// Watch wires realtime delivery into the controller: new messages for
// the match and, for every known session, state updates and events. New
// sessions get subscriptions as they appear.
func (c *ChatController) Watch(rt Realtime) error {
	c.mu.Lock()
	c.rt = rt
	sessions := make([]Session, len(c.sessionList))
	copy(sessions, c.sessionList)
	c.mu.Unlock()

	unsub, err := rt.SubscribeMessages(c.MatchID, c.ApplyMessageInsert)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.unsubs = append(c.unsubs, unsub)
	c.mu.Unlock()

	c.watchSessions(sessions)
	return nil
}

// watchSessions subscribes to sessions not yet watched.
func (c *ChatController) watchSessions(sessions []Session) {
	c.mu.Lock()
	rt := c.rt
	if rt == nil {
		c.mu.Unlock()
		return
	}
	var fresh []string
	for i := range sessions {
		id := sessions[i].ID
		if _, ok := c.watched[id]; ok {
			continue
		}
		c.watched[id] = struct{}{}
		fresh = append(fresh, id)
	}
	c.mu.Unlock()

	for _, id := range fresh {
		if unsub, err := rt.SubscribeSession(id, c.ApplySessionUpdate); err == nil {
			c.mu.Lock()
			c.unsubs = append(c.unsubs, unsub)
			c.mu.Unlock()
		}
		if unsub, err := rt.SubscribeSessionEvents(id, c.ApplySessionEventInsert); err == nil {
			c.mu.Lock()
			c.unsubs = append(c.unsubs, unsub)
			c.mu.Unlock()
		}
	}
}

// Close tears down all realtime subscriptions.
func (c *ChatController) Close() {
	c.mu.Lock()
	unsubs := c.unsubs
	c.unsubs = nil
	c.rt = nil
	c.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}
