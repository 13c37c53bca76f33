package cowork

import "time"

// Toast texts shown when a session reaches a terminal state.
const (
	ToastCompleted       = "Session Completed"
	ToastDeclined        = "Next time"
	ToastCancelledInvite = "Invite cancelled"
	ToastMissed          = "Missed this one"
)

// completedToastWindow is how long after completion the celebration
// toast may still fire. Older completions load silently.
const completedToastWindow = 60 * time.Second

// Toast is a transient banner.
type Toast struct {
	SessionID string
	Text      string
}

// markerSet remembers which session ids already produced a toast. It is
// bounded: once full, the oldest marker is evicted. Eviction can in
// principle re-admit a very old session, but terminal sessions never
// change state again, so the window only needs to cover what a single
// chat screen can reload.
type markerSet struct {
	capacity int
	order    []string
	seen     map[string]struct{}
}

func newMarkerSet(capacity int) *markerSet {
	return &markerSet{
		capacity: capacity,
		seen:     make(map[string]struct{}, capacity),
	}
}

// mark records the id, reporting whether it was new.
func (m *markerSet) mark(id string) bool {
	if _, ok := m.seen[id]; ok {
		return false
	}
	if len(m.order) >= m.capacity {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.seen, oldest)
	}
	m.seen[id] = struct{}{}
	m.order = append(m.order, id)
	return true
}

func (m *markerSet) has(id string) bool {
	_, ok := m.seen[id]
	return ok
}

// ToastGuard decides which terminal sessions still owe the user a toast
// and guarantees each fires at most once per guard lifetime.
type ToastGuard struct {
	now       func() time.Time
	completed *markerSet
	declined  *markerSet
	cancelled *markerSet
	missed    *markerSet
}

// NewToastGuard creates a guard. The clock is injectable for tests; nil
// means time.Now.
func NewToastGuard(clock func() time.Time) *ToastGuard {
	if clock == nil {
		clock = time.Now
	}
	const perKind = 256
	return &ToastGuard{
		now:       clock,
		completed: newMarkerSet(perKind),
		declined:  newMarkerSet(perKind),
		cancelled: newMarkerSet(perKind),
		missed:    newMarkerSet(perKind),
	}
}

// Evaluate inspects the sessions and returns the toasts that should fire
// now, marking each so it never fires again.
func (g *ToastGuard) Evaluate(sessions []Session) []Toast {
	var toasts []Toast
	now := g.now()

	for i := range sessions {
		sess := &sessions[i]
		switch sess.Status {
		case StatusCompleted:
			if !sess.CompletedAck || sess.CompletedAt == nil {
				continue
			}
			if now.Sub(*sess.CompletedAt) > completedToastWindow {
				continue
			}
			if g.completed.mark(sess.ID) {
				toasts = append(toasts, Toast{SessionID: sess.ID, Text: ToastCompleted})
			}

		case StatusDeclined:
			if g.declined.mark(sess.ID) {
				toasts = append(toasts, Toast{SessionID: sess.ID, Text: ToastDeclined})
			}

		case StatusCancelled:
			if !sess.WasAccepted() {
				if g.cancelled.mark(sess.ID) {
					toasts = append(toasts, Toast{SessionID: sess.ID, Text: ToastCancelledInvite})
				}
				continue
			}
			// Accepted then cancelled without a completed handshake: the
			// session was missed.
			if sess.CompletedAck {
				continue
			}
			if g.missed.mark(sess.ID) {
				toasts = append(toasts, Toast{SessionID: sess.ID, Text: ToastMissed})
			}
		}
	}

	return toasts
}
