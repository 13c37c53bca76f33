package cowork

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)

func msg(id string, at time.Time) Message {
	return Message{ID: id, MatchID: "m1", SenderID: "u1", Content: "hi " + id, CreatedAt: at}
}

func event(id, sessionID, kind string, at time.Time) SessionEvent {
	return SessionEvent{ID: id, SessionID: sessionID, EventType: kind, CreatedAt: at}
}

func activeSession(id string) Session {
	accepted := base
	return Session{
		ID: id, MatchID: "m1", Status: StatusActive,
		AcceptedAt: &accepted, CreatedAt: base.Add(-2 * time.Minute),
	}
}

func TestTimelineNewestFirst(t *testing.T) {
	messages := []Message{
		msg("a", base),
		msg("b", base.Add(time.Minute)),
		msg("c", base.Add(2*time.Minute)),
	}

	items := BuildTimeline(messages, nil, nil)

	require.Len(t, items, 3)
	assert.Equal(t, "c", items[0].ID())
	assert.Equal(t, "b", items[1].ID())
	assert.Equal(t, "a", items[2].ID())
}

func TestTimelineInterleavesCardsAndEvents(t *testing.T) {
	sess := activeSession("s1") // created 2m before base
	messages := []Message{msg("m-old", base.Add(-time.Minute))}
	events := []SessionEvent{event("e1", "s1", EventAccepted, base)}

	items := BuildTimeline(messages, events, []Session{sess})

	require.Len(t, items, 3)
	assert.Equal(t, ItemEvent, items[0].Kind)
	assert.Equal(t, "e1", items[0].ID())
	assert.Equal(t, "m-old", items[1].ID())
	assert.Equal(t, ItemSession, items[2].Kind)
	assert.Equal(t, "s1", items[2].ID())
}

func TestPendingSessionRendersAsCard(t *testing.T) {
	sess := Session{ID: "s1", MatchID: "m1", Status: StatusPending, CreatedAt: base}

	items := BuildTimeline(nil, nil, []Session{sess})

	require.Len(t, items, 1)
	assert.Equal(t, ItemSession, items[0].Kind)
	assert.Equal(t, "s1", items[0].Session.ID)
	assert.Equal(t, base, items[0].Time())
}

func TestAcceptedEventRetiresBehindNewerMessage(t *testing.T) {
	sess := activeSession("s1")
	events := []SessionEvent{event("e1", "s1", EventAccepted, base)}

	// Message strictly newer than the event hides it; the session card
	// stays.
	items := BuildTimeline([]Message{msg("m1", base.Add(time.Second))}, events, []Session{sess})
	require.Len(t, items, 2)
	assert.Equal(t, "m1", items[0].ID())
	assert.Equal(t, ItemSession, items[1].Kind)

	// A message at exactly the same instant does not.
	items = BuildTimeline([]Message{msg("m1", base)}, events, []Session{sess})
	assert.Len(t, items, 3)
}

func TestTerminalSessionsFullyHidden(t *testing.T) {
	accepted := base
	events := []SessionEvent{event("e1", "s1", EventAccepted, base)}

	for _, status := range []string{StatusDeclined, StatusCancelled} {
		sess := Session{ID: "s1", Status: status, AcceptedAt: &accepted, CreatedAt: base}
		items := BuildTimeline(nil, events, []Session{sess})
		assert.Empty(t, items, "card and events of %s session should be hidden", status)
	}
}

func TestSessionCardVisibilityByStatus(t *testing.T) {
	accepted := base
	completed := base.Add(time.Hour)

	cases := []struct {
		name    string
		sess    Session
		visible bool
	}{
		{"pending", Session{ID: "s1", Status: StatusPending, CreatedAt: base}, true},
		{"active", Session{ID: "s1", Status: StatusActive, AcceptedAt: &accepted, CreatedAt: base}, true},
		{"declined", Session{ID: "s1", Status: StatusDeclined, CreatedAt: base}, false},
		{"cancelled", Session{ID: "s1", Status: StatusCancelled, AcceptedAt: &accepted, CreatedAt: base}, false},
		{"completed unacked", Session{ID: "s1", Status: StatusCompleted, AcceptedAt: &accepted, CompletedAt: &completed, CreatedAt: base}, true},
		{"completed acked", Session{ID: "s1", Status: StatusCompleted, AcceptedAt: &accepted, CompletedAt: &completed, CompletedAck: true, CreatedAt: base}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items := BuildTimeline(nil, nil, []Session{tc.sess})
			if tc.visible {
				require.Len(t, items, 1)
				assert.Equal(t, ItemSession, items[0].Kind)
			} else {
				assert.Empty(t, items)
			}
		})
	}
}

func TestCompletedAckHidesCardAndEvents(t *testing.T) {
	accepted := base
	completed := base.Add(time.Hour)
	events := []SessionEvent{
		event("e1", "s1", EventAccepted, base),
		event("e2", "s1", EventCompleted, completed),
	}

	sess := Session{ID: "s1", Status: StatusCompleted, AcceptedAt: &accepted, CompletedAt: &completed, CompletedAck: true, CreatedAt: base.Add(-time.Minute)}
	items := BuildTimeline(nil, events, []Session{sess})
	assert.Empty(t, items)

	// Without the ack the card and the accepted announcement show; the
	// completed event never renders as a timeline row.
	sess.CompletedAck = false
	items = BuildTimeline(nil, events, []Session{sess})
	require.Len(t, items, 2)
	assert.Equal(t, ItemEvent, items[0].Kind)
	assert.Equal(t, EventAccepted, items[0].Event.EventType)
	assert.Equal(t, ItemSession, items[1].Kind)
}

func TestEventForUnknownSessionSkipped(t *testing.T) {
	events := []SessionEvent{event("e1", "ghost", EventAccepted, base)}
	items := BuildTimeline(nil, events, nil)
	assert.Empty(t, items)
}

func TestTimelineStableOnEqualTimestamps(t *testing.T) {
	var messages []Message
	for i := 0; i < 5; i++ {
		messages = append(messages, msg(fmt.Sprintf("m%d", i), base))
	}

	items := BuildTimeline(messages, nil, nil)

	// Equal timestamps keep input order within the ascending sort, so
	// reversal yields input order reversed.
	require.Len(t, items, 5)
	for i := 0; i < 5; i++ {
		assert.Equal(t, fmt.Sprintf("m%d", 4-i), items[i].ID())
	}
}

func TestTimelinePure(t *testing.T) {
	sess := activeSession("s1")
	messages := []Message{msg("m1", base)}
	events := []SessionEvent{event("e1", "s1", EventAccepted, base.Add(time.Minute))}

	first := BuildTimeline(messages, events, []Session{sess})
	second := BuildTimeline(messages, events, []Session{sess})

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID(), second[i].ID())
	}
	// Inputs unchanged.
	assert.Equal(t, "m1", messages[0].ID)
	assert.Equal(t, "e1", events[0].ID)
}
