package cowork

import (
	"sort"
	"time"
)

// ItemKind discriminates timeline entries.
type ItemKind string

const (
	ItemMessage ItemKind = "message"
	ItemEvent   ItemKind = "event"
	ItemSession ItemKind = "session"
)

// TimelineItem is one row of the chat timeline: a chat message, a
// session event announcement, or a session card.
type TimelineItem struct {
	Kind    ItemKind
	Message *Message
	Event   *SessionEvent
	Session *Session
}

// ID returns the underlying entry's unique id.
func (it TimelineItem) ID() string {
	switch it.Kind {
	case ItemMessage:
		return it.Message.ID
	case ItemEvent:
		return it.Event.ID
	default:
		return it.Session.ID
	}
}

// Time returns the underlying entry's creation time.
func (it TimelineItem) Time() time.Time {
	switch it.Kind {
	case ItemMessage:
		return it.Message.CreatedAt
	case ItemEvent:
		return it.Event.CreatedAt
	default:
		return it.Session.CreatedAt
	}
}

// BuildTimeline merges messages, session cards, and session events into
// the chat timeline, newest first. It is a pure function of its inputs.
//
// Sessions and their events are filtered by session state:
//   - declined or cancelled sessions are hidden, card and events both
//   - completed sessions with the completion acknowledged are hidden
//     (the completion is announced as a toast instead)
//   - only "accepted" events render as announcements, and an announcement
//     is hidden once any message is strictly newer than it, so it retires
//     as the conversation moves on
func BuildTimeline(messages []Message, events []SessionEvent, sessions []Session) []TimelineItem {
	byID := make(map[string]*Session, len(sessions))
	for i := range sessions {
		byID[sessions[i].ID] = &sessions[i]
	}

	items := make([]TimelineItem, 0, len(messages)+len(events)+len(sessions))
	for i := range messages {
		items = append(items, TimelineItem{Kind: ItemMessage, Message: &messages[i]})
	}

	for i := range sessions {
		if sessionVisible(&sessions[i]) {
			items = append(items, TimelineItem{Kind: ItemSession, Session: &sessions[i]})
		}
	}

	for i := range events {
		event := &events[i]
		sess, ok := byID[event.SessionID]
		if !ok {
			continue
		}
		if !eventVisible(event, sess, messages) {
			continue
		}
		items = append(items, TimelineItem{Kind: ItemEvent, Event: event})
	}

	// Ascending stable sort, then reverse: entries with equal timestamps
	// keep their input order relative to each other, newest first overall.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Time().Before(items[j].Time())
	})
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}

	return items
}

func sessionVisible(sess *Session) bool {
	switch sess.Status {
	case StatusDeclined, StatusCancelled:
		return false
	case StatusCompleted:
		return !sess.CompletedAck
	}
	return true
}

func eventVisible(event *SessionEvent, sess *Session, messages []Message) bool {
	if event.EventType != EventAccepted {
		return false
	}
	if !sessionVisible(sess) {
		return false
	}
	for i := range messages {
		if messages[i].CreatedAt.After(event.CreatedAt) {
			return false
		}
	}
	return true
}
