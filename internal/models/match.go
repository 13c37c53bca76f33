package models

import (
	"time"

	"github.com/google/uuid"
)

// Match represents a mutual connection between two users. The pair is
// stored ordered (user1 < user2 lexicographically) so the same two users
// can never produce two match rows.
type Match struct {
	ID              uuid.UUID `json:"id"`
	User1ID         uuid.UUID `json:"user1_id"`
	User2ID         uuid.UUID `json:"user2_id"`
	MatchedAt       time.Time `json:"matched_at"`
	User1LastReadAt time.Time `json:"user1_last_read_at"`
	User2LastReadAt time.Time `json:"user2_last_read_at"`
}

// Involves reports whether the given user is one of the two participants.
func (m *Match) Involves(userID uuid.UUID) bool {
	return m.User1ID == userID || m.User2ID == userID
}

// OtherUser returns the participant that is not the given user.
func (m *Match) OtherUser(userID uuid.UUID) uuid.UUID {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}

// MatchPreviewUser is the subset of a profile shown in match lists.
type MatchPreviewUser struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name,omitempty"`
	PhotoURL string    `json:"photo_url,omitempty"`
}

// MatchPreview is one row of the matches list: the other participant,
// the latest message, and how many messages are unread.
type MatchPreview struct {
	MatchID       uuid.UUID        `json:"match_id"`
	OtherUser     MatchPreviewUser `json:"other_user"`
	LastMessage   string           `json:"last_message,omitempty"`
	LastMessageAt *time.Time       `json:"last_message_at,omitempty"`
	UnreadCount   int              `json:"unread_count"`
}
