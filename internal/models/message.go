package models

import (
	"time"

	"github.com/google/uuid"
)

// Message represents a chat message within a match. Messages are
// immutable once created; the ID is a ULID so lexicographic order matches
// creation order.
type Message struct {
	ID        string    `json:"id"` // ULID
	MatchID   uuid.UUID `json:"match_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
