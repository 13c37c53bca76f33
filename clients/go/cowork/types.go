package cowork

import "time"

// Session statuses.
const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusDeclined  = "declined"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Responses to a pending session.
const (
	ResponseAccept  = "accept"
	ResponseDecline = "decline"
)

// Session event types.
const (
	EventAccepted  = "accepted"
	EventCompleted = "completed"
)

// Profile represents a user account.
type Profile struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email,omitempty"`
	Name               string    `json:"name,omitempty"`
	PhotoURL           string    `json:"photo_url,omitempty"`
	WorkType           string    `json:"work_type,omitempty"`
	Interests          []string  `json:"interests,omitempty"`
	Bio                string    `json:"bio,omitempty"`
	OnboardingComplete bool      `json:"onboarding_complete"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// WorkIntent is a user's coworking declaration for one day.
type WorkIntent struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	TaskDescription string    `json:"task_description"`
	AvailableFrom   string    `json:"available_from"`
	AvailableUntil  string    `json:"available_until"`
	WorkStyle       string    `json:"work_style"`
	LocationType    string    `json:"location_type"`
	LocationName    string    `json:"location_name,omitempty"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	IntentDate      string    `json:"intent_date"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DiscoveryCard is one nearby candidate.
type DiscoveryCard struct {
	Profile  Profile    `json:"profile"`
	Intent   WorkIntent `json:"intent"`
	Distance float64    `json:"distance"` // kilometers
}

// Match is a mutual connection between two users.
type Match struct {
	ID        string    `json:"id"`
	User1ID   string    `json:"user1_id"`
	User2ID   string    `json:"user2_id"`
	MatchedAt time.Time `json:"matched_at"`
}

// MatchPreviewUser is the other participant shown in a match list row.
type MatchPreviewUser struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	PhotoURL string `json:"photo_url,omitempty"`
}

// MatchPreview is one row of the matches list.
type MatchPreview struct {
	MatchID       string           `json:"match_id"`
	OtherUser     MatchPreviewUser `json:"other_user"`
	LastMessage   string           `json:"last_message,omitempty"`
	LastMessageAt *time.Time       `json:"last_message_at,omitempty"`
	UnreadCount   int              `json:"unread_count"`
}

// Message is a chat message within a match.
type Message struct {
	ID        string    `json:"id"`
	MatchID   string    `json:"match_id"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is a proposed or confirmed coworking session on a match.
type Session struct {
	ID                  string     `json:"id"`
	MatchID             string     `json:"match_id"`
	InitiatedBy         string     `json:"initiated_by"`
	Status              string     `json:"status"`
	ScheduledDate       string     `json:"scheduled_date"`
	AcceptedAt          *time.Time `json:"accepted_at,omitempty"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	CompletedAck        bool       `json:"completed_ack"`
	LockedByInitiatorAt *time.Time `json:"locked_by_initiator_at,omitempty"`
	LockedByInviteeAt   *time.Time `json:"locked_by_invitee_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// WasAccepted reports whether the session was ever accepted. Its value
// survives cancellation and is what separates a missed session from a
// cancelled invite.
func (s *Session) WasAccepted() bool {
	return s.AcceptedAt != nil
}

// Open reports whether the session is still pending or active.
func (s *Session) Open() bool {
	return s.Status == StatusPending || s.Status == StatusActive
}

// SessionEvent is an append-only timeline entry for a session.
type SessionEvent struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	EventType string    `json:"event_type"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
