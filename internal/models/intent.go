package models

import (
	"time"

	"github.com/google/uuid"
)

// Work styles a user can declare for the day.
const (
	WorkStyleDeepFocus = "Deep focus"
	WorkStyleChatty    = "Happy to chat"
	WorkStyleFlexible  = "Flexible"
)

// Location types for a work intent.
const (
	LocationCafe    = "Cafe"
	LocationLibrary = "Library"
	LocationOther   = "Anywhere/Other"
)

// WorkIntent is a user's declaration that they want to cowork today:
// what they are working on, when, where, and in what style. One per user
// per day.
type WorkIntent struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	TaskDescription string    `json:"task_description"`
	AvailableFrom   string    `json:"available_from"`  // "HH:MM"
	AvailableUntil  string    `json:"available_until"` // "HH:MM"
	WorkStyle       string    `json:"work_style"`
	LocationType    string    `json:"location_type"`
	LocationName    string    `json:"location_name,omitempty"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	IntentDate      string    `json:"intent_date"` // "YYYY-MM-DD"
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Swipe directions.
const (
	SwipeRight = "right"
	SwipeLeft  = "left"
)

// Swipe records one user's decision on another user's card for a day.
// Unique per (swiper, swiped, day); repeat inserts are benign.
type Swipe struct {
	ID        uuid.UUID `json:"id"`
	SwiperID  uuid.UUID `json:"swiper_id"`
	SwipedID  uuid.UUID `json:"swiped_id"`
	Direction string    `json:"direction"`
	SwipeDate string    `json:"swipe_date"` // "YYYY-MM-DD"
	CreatedAt time.Time `json:"created_at"`
}

// DiscoveryCard pairs a nearby user's profile with their intent for
// today and the distance to them.
type DiscoveryCard struct {
	Profile  Profile    `json:"profile"`
	Intent   WorkIntent `json:"intent"`
	Distance float64    `json:"distance"` // kilometers
}
