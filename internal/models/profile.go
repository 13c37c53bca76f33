package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile represents a registered user.
type Profile struct {
	ID                 uuid.UUID `json:"id"`
	Email              string    `json:"email,omitempty"`
	PasswordHash       string    `json:"-"`
	Name               string    `json:"name,omitempty"`
	PhotoURL           string    `json:"photo_url,omitempty"`
	WorkType           string    `json:"work_type,omitempty"`
	Interests          []string  `json:"interests,omitempty"`
	Bio                string    `json:"bio,omitempty"`
	OnboardingComplete bool      `json:"onboarding_complete"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
