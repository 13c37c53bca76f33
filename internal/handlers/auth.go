package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/chloekuoi/cowork-connect/internal/api/middleware"
	"github.com/chloekuoi/cowork-connect/internal/metrics"
	"github.com/chloekuoi/cowork-connect/internal/models"
)

// SignupRequest represents a signup request.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Token   string          `json:"token"`
	Profile *models.Profile `json:"profile"`
}

// Signup handles account creation.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if !isValidEmail(req.Email) {
		h.Error(w, http.StatusBadRequest, "invalid email")
		return
	}
	if len(req.Password) < 8 {
		h.Error(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	name := sanitizeName(req.Name)
	if name == "" {
		h.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	existing, err := h.db.GetProfileByEmail(r.Context(), req.Email)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if existing != nil {
		h.Error(w, http.StatusConflict, "email already registered")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "hashing failed")
		return
	}

	profile, err := h.db.CreateProfile(r.Context(), req.Email, string(hash), name)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to create profile")
		return
	}

	token, err := h.redis.CreateToken(r.Context(), profile.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	metrics.UsersRegistered.Inc()
	h.JSON(w, http.StatusCreated, AuthResponse{Token: token, Profile: profile})
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles password authentication and issues a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	profile, err := h.db.GetProfileByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if profile == nil {
		h.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
		h.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.redis.CreateToken(r.Context(), profile.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	h.JSON(w, http.StatusOK, AuthResponse{Token: token, Profile: profile})
}

// Me returns the authenticated user's profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	profile := middleware.GetUserFromContext(r.Context())
	h.JSON(w, http.StatusOK, profile)
}

// UpdateMeRequest carries the editable profile fields. Pointer fields
// distinguish "absent" from "set to zero".
type UpdateMeRequest struct {
	Name               *string   `json:"name"`
	PhotoURL           *string   `json:"photo_url"`
	WorkType           *string   `json:"work_type"`
	Interests          *[]string `json:"interests"`
	Bio                *string   `json:"bio"`
	OnboardingComplete *bool     `json:"onboarding_complete"`
}

// UpdateMe applies a partial update to the authenticated user's profile.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	profile := middleware.GetUserFromContext(r.Context())

	var req UpdateMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.Name != nil {
		name := sanitizeName(*req.Name)
		if name == "" {
			h.Error(w, http.StatusBadRequest, "name cannot be empty")
			return
		}
		profile.Name = name
	}
	if req.PhotoURL != nil {
		profile.PhotoURL = sanitizeText(*req.PhotoURL, 500)
	}
	if req.WorkType != nil {
		profile.WorkType = sanitizeText(*req.WorkType, 100)
	}
	if req.Interests != nil {
		interests := make([]string, 0, len(*req.Interests))
		for _, i := range *req.Interests {
			if i = sanitizeText(i, 50); i != "" {
				interests = append(interests, i)
			}
		}
		profile.Interests = interests
	}
	if req.Bio != nil {
		profile.Bio = sanitizeText(*req.Bio, 1000)
	}
	if req.OnboardingComplete != nil {
		profile.OnboardingComplete = *req.OnboardingComplete
	}

	if err := h.db.UpdateProfile(r.Context(), profile); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	h.JSON(w, http.StatusOK, profile)
}

// PublicProfile is the subset of a profile visible to other users.
type PublicProfile struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	PhotoURL  string    `json:"photo_url,omitempty"`
	WorkType  string    `json:"work_type,omitempty"`
	Interests []string  `json:"interests,omitempty"`
	Bio       string    `json:"bio,omitempty"`
}

// Who returns another user's public profile.
func (h *Handler) Who(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	profile, err := h.db.GetProfileByID(r.Context(), id)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if profile == nil {
		h.Error(w, http.StatusNotFound, "user not found")
		return
	}

	h.JSON(w, http.StatusOK, PublicProfile{
		ID:        profile.ID,
		Name:      profile.Name,
		PhotoURL:  profile.PhotoURL,
		WorkType:  profile.WorkType,
		Interests: profile.Interests,
		Bio:       profile.Bio,
	})
}
