package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/chloekuoi/cowork-connect/internal/store"
)

// emailRegex validates email addresses per RFC 5322 (simplified).
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// dateRegex validates "YYYY-MM-DD" day strings.
var dateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	db       store.DataStore
	redis    *store.RedisStore
	radiusKM float64
}

// NewHandler creates a new Handler with the given stores. radiusKM caps
// how far away discovery candidates may be.
func NewHandler(db store.DataStore, redis *store.RedisStore, radiusKM float64) *Handler {
	return &Handler{db: db, redis: redis, radiusKM: radiusKM}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// StoreError maps store errors onto HTTP statuses and sends the response.
func (h *Handler) StoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrNotParticipant):
		h.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrNotInvitee), errors.Is(err, store.ErrNotInitiator):
		h.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrSessionExists):
		h.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrInvalidTransition), errors.Is(err, store.ErrDuplicate):
		h.Error(w, http.StatusConflict, err.Error())
	default:
		h.Error(w, http.StatusInternalServerError, "internal error")
	}
}

// sanitizeText trims, removes control characters, and caps length.
func sanitizeText(s string, max int) string {
	s = strings.TrimSpace(s)

	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' {
			return -1
		}
		return r
	}, s)

	if len(s) > max {
		s = s[:max]
	}
	return s
}

// sanitizeName trims and limits a display name to 100 characters.
func sanitizeName(name string) string {
	return strings.ReplaceAll(sanitizeText(name, 100), "\n", " ")
}

// isValidEmail validates email addresses using RFC 5322 pattern.
func isValidEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

// isValidDate validates "YYYY-MM-DD" day strings.
func isValidDate(date string) bool {
	return dateRegex.MatchString(date)
}
