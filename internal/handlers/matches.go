package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chloekuoi/cowork-connect/internal/api/middleware"
	"github.com/chloekuoi/cowork-connect/internal/models"
)

// matchForRequest loads the match from the URL and checks the caller is
// a participant. Writes the error response itself on failure.
func (h *Handler) matchForRequest(w http.ResponseWriter, r *http.Request) (*models.Match, *models.Profile, bool) {
	user := middleware.GetUserFromContext(r.Context())

	matchID, err := uuid.Parse(chi.URLParam(r, "matchID"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid match ID")
		return nil, nil, false
	}

	match, err := h.db.GetMatch(r.Context(), matchID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "lookup failed")
		return nil, nil, false
	}
	if match == nil {
		h.Error(w, http.StatusNotFound, "match not found")
		return nil, nil, false
	}
	if !match.Involves(user.ID) {
		h.Error(w, http.StatusForbidden, "not a participant of this match")
		return nil, nil, false
	}

	return match, user, true
}

// ListMatches returns the caller's match previews, newest activity first.
func (h *Handler) ListMatches(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	previews, err := h.db.ListMatchPreviews(r.Context(), user.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if previews == nil {
		previews = []models.MatchPreview{}
	}

	h.JSON(w, http.StatusOK, map[string]interface{}{"matches": previews})
}

// MarkRead advances the caller's last-read marker on a match.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	match, user, ok := h.matchForRequest(w, r)
	if !ok {
		return
	}

	if err := h.db.MarkChatRead(r.Context(), match.ID, user.ID); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to mark read")
		return
	}

	h.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Unread returns the caller's total unread message count.
func (h *Handler) Unread(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	count, err := h.db.UnreadCount(r.Context(), user.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	h.JSON(w, http.StatusOK, map[string]int{"unread": count})
}
