package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chloekuoi/cowork-connect/internal/api/middleware"
	"github.com/chloekuoi/cowork-connect/internal/metrics"
	"github.com/chloekuoi/cowork-connect/internal/models"
	"github.com/chloekuoi/cowork-connect/internal/store"
)

// sessionForRequest loads the session from the URL and checks the caller
// is a participant of its match. Writes the error response on failure.
func (h *Handler) sessionForRequest(w http.ResponseWriter, r *http.Request) (*models.SessionRecord, *models.Profile, bool) {
	user := middleware.GetUserFromContext(r.Context())

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid session ID")
		return nil, nil, false
	}

	sess, err := h.db.GetSession(r.Context(), sessionID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "lookup failed")
		return nil, nil, false
	}
	if sess == nil {
		h.Error(w, http.StatusNotFound, "session not found")
		return nil, nil, false
	}

	match, err := h.db.GetMatch(r.Context(), sess.MatchID)
	if err != nil || match == nil {
		h.Error(w, http.StatusInternalServerError, "lookup failed")
		return nil, nil, false
	}
	if !match.Involves(user.ID) {
		h.Error(w, http.StatusForbidden, "not a participant of this session")
		return nil, nil, false
	}

	return sess, user, true
}

// publishSession fans a session change, and its event if any, out to
// subscribers. Best-effort: the transaction already committed.
func (h *Handler) publishSession(r *http.Request, sess *models.SessionRecord, event *models.SessionEvent) {
	_ = h.redis.PublishSessionUpdate(r.Context(), sess)
	if event != nil {
		_ = h.redis.PublishSessionEvent(r.Context(), event)
	}
}

// CreateSessionRequest proposes a coworking session on a match.
type CreateSessionRequest struct {
	MatchID       uuid.UUID `json:"match_id"`
	ScheduledDate string    `json:"scheduled_date"`
}

// CreateSession proposes a session. Only one pending or active session
// may exist per match at a time.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.ScheduledDate == "" {
		req.ScheduledDate = today()
	}
	if !isValidDate(req.ScheduledDate) {
		h.Error(w, http.StatusBadRequest, "scheduled_date must be YYYY-MM-DD")
		return
	}

	sess, err := h.db.CreateSession(r.Context(), req.MatchID, user.ID, req.ScheduledDate)
	if err != nil {
		h.StoreError(w, err)
		return
	}

	metrics.SessionTransitions.WithLabelValues("created").Inc()
	h.publishSession(r, sess, nil)
	h.JSON(w, http.StatusCreated, sess)
}

// ListSessions returns all sessions for a match, oldest first.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	match, _, ok := h.matchForRequest(w, r)
	if !ok {
		return
	}

	sessions, err := h.db.ListSessionsForMatch(r.Context(), match.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if sessions == nil {
		sessions = []models.SessionRecord{}
	}

	h.JSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// RespondRequest carries the invitee's answer to a pending session.
type RespondRequest struct {
	Response string `json:"response"` // "accept" or "decline"
}

// RespondToSession applies an accept or decline by the invitee.
func (h *Handler) RespondToSession(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid session ID")
		return
	}

	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Response != models.ResponseAccept && req.Response != models.ResponseDecline {
		h.Error(w, http.StatusBadRequest, "response must be accept or decline")
		return
	}

	sess, event, err := h.db.RespondToSession(r.Context(), sessionID, user.ID, req.Response)
	if err != nil {
		h.StoreError(w, err)
		return
	}

	label := "accepted"
	if req.Response == models.ResponseDecline {
		label = "declined"
	}
	metrics.SessionTransitions.WithLabelValues(label).Inc()
	h.publishSession(r, sess, event)
	h.JSON(w, http.StatusOK, sess)
}

// CancelSession cancels a pending (initiator only) or active (either
// participant) session.
func (h *Handler) CancelSession(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid session ID")
		return
	}

	sess, err := h.db.CancelSession(r.Context(), sessionID, user.ID)
	if err != nil {
		h.StoreError(w, err)
		return
	}

	metrics.SessionTransitions.WithLabelValues("cancelled").Inc()
	h.publishSession(r, sess, nil)
	h.JSON(w, http.StatusOK, sess)
}

// LockInSession records the caller's lock-in on an active session; the
// second lock-in completes it.
func (h *Handler) LockInSession(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid session ID")
		return
	}

	sess, event, err := h.db.LockInSession(r.Context(), sessionID, user.ID)
	if err != nil {
		h.StoreError(w, err)
		return
	}

	if sess.Status == models.SessionCompleted {
		metrics.SessionTransitions.WithLabelValues("completed").Inc()
	}
	h.publishSession(r, sess, event)
	h.JSON(w, http.StatusOK, sess)
}

// ListSessionEvents returns the timeline events for the requested
// sessions. Sessions outside the caller's matches are skipped.
func (h *Handler) ListSessionEvents(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	raw := r.URL.Query().Get("session_ids")
	if raw == "" {
		h.Error(w, http.StatusBadRequest, "session_ids is required")
		return
	}

	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			h.Error(w, http.StatusBadRequest, "invalid session ID: "+part)
			return
		}

		sess, err := h.db.GetSession(r.Context(), id)
		if err != nil {
			h.Error(w, http.StatusInternalServerError, "lookup failed")
			return
		}
		if sess == nil {
			continue
		}
		match, err := h.db.GetMatch(r.Context(), sess.MatchID)
		if err != nil {
			h.Error(w, http.StatusInternalServerError, "lookup failed")
			return
		}
		if match == nil || !match.Involves(user.ID) {
			continue
		}
		ids = append(ids, id)
	}

	events, err := h.db.ListSessionEvents(r.Context(), ids)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if events == nil {
		events = []models.SessionEvent{}
	}

	h.JSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

// StreamSession streams state updates for one session over SSE.
func (h *Handler) StreamSession(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := h.sessionForRequest(w, r)
	if !ok {
		return
	}

	h.streamChannel(w, r, store.SessionChannel(sess.ID), "sessions")
}

// StreamSessionEvents streams new timeline events for one session over SSE.
func (h *Handler) StreamSessionEvents(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := h.sessionForRequest(w, r)
	if !ok {
		return
	}

	h.streamChannel(w, r, store.SessionEventChannel(sess.ID), "session_events")
}
