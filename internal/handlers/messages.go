package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/chloekuoi/cowork-connect/internal/metrics"
	"github.com/chloekuoi/cowork-connect/internal/models"
	"github.com/chloekuoi/cowork-connect/internal/store"
)

// ListMessages returns all messages for a match, oldest first.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	match, _, ok := h.matchForRequest(w, r)
	if !ok {
		return
	}

	messages, err := h.db.ListMessages(r.Context(), match.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}

	h.JSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

// SendMessageRequest carries a new chat message.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessage persists a message and fans it out to subscribers.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	match, user, ok := h.matchForRequest(w, r)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	content := sanitizeText(req.Content, 2000)
	if content == "" {
		h.Error(w, http.StatusBadRequest, "content is required")
		return
	}

	msg := &models.Message{
		ID:        ulid.Make().String(),
		MatchID:   match.ID,
		SenderID:  user.ID,
		Content:   content,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	if err := h.db.InsertMessage(r.Context(), msg); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	metrics.MessagesSent.Inc()

	// Fan-out is best-effort; the row is already durable.
	_ = h.redis.PublishMessage(r.Context(), msg)

	h.JSON(w, http.StatusCreated, msg)
}

// StreamMessages streams new messages for a match over SSE.
func (h *Handler) StreamMessages(w http.ResponseWriter, r *http.Request) {
	match, _, ok := h.matchForRequest(w, r)
	if !ok {
		return
	}

	h.streamChannel(w, r, store.MessageChannel(match.ID), "messages")
}
