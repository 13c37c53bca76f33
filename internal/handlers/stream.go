package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/chloekuoi/cowork-connect/internal/metrics"
)

const heartbeatInterval = 15 * time.Second

// streamChannel bridges one Redis pub/sub channel onto an SSE response.
// It blocks until the client disconnects.
func (h *Handler) streamChannel(w http.ResponseWriter, r *http.Request, channel, kind string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.Error(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub := h.redis.Subscribe(r.Context(), channel)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	metrics.SSEStreams.WithLabelValues(kind).Inc()
	defer metrics.SSEStreams.WithLabelValues(kind).Dec()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ch := sub.Channel()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case msg, open := <-ch:
			if !open {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg.Payload)
			flusher.Flush()
		}
	}
}
