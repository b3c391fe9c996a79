package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Handler streams change events to clients over server-sent events.
type Handler struct {
	logger *slog.Logger
	broker *Broker
}

// NewHandler constructs the realtime handler.
func NewHandler(logger *slog.Logger, broker *Broker) *Handler {
	return &Handler{logger: logger, broker: broker}
}

// Stream exposes the SSE endpoint for mounting outside the default stack.
func (h *Handler) Stream() http.HandlerFunc {
	return h.stream
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	table := r.URL.Query().Get("table")
	if table == "" {
		table = "*"
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := h.broker.Subscribe(table)
	defer cancel()

	// Heartbeat keeps intermediaries from closing an idle stream.
	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case evt, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				h.logger.Error("marshal sse event", slog.Any("error", err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Action, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
