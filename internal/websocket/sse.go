package websocket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/abrezinsky/pitchvote/internal/models"
)

// ServeSSE streams messages as server-sent events until the client goes
// away or the hub stops. Live state messages use the default event with
// the bare state as data; other message types are sent as named events.
func (h *Hub) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := &Client{
		hub:       h,
		transport: TransportSSE,
		send:      make(chan models.Message, sendBufferSize),
	}
	if !h.join(client) {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.leave(client)

	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case message, ok := <-client.send:
			if !ok {
				return
			}
			if err := writeEvent(w, message); err != nil {
				h.log.Debug("SSE write failed", "error", err)
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, message models.Message) error {
	data, err := json.Marshal(message.Payload)
	if err != nil {
		return err
	}
	if message.Type != models.MessageLiveState {
		if _, err := fmt.Fprintf(w, "event: %s\n", message.Type); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
