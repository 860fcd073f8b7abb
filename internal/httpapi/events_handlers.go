package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"octivary-engine/internal/events"
)

const keepaliveInterval = 30 * time.Second

type EventsHandler struct {
	Hub *events.Hub
}

// ServeSSE streams engine events to the client. An initial ping confirms
// the stream; keepalive pings stop proxies from timing out idle streams.
func (h EventsHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, r, http.StatusInternalServerError, "stream_unsupported", "Streaming unsupported")
		return
	}

	ch := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(ch)

	reqID := RequestIDFrom(r.Context())
	writeSSE(w, events.MakeEvent(reqID, events.TypePing, 1, nil))
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-ch:
			writeSSE(w, msg)
			flusher.Flush()
		case <-keepalive.C:
			writeSSE(w, events.MakeEvent(reqID, events.TypePing, 1, nil))
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, payload string) {
	fmt.Fprintf(w, "event: message\ndata: %s\n\n", payload)
}
