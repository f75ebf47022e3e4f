package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Rauan228/HackNU2/internal/realtime"
	"go.uber.org/zap"
)

// SSEWriter helps write Server-Sent Events
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSE writer
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends an SSE event
func (s *SSEWriter) WriteEvent(event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// stream relays the events of key to the client until it disconnects, the
// subscription is dropped or the server shuts down. A ping is sent on every
// interval without traffic.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, key string) {
	// Subscribe before the headers go out so a client that saw the response
	// cannot miss an event.
	sub := s.events.Subscribe(key)
	defer s.events.Unsubscribe(sub)

	sse, err := NewSSEWriter(w)
	if err != nil {
		writeError(w, s.log, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	log := s.log.With(zap.String("stream", key))
	log.Debug("event stream opened")
	defer log.Debug("event stream closed")

	ping := time.NewTicker(s.opts.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.closing:
			return
		case ev, ok := <-sub.Events:
			if !ok {
				// dropped for falling behind; the client reconnects
				return
			}
			if err := sse.WriteEvent(string(ev.Type), ev); err != nil {
				return
			}
			ping.Reset(s.opts.PingInterval)
		case <-ping.C:
			if err := sse.WriteEvent(string(realtime.EventPing), realtime.NewEvent(realtime.EventPing, nil)); err != nil {
				return
			}
		}
	}
}
