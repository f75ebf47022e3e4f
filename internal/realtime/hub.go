// Package realtime fans out session and job events to connected subscribers.
package realtime

import (
	"sync"
	"time"

	"github.com/Rauan228/HackNU2/internal/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventType names a realtime event.
type EventType string

const (
	EventMessage          EventType = "message"
	EventSessionCompleted EventType = "session_completed"
	EventAnalysisStarted  EventType = "analysis_started"
	EventPing             EventType = "ping"
)

// Event is delivered to every subscriber of a key.
type Event struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent stamps an event with the current time.
func NewEvent(t EventType, data any) Event {
	return Event{Type: t, Data: data, Timestamp: time.Now().UTC()}
}

// AnalysisStarted is the payload of EventAnalysisStarted.
type AnalysisStarted struct {
	SessionID     string    `json:"session_id"`
	ApplicationID uuid.UUID `json:"application_id"`
	JobID         uuid.UUID `json:"job_id"`
}

// SessionCompleted is the payload of EventSessionCompleted.
type SessionCompleted struct {
	SessionID      string    `json:"session_id"`
	ApplicationID  uuid.UUID `json:"application_id"`
	JobID          uuid.UUID `json:"job_id"`
	FinalScore     int       `json:"final_score"`
	Recommendation string    `json:"recommendation"`
}

// JobKey is the channel key for employer-side events of a job.
func JobKey(jobID uuid.UUID) string {
	return "job:" + jobID.String()
}

// SessionKey is the channel key for the events of one session.
func SessionKey(sessionID string) string {
	return "session:" + sessionID
}

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 16

// Subscription is one subscriber's view of a key. Events is closed when the
// subscriber is removed, either by Unsubscribe or because it fell behind.
type Subscription struct {
	Key    string
	Events <-chan Event
	ch     chan Event
}

// Hub is an in-process publish/subscribe registry keyed by JobKey and SessionKey.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	log    *zap.Logger
}

// NewHub creates a Hub. buffer <= 0 uses DefaultBuffer.
func NewHub(buffer int, log *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		log:    logger.OrNop(log),
	}
}

// Subscribe registers a new subscriber for key.
func (h *Hub) Subscribe(key string) *Subscription {
	ch := make(chan Event, h.buffer)
	sub := &Subscription{Key: key, Events: ch, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[*Subscription]struct{})
	}
	h.subs[key][sub] = struct{}{}
	h.log.Debug("realtime subscriber added", zap.String("key", key), zap.Int("subscribers", len(h.subs[key])))
	return sub
}

// Unsubscribe removes sub and closes its channel. It is safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(sub)
}

func (h *Hub) remove(sub *Subscription) {
	subs, ok := h.subs[sub.Key]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.ch)
	if len(subs) == 0 {
		delete(h.subs, sub.Key)
	}
}

// Publish delivers ev to every subscriber of key without blocking. A subscriber
// whose buffer is full is disconnected; the others still receive the event.
func (h *Hub) Publish(key string, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[key] {
		select {
		case sub.ch <- ev:
		default:
			h.log.Warn("realtime subscriber too slow, disconnecting",
				zap.String("key", key),
				zap.String("event", string(ev.Type)),
			)
			h.remove(sub)
		}
	}
}

// Count returns the number of subscribers for key.
func (h *Hub) Count(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[key])
}
