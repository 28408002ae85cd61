package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
)

// EventType names a manifest change pushed to /events subscribers.
type EventType string

const (
	EventCreated  EventType = "created"
	EventUpdated  EventType = "updated"
	EventStatus   EventType = "status"
	EventDeleted  EventType = "deleted"
	EventCompiled EventType = "compiled"
)

// Event is one manifest change notification.
type Event struct {
	Type       EventType     `json:"type"`
	ManifestID string        `json:"manifest_id"`
	Version    int           `json:"version,omitempty"`
	Status     domain.Status `json:"status,omitempty"`
}

// AllManifests is the subscription key receiving every event.
const AllManifests = "*"

// StreamManager fans out events to SSE subscribers, keyed by manifest id.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	logger      *slog.Logger
}

// NewStreamManager returns a manager with no subscribers and a no-op logger.
func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan Event]struct{}),
		logger:      logging.NewNop(),
	}
}

// Subscribe registers a listener for one manifest id, or AllManifests.
// The returned func unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(manifestID string) (<-chan Event, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Event, 10)
	if _, ok := sm.subscribers[manifestID]; !ok {
		sm.subscribers[manifestID] = make(map[chan Event]struct{})
	}
	sm.subscribers[manifestID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[manifestID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, manifestID)
				}
			}
		})
	}
}

// Broadcast delivers e to the subscribers of its manifest and of AllManifests.
// Slow subscribers drop events rather than block the caller.
func (sm *StreamManager) Broadcast(e Event) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for _, key := range []string{e.ManifestID, AllManifests} {
		for ch := range sm.subscribers[key] {
			select {
			case ch <- e:
			default:
				sm.logger.Warn("sse client buffer full, dropping event", "manifest_id", e.ManifestID, "type", e.Type)
			}
		}
	}
}

// subscribeEvents handles GET /events?manifest_id=<id> as a server-sent
// event stream. Without manifest_id every event is sent.
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	key := r.URL.Query().Get("manifest_id")
	if key == "" {
		key = AllManifests
	}
	ch, cancel := s.streams.Subscribe(key)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.DebugContext(r.Context(), "sse subscribed", "manifest_id", key)

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data)
			flusher.Flush()
		}
	}
}
