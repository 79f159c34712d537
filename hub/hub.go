package hub

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Subscriber is one connected display's send handle.
type Subscriber interface {
	Send(text string) error
}

// Hub is the registry of live notification subscribers. Membership is owned
// by the transport (add on connect, remove on disconnect); the cache and
// scheduler only ever broadcast.
type Hub struct {
	mu          sync.Mutex
	subscribers map[Subscriber]struct{}
	logger      *logrus.Logger
}

func New(logger *logrus.Logger) *Hub {
	return &Hub{
		subscribers: map[Subscriber]struct{}{},
		logger:      logger,
	}
}

func (h *Hub) Register(s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[s] = struct{}{}
}

func (h *Hub) Unregister(s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, s)
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Broadcast tells every subscriber to re-pull. Whatever the event argument
// says, the wire message is the literal "refresh": the channel carries a
// hint, never a payload. Fire and forget — a failing subscriber is logged
// and kept, and delivery to the others continues. Disconnect cleanup
// belongs to the transport's read loop, not here.
func (h *Hub) Broadcast(event string) {
	message := "refresh"

	h.mu.Lock()
	snapshot := make([]Subscriber, 0, len(h.subscribers))
	for s := range h.subscribers {
		snapshot = append(snapshot, s)
	}
	h.mu.Unlock()

	for _, s := range snapshot {
		if err := s.Send(message); err != nil {
			h.logger.WithFields(logrus.Fields{
				"module":   "hub/hub.go",
				"funcName": "Broadcast",
				"event":    event,
			}).Warn("subscriber send failed: " + err.Error())
		}
	}
}
