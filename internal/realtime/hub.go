// Package realtime fans committed pledge inserts out to in-process
// subscribers. Delivery is best effort: a subscriber whose buffer is full
// misses the event.
package realtime

import (
	"sync"

	"github.com/bloomforlungs/bloom/internal/models"
	"go.uber.org/zap"
)

const DefaultBuffer = 64

type Subscription struct {
	C <-chan models.Pledge

	ch   chan models.Pledge
	hub  *Hub
	once sync.Once
}

// Close releases the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

type Hub struct {
	subscribers map[*Subscription]struct{}
	mu          sync.RWMutex
	buffer      int
	logger      *zap.Logger
}

func NewHub(logger *zap.Logger, buffer int) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	return &Hub{
		subscribers: make(map[*Subscription]struct{}),
		buffer:      buffer,
		logger:      logger,
	}
}

func (h *Hub) Subscribe() *Subscription {
	ch := make(chan models.Pledge, h.buffer)
	sub := &Subscription{C: ch, ch: ch, hub: h}

	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

// Publish delivers p to every subscriber without blocking.
func (h *Hub) Publish(p models.Pledge) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers {
		select {
		case sub.ch <- p:
		default:
			h.logger.Warn("dropping pledge insert for slow subscriber", zap.String("pledge_id", p.ID))
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers)
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		close(sub.ch)
	}
}
