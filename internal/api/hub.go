package api

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/talgya/segregation/internal/engine"
)

// subscriberBuffer is the number of records a slow client may lag behind
// before records are dropped for it.
const subscriberBuffer = 64

// Hub fans encoded step records out to stream subscribers. It is an
// engine.Sink; Collect never blocks on a subscriber.
type Hub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]chan []byte
	last   []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]chan []byte)}
}

// Collect implements engine.Sink.
func (h *Hub) Collect(r engine.Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = data
	for id, ch := range h.subs {
		select {
		case ch <- data:
		default:
			slog.Debug("stream subscriber lagging, record dropped", "sub_id", id, "step", r.Step)
		}
	}
	return nil
}

// Subscribe registers a subscriber. The channel first receives the most
// recent record, if any.
func (h *Hub) Subscribe() (uint64, <-chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	ch := make(chan []byte, subscriberBuffer)
	if h.last != nil {
		ch <- h.last
	}
	h.subs[h.nextID] = ch
	return h.nextID, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		close(ch)
		delete(h.subs, id)
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
