package broadcast

import (
	"context"
	"sync"
)

// Hub holds one Buffer per table and is the in-process Publisher that the
// HTTP and websocket streams read from.
type Hub struct {
	size int

	mu      sync.Mutex
	buffers map[string]*Buffer
}

func NewHub(size int) *Hub {
	return &Hub{size: size, buffers: map[string]*Buffer{}}
}

func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.Buffer(ev.TableID).Append(ev)
	return nil
}

// Buffer returns the table's buffer, creating it on first use.
func (h *Hub) Buffer(tableID string) *Buffer {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.buffers[tableID]
	if !ok {
		b = NewBuffer(h.size)
		h.buffers[tableID] = b
	}
	return b
}

// Drop closes the table's buffer, ending every subscription.
func (h *Hub) Drop(tableID string) {
	h.mu.Lock()
	b, ok := h.buffers[tableID]
	delete(h.buffers, tableID)
	h.mu.Unlock()
	if ok {
		b.Close()
	}
}
