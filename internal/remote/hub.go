package remote

import (
	"sync"
)

// ChangeOp names the kind of document change.
type ChangeOp string

const (
	OpCreate ChangeOp = "create"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
)

// AllCollections subscribes a listener to every collection.
const AllCollections = "*"

// Change describes one committed document mutation. Origin is empty for
// changes made in this process and names the peer for relayed changes.
type Change struct {
	Collection string   `json:"collection"`
	ID         string   `json:"id"`
	Op         ChangeOp `json:"op"`
	Origin     string   `json:"origin,omitempty"`
}

// Hub fans committed changes out to live listeners. Listeners run on the
// publishing goroutine and must not block.
type Hub struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[string]map[uint64]func(Change)
}

func NewHub() *Hub {
	return &Hub{listeners: make(map[string]map[uint64]func(Change))}
}

// Listen registers fn for changes in collection (or AllCollections) and
// returns the function that unregisters it. The returned function is safe to
// call more than once.
func (h *Hub) Listen(collection string, fn func(Change)) (cancel func()) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.listeners[collection] == nil {
		h.listeners[collection] = make(map[uint64]func(Change))
	}
	h.listeners[collection][id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.listeners[collection], id)
			if len(h.listeners[collection]) == 0 {
				delete(h.listeners, collection)
			}
		})
	}
}

func (h *Hub) Publish(c Change) {
	h.mu.RLock()
	fns := make([]func(Change), 0, len(h.listeners[c.Collection])+len(h.listeners[AllCollections]))
	for _, fn := range h.listeners[c.Collection] {
		fns = append(fns, fn)
	}
	for _, fn := range h.listeners[AllCollections] {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}

// ListenerCount returns the number of listeners registered for collection.
func (h *Hub) ListenerCount(collection string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners[collection])
}
