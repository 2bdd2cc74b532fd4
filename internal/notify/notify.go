// Package notify provides the change-notification hub shared by the
// session and workbench state containers. Consumers subscribe, receive a
// ping after every committed mutation, and re-read an immutable snapshot
// from the container that changed.
package notify

import "sync"

// Hub broadcasts state-change pings to all subscribed listeners.
// Pings carry no payload: a listener that receives one should take a
// fresh snapshot rather than diff incremental events.
type Hub struct {
	mu        sync.RWMutex
	listeners map[chan struct{}]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		listeners: make(map[chan struct{}]struct{}),
	}
}

// Subscribe registers a listener and returns its ping channel. The
// channel holds at most one pending ping; pair every Subscribe with an
// Unsubscribe.
func (h *Hub) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	h.listeners[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe drops the listener and closes its channel. Safe to call
// with a channel that was already removed.
func (h *Hub) Unsubscribe(ch chan struct{}) {
	h.mu.Lock()
	if _, ok := h.listeners[ch]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.listeners, ch)
	h.mu.Unlock()
	close(ch)
}

// Broadcast pings every listener without blocking. A channel that still
// holds an undelivered ping is left alone; one pending ping already
// guarantees the listener will take a fresh snapshot.
func (h *Hub) Broadcast() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
