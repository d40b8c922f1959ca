package sse

import (
	"sync"
)

// Event names pushed to dashboards.
const (
	EventHistoryChanged = "history_changed"
	EventBalanceChanged = "balance_changed"
	EventOnLeaveChanged = "on_leave_changed"
	EventLeaveYear      = "leave_year_changed"
)

// Event represents an SSE event to be sent to subscribers
type Event struct {
	AdminID string
	Event   string
	Data    interface{}
}

// Hub fans events out to connected administrators. Delivery is best effort:
// a subscriber whose buffer is full misses the event.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers a new subscriber for an admin and returns the event channel and cleanup function
func (h *Hub) Subscribe(adminID string) (chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 16)

	if h.subscribers[adminID] == nil {
		h.subscribers[adminID] = make(map[chan Event]struct{})
	}
	h.subscribers[adminID][ch] = struct{}{}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subscribers[adminID][ch]; !ok {
				return
			}
			delete(h.subscribers[adminID], ch)
			close(ch)
			if len(h.subscribers[adminID]) == 0 {
				delete(h.subscribers, adminID)
			}
		})
	}

	return ch, cleanup
}

// Publish sends an event to all subscribers of one admin
func (h *Hub) Publish(adminID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	event.AdminID = adminID
	for ch := range h.subscribers[adminID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Broadcast sends an event to every connected subscriber.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for adminID, subs := range h.subscribers {
		e := event
		e.AdminID = adminID
		for ch := range subs {
			select {
			case ch <- e:
			default:
			}
		}
	}
}

// SubscriberCount returns the number of active subscribers for an admin
func (h *Hub) SubscriberCount(adminID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[adminID])
}

// TotalSubscribers returns the total number of active subscribers across all admins
func (h *Hub) TotalSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, subs := range h.subscribers {
		total += len(subs)
	}
	return total
}

// Close ends every open stream. Subscribers see their channel closed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for adminID, subs := range h.subscribers {
		for ch := range subs {
			close(ch)
		}
		delete(h.subscribers, adminID)
	}
}
