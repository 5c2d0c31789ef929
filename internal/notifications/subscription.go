// Package notifications provides real-time notification delivery and management.
package notifications

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
)

// Event is the envelope written to subscribers.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent marshals payload into an envelope of the given type.
func NewEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Payload: raw}, nil
}

// Subscription is one session's view of a recipient's event stream. Its
// queue is bounded; when full, the oldest queued event is discarded so a slow
// reader never blocks a publisher.
type Subscription struct {
	RecipientID string

	hub     *Hub
	mu      sync.Mutex
	ch      chan Event
	closed  bool
	dropped atomic.Uint64
}

func newSubscription(hub *Hub, recipientID string, buffer int) *Subscription {
	return &Subscription{
		RecipientID: recipientID,
		hub:         hub,
		ch:          make(chan Event, buffer),
	}
}

// C yields events until the subscription is closed.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// TakeDropped returns how many events were discarded since the last call and resets the count.
func (s *Subscription) TakeDropped() uint64 {
	return s.dropped.Swap(0)
}

// Close detaches the subscription from its hub. Safe to call more than once.
func (s *Subscription) Close() {
	if s.hub != nil {
		s.hub.Unsubscribe(s)
		return
	}
	s.close()
}

// deliver enqueues ev without blocking and reports whether anything was discarded.
func (s *Subscription) deliver(ev Event) (dropped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}

	select {
	case s.ch <- ev:
		return false
	default:
	}

	select {
	case <-s.ch:
		s.dropped.Add(1)
	default:
	}
	select {
	case s.ch <- ev:
	default:
		s.dropped.Add(1)
	}
	return true
}

func (s *Subscription) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	close(s.ch)
	return true
}
