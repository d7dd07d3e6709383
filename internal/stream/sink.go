// Package stream is the asynchronous session adapter. It keeps one ordered
// event sink per session that streaming readers drain and replay from.
package stream

import (
	"sync"

	"github.com/google/uuid"

	"github.com/ajujo/teaching-system/internal/teaching"
)

// Sink buffers the recent events of one session. Events of the latest turn
// are always retained, even past capacity.
type Sink struct {
	mu       sync.Mutex
	events   []teaching.Event
	capacity int
	wake     chan struct{}
	closed   bool
	last     teaching.Cursor

	// turn serializes publish order with the engine call producing it.
	turn sync.Mutex
}

func newSink(capacity int) *Sink {
	if capacity < 1 {
		capacity = 1
	}
	return &Sink{capacity: capacity, wake: make(chan struct{})}
}

// Publish appends events and wakes every waiting reader.
func (s *Sink) Publish(events ...teaching.Event) {
	if len(events) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.events = append(s.events, events...)
	s.last = teaching.CursorOf(s.events[len(s.events)-1])
	s.trim()
	close(s.wake)
	s.wake = make(chan struct{})
}

func (s *Sink) trim() {
	excess := len(s.events) - s.capacity
	if excess <= 0 {
		return
	}
	// Never cut into the latest turn.
	for excess > 0 && s.events[excess-1].TurnID == s.last.TurnID {
		excess--
	}
	if excess > 0 {
		s.events = append(s.events[:0:0], s.events[excess:]...)
	}
}

// Poll returns the buffered events after c, a channel closed on the next
// publish or close, and whether the sink is closed.
func (s *Sink) Poll(c teaching.Cursor) (events []teaching.Event, wake <-chan struct{}, closed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.since(c), s.wake, s.closed
}

// Since returns the buffered events after c.
func (s *Sink) Since(c teaching.Cursor) []teaching.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.since(c)
}

func (s *Sink) since(c teaching.Cursor) []teaching.Event {
	var out []teaching.Event
	for _, e := range s.events {
		if c.Precedes(e) {
			out = append(out, e)
		}
	}
	return out
}

// Last is the cursor of the newest event.
func (s *Sink) Last() teaching.Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Close stops further publishing and releases waiting readers. Buffered
// events stay readable.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.wake)
}

func (s *Sink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Idle builds a keepalive event positioned at the newest event. Idle events
// are never buffered.
func (s *Sink) Idle() teaching.Event {
	last := s.Last()
	return teaching.Event{
		EventID: uuid.NewString(),
		Type:    teaching.EventIdle,
		TurnID:  last.TurnID,
		Seq:     last.Seq,
		Data:    map[string]any{},
	}
}
