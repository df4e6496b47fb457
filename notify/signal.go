// Package notify provides the publish-subscribe primitives used to wire tools,
// models and collaborators together.
//
// A Signal delivers values to the handlers connected to it, in connection
// order. Connecting returns a disconnect function; owners collect those in a
// Connections group and release them all when they are closed, so no handler
// outlives the object that registered it.
package notify

import (
	"slices"
	"sync"
)

// Signal is a typed notification that can be emitted to a set of handlers.
//
// The zero value is ready to use.
type Signal[T any] struct {
	mutex    sync.RWMutex
	nextID   uint64
	handlers map[uint64]func(T)
}

// Connect registers h and returns a function that disconnects it. Calling the
// returned function more than once is a no-op.
func (s *Signal[T]) Connect(h func(T)) (disconnect func()) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.handlers == nil {
		s.handlers = make(map[uint64]func(T))
	}

	s.nextID++
	id := s.nextID
	s.handlers[id] = h

	return func() {
		s.mutex.Lock()
		defer s.mutex.Unlock()

		delete(s.handlers, id)
	}
}

// Emit calls every connected handler with v. Handlers are called outside the
// signal lock so they may connect or disconnect while being notified. A
// handler disconnected during the emission is not called anymore; handlers
// connected during the emission are called from the next one.
func (s *Signal[T]) Emit(v T) {
	for _, id := range s.ids() {
		if h, ok := s.handler(id); ok {
			h(v)
		}
	}
}

// Len returns the number of connected handlers.
func (s *Signal[T]) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.handlers)
}

func (s *Signal[T]) ids() []uint64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if len(s.handlers) == 0 {
		return nil
	}

	ids := make([]uint64, 0, len(s.handlers))
	for id := range s.handlers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *Signal[T]) handler(id uint64) (func(T), bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	h, ok := s.handlers[id]
	return h, ok
}

// Event is a signal without payload.
type Event = Signal[struct{}]

// Fire emits an Event.
func Fire(e *Event) {
	e.Emit(struct{}{})
}

// Connections groups disconnect functions so they can be released together.
//
// The zero value is ready to use.
type Connections struct {
	mutex       sync.Mutex
	disconnects []func()
}

// Add records disconnect functions.
func (c *Connections) Add(disconnects ...func()) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.disconnects = append(c.disconnects, disconnects...)
}

// DisconnectAll calls every recorded disconnect function, most recent first,
// and empties the group.
func (c *Connections) DisconnectAll() {
	c.mutex.Lock()
	disconnects := c.disconnects
	c.disconnects = nil
	c.mutex.Unlock()

	for i := len(disconnects) - 1; i >= 0; i-- {
		disconnects[i]()
	}
}

// Len returns the number of recorded connections.
func (c *Connections) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return len(c.disconnects)
}
