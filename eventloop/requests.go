package eventloop

import (
	"sync"

	"github.com/google/uuid"
)

// Requests is a table of in-flight asynchronous requests keyed by a generated
// request id.
//
// A request is canceled by removing its entry. A completion for an id that is
// no longer in the table is stale and must be ignored by the caller.
type Requests[T any] struct {
	mutex   sync.Mutex
	entries map[uuid.UUID]T
}

// Add registers v and returns the id that identifies it.
func (r *Requests[T]) Add(v T) uuid.UUID {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.entries == nil {
		r.entries = make(map[uuid.UUID]T)
	}

	id := uuid.New()
	r.entries[id] = v
	return id
}

// Get returns the request identified by id without removing it.
func (r *Requests[T]) Get(id uuid.UUID) (T, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	v, ok := r.entries[id]
	return v, ok
}

// Take removes and returns the request identified by id. ok is false when
// the request was canceled or already completed.
func (r *Requests[T]) Take(id uuid.UUID) (v T, ok bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	v, ok = r.entries[id]
	delete(r.entries, id)
	return v, ok
}

// Cancel removes the request identified by id.
func (r *Requests[T]) Cancel(id uuid.UUID) bool {
	_, ok := r.Take(id)
	return ok
}

// CancelFunc removes every request for which match returns true and returns
// how many were removed.
func (r *Requests[T]) CancelFunc(match func(T) bool) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var n int
	for id, v := range r.entries {
		if match(v) {
			delete(r.entries, id)
			n++
		}
	}
	return n
}

// Any reports whether match returns true for an in-flight request.
func (r *Requests[T]) Any(match func(T) bool) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, v := range r.entries {
		if match(v) {
			return true
		}
	}
	return false
}

// Len returns the number of in-flight requests.
func (r *Requests[T]) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return len(r.entries)
}
