package notify

import "sync"

// Row identifies a list item by its position at the time of a change.
type Row[T any] struct {
	Index int
	Value T
}

// List is an observable, insertion-ordered collection.
//
// The zero value is ready to use.
type List[T any] struct {
	Added   Signal[Row[T]]
	Removed Signal[Row[T]]
	Updated Signal[Row[T]]
	Reset   Event

	mutex sync.RWMutex
	items []T
}

// NewList returns a list holding items.
func NewList[T any](items ...T) *List[T] {
	return &List[T]{items: append([]T(nil), items...)}
}

// Append adds v at the end of the list.
func (l *List[T]) Append(v T) {
	l.mutex.Lock()
	l.items = append(l.items, v)
	index := len(l.items) - 1
	l.mutex.Unlock()

	l.Added.Emit(Row[T]{Index: index, Value: v})
}

// RemoveAt removes the item at index i. It returns false when i is out of
// range.
func (l *List[T]) RemoveAt(i int) bool {
	l.mutex.Lock()
	if i < 0 || i >= len(l.items) {
		l.mutex.Unlock()
		return false
	}

	v := l.items[i]
	l.items = append(l.items[:i], l.items[i+1:]...)
	l.mutex.Unlock()

	l.Removed.Emit(Row[T]{Index: i, Value: v})
	return true
}

// RemoveFunc removes the first item for which match returns true.
func (l *List[T]) RemoveFunc(match func(T) bool) bool {
	l.mutex.RLock()
	index := -1
	for i, v := range l.items {
		if match(v) {
			index = i
			break
		}
	}
	l.mutex.RUnlock()

	if index < 0 {
		return false
	}
	return l.RemoveAt(index)
}

// At returns the item at index i.
func (l *List[T]) At(i int) (T, bool) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	if i < 0 || i >= len(l.items) {
		var zero T
		return zero, false
	}
	return l.items[i], true
}

// Set replaces the item at index i and emits Updated.
func (l *List[T]) Set(i int, v T) bool {
	l.mutex.Lock()
	if i < 0 || i >= len(l.items) {
		l.mutex.Unlock()
		return false
	}
	l.items[i] = v
	l.mutex.Unlock()

	l.Updated.Emit(Row[T]{Index: i, Value: v})
	return true
}

// Touch emits Updated for the item at index i without modifying it. It is
// used when an item changed internally.
func (l *List[T]) Touch(i int) {
	if v, ok := l.At(i); ok {
		l.Updated.Emit(Row[T]{Index: i, Value: v})
	}
}

// Replace swaps the whole content of the list and emits Reset.
func (l *List[T]) Replace(items []T) {
	l.mutex.Lock()
	l.items = append([]T(nil), items...)
	l.mutex.Unlock()

	Fire(&l.Reset)
}

// Len returns the number of items.
func (l *List[T]) Len() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	return len(l.items)
}

// Items returns a copy of the list items.
func (l *List[T]) Items() []T {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	return append([]T(nil), l.items...)
}

// OnChange connects h to every structural or data change of the list and
// returns a function disconnecting all of them.
func (l *List[T]) OnChange(h func()) (disconnect func()) {
	var c Connections
	c.Add(
		l.Added.Connect(func(Row[T]) { h() }),
		l.Removed.Connect(func(Row[T]) { h() }),
		l.Updated.Connect(func(Row[T]) { h() }),
		l.Reset.Connect(func(struct{}) { h() }),
	)
	return c.DisconnectAll
}
