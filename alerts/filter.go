package alerts

import (
	"sync"

	"github.com/google/uuid"
)

// Filter decides whether an alert is listed in a FilteredModel.
type Filter interface {
	Pass(a *Alert) bool
}

// FilterFunc adapts a function to the Filter interface.
type FilterFunc func(a *Alert) bool

func (f FilterFunc) Pass(a *Alert) bool {
	return f(a)
}

// ActiveFilter only passes alerts whose condition is met.
type ActiveFilter struct{}

func (ActiveFilter) Pass(a *Alert) bool {
	return a.Active()
}

// StatusFilter passes alerts whose status is at least a minimum level.
type StatusFilter struct {
	mutex    sync.RWMutex
	minLevel Status
}

func NewStatusFilter(minLevel Status) *StatusFilter {
	f := &StatusFilter{}
	f.SetMinLevel(minLevel)
	return f
}

func (f *StatusFilter) Pass(a *Alert) bool {
	return a.Status() >= f.MinLevel()
}

func (f *StatusFilter) MinLevel() Status {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	return f.minLevel
}

// SetMinLevel sets the minimum level. Invalid levels are ignored and false is
// returned.
func (f *StatusFilter) SetMinLevel(s Status) bool {
	if !s.Valid() {
		return false
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.minLevel = s
	return true
}

// IDsFilter rejects the alerts whose id was added to it.
type IDsFilter struct {
	mutex sync.RWMutex
	ids   map[uuid.UUID]struct{}
}

func NewIDsFilter() *IDsFilter {
	return &IDsFilter{
		ids: make(map[uuid.UUID]struct{}),
	}
}

func (f *IDsFilter) Pass(a *Alert) bool {
	return !f.Contains(a.ID())
}

func (f *IDsFilter) Add(id uuid.UUID) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.ids[id] = struct{}{}
}

func (f *IDsFilter) Contains(id uuid.UUID) bool {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	_, ok := f.ids[id]
	return ok
}

func (f *IDsFilter) Len() int {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	return len(f.ids)
}

// Clear removes every id from the filter.
func (f *IDsFilter) Clear() {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.ids = make(map[uuid.UUID]struct{})
}

// Pass evaluates filters in order and stops at the first rejection.
func Pass(a *Alert, filters ...Filter) bool {
	for _, f := range filters {
		if !f.Pass(a) {
			return false
		}
	}
	return true
}
