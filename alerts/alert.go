// Package alerts implements the alert list shared by the alert tools: the
// alert records, the model holding them, the filter chain and the filtered
// projection presented to users, and the conditions that raise alerts.
package alerts

import (
	"fmt"
	"strings"
	"sync"

	"github.com/aukilabs/dsa/notify"
	"github.com/google/uuid"
	"github.com/twpayne/go-geom"
)

// Status is the severity of an alert.
type Status int

const (
	Low Status = iota
	Moderate
	High
	Critical
)

var statusNames = []string{"Low", "Moderate", "High", "Critical"}

// StatusNames returns the status names ordered by severity.
func StatusNames() []string {
	return append([]string(nil), statusNames...)
}

// ParseStatus returns the status with the given case insensitive name.
func ParseStatus(name string) (Status, bool) {
	for i, n := range statusNames {
		if strings.EqualFold(n, name) {
			return Status(i), true
		}
	}
	return 0, false
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	return s >= Low && s <= Critical
}

func (s Status) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// Alert is a record of a triggered or watched condition.
//
// An alert gets its id when it is added to a Model. Changes to the viewed,
// position, active and flashing states emit Changed. An alert that stops
// being valid emits NoLongerValid once and releases the connections it owns.
type Alert struct {
	Changed       notify.Event
	NoLongerValid notify.Event

	mutex       sync.RWMutex
	id          uuid.UUID
	status      Status
	message     string
	description string
	position    geom.T
	viewed      bool
	active      bool
	flashing    bool
	invalid     bool
	connections notify.Connections
}

// New creates an active alert.
func New(status Status, message string) *Alert {
	return &Alert{
		status:  status,
		message: message,
		active:  true,
	}
}

// ID returns the alert id. It is uuid.Nil until the alert is added to a
// model.
func (a *Alert) ID() uuid.UUID {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.id
}

func (a *Alert) setID(id uuid.UUID) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.id = id
}

func (a *Alert) Status() Status {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.status
}

func (a *Alert) Message() string {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.message
}

func (a *Alert) Description() string {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.description
}

func (a *Alert) SetDescription(v string) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.description = v
}

// Position returns the location of the alert source.
func (a *Alert) Position() geom.T {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.position
}

func (a *Alert) SetPosition(g geom.T) {
	a.mutex.Lock()
	a.position = g
	a.mutex.Unlock()

	notify.Fire(&a.Changed)
}

func (a *Alert) Viewed() bool {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.viewed
}

func (a *Alert) SetViewed(v bool) {
	a.set(&a.viewed, v)
}

// Active reports whether the alert condition is currently met.
func (a *Alert) Active() bool {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.active
}

func (a *Alert) SetActive(v bool) {
	a.set(&a.active, v)
}

// Flashing reports whether the alert is visually highlighted.
func (a *Alert) Flashing() bool {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.flashing
}

func (a *Alert) SetFlashing(v bool) {
	a.set(&a.flashing, v)
}

func (a *Alert) set(field *bool, v bool) {
	a.mutex.Lock()
	changed := *field != v
	*field = v
	a.mutex.Unlock()

	if changed {
		notify.Fire(&a.Changed)
	}
}

// Own records disconnect functions released when the alert is invalidated.
func (a *Alert) Own(disconnects ...func()) {
	a.connections.Add(disconnects...)
}

// Valid reports whether the alert has not been invalidated.
func (a *Alert) Valid() bool {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return !a.invalid
}

// Invalidate marks the alert as no longer valid. The models holding it drop
// it for good.
func (a *Alert) Invalidate() {
	a.mutex.Lock()
	if a.invalid {
		a.mutex.Unlock()
		return
	}
	a.invalid = true
	a.mutex.Unlock()

	a.connections.DisconnectAll()
	notify.Fire(&a.NoLongerValid)
}
