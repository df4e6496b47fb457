package alerts

import (
	"fmt"
	"sync"

	"github.com/aukilabs/dsa/notify"
	"github.com/google/uuid"
)

// Role identifies a piece of alert data exposed to presentation layers.
type Role int

const (
	RoleID Role = iota
	RoleMessage
	RoleStatus
	RolePosition
	RoleViewed
	RoleDescription
)

func (r Role) String() string {
	switch r {
	case RoleID:
		return "alertId"
	case RoleMessage:
		return "message"
	case RoleStatus:
		return "status"
	case RolePosition:
		return "position"
	case RoleViewed:
		return "viewed"
	case RoleDescription:
		return "description"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Model is the insertion ordered list of alerts shared by the alert tools.
//
// It is created once by the host and passed to the tools that need it.
type Model struct {
	RowsInserted notify.Signal[notify.Row[*Alert]]
	RowsRemoved  notify.Signal[notify.Row[*Alert]]
	DataChanged  notify.Signal[notify.Row[*Alert]]

	mutex       sync.RWMutex
	alerts      []*Alert
	connections map[uuid.UUID]*notify.Connections
}

func NewModel() *Model {
	return &Model{
		connections: make(map[uuid.UUID]*notify.Connections),
	}
}

// Add assigns a new id to a and appends it. It returns false when a is nil,
// already has an id or was invalidated.
func (m *Model) Add(a *Alert) bool {
	if a == nil || a.ID() != uuid.Nil || !a.Valid() {
		return false
	}

	id := uuid.New()
	a.setID(id)

	c := &notify.Connections{}
	c.Add(
		a.Changed.Connect(func(struct{}) {
			if row, ok := m.Row(id); ok {
				m.DataChanged.Emit(notify.Row[*Alert]{Index: row, Value: a})
			}
		}),
		a.NoLongerValid.Connect(func(struct{}) {
			m.Remove(a)
		}),
	)

	m.mutex.Lock()
	m.alerts = append(m.alerts, a)
	m.connections[id] = c
	row := len(m.alerts) - 1
	count := len(m.alerts)
	m.mutex.Unlock()

	instrumentAlertAdded(a.Status(), count)
	m.RowsInserted.Emit(notify.Row[*Alert]{Index: row, Value: a})
	return true
}

// Remove removes a from the model.
func (m *Model) Remove(a *Alert) bool {
	if a == nil {
		return false
	}

	row, ok := m.Row(a.ID())
	if !ok {
		return false
	}
	return m.RemoveAt(row)
}

// RemoveAt removes the alert at the given row. It returns false when row is
// out of range.
func (m *Model) RemoveAt(row int) bool {
	m.mutex.Lock()
	if row < 0 || row >= len(m.alerts) {
		m.mutex.Unlock()
		return false
	}

	a := m.alerts[row]
	m.alerts = append(m.alerts[:row], m.alerts[row+1:]...)
	c := m.connections[a.ID()]
	delete(m.connections, a.ID())
	count := len(m.alerts)
	m.mutex.Unlock()

	if c != nil {
		c.DisconnectAll()
	}

	instrumentAlertRemoved(count)
	m.RowsRemoved.Emit(notify.Row[*Alert]{Index: row, Value: a})
	return true
}

// At returns the alert at the given row.
func (m *Model) At(row int) (*Alert, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if row < 0 || row >= len(m.alerts) {
		return nil, false
	}
	return m.alerts[row], true
}

// Row returns the row of the alert with the given id.
func (m *Model) Row(id uuid.UUID) (int, bool) {
	if id == uuid.Nil {
		return -1, false
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for i, a := range m.alerts {
		if a.ID() == id {
			return i, true
		}
	}
	return -1, false
}

func (m *Model) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return len(m.alerts)
}

// Alerts returns a copy of the alerts, in row order.
func (m *Model) Alerts() []*Alert {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return append([]*Alert(nil), m.alerts...)
}

// Data returns the value of a role for the alert at the given row.
func (m *Model) Data(row int, role Role) (any, bool) {
	a, ok := m.At(row)
	if !ok {
		return nil, false
	}

	switch role {
	case RoleID:
		return a.ID(), true
	case RoleMessage:
		return a.Message(), true
	case RoleStatus:
		return a.Status(), true
	case RolePosition:
		return a.Position(), true
	case RoleViewed:
		return a.Viewed(), true
	case RoleDescription:
		return a.Description(), true
	default:
		return nil, false
	}
}

// SetData sets the value of a role for the alert at the given row. Only the
// viewed role is writable and it takes a bool.
func (m *Model) SetData(row int, role Role, value any) bool {
	a, ok := m.At(row)
	if !ok {
		return false
	}

	switch role {
	case RoleViewed:
		v, ok := value.(bool)
		if !ok {
			return false
		}
		a.SetViewed(v)
		return true

	default:
		return false
	}
}
