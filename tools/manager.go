package tools

import (
	"sync"

	"github.com/aukilabs/dsa/notify"
	"github.com/aukilabs/dsa/settings"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

// ToolEvent associates a value with the tool that emitted it.
type ToolEvent[T any] struct {
	Tool  string
	Value T
}

// Manager is the registry of the running tools.
//
// Tools are closed in the reverse order they were added. The manager
// forwards the property changes and errors of every tool.
type Manager struct {
	PropertyChanged notify.Signal[ToolEvent[Property]]
	ErrorOccurred   notify.Signal[ToolEvent[ToolError]]

	mutex       sync.RWMutex
	tools       []Tool
	properties  Properties
	connections notify.Connections
	closed      bool
}

func NewManager() *Manager {
	return &Manager{
		properties: make(Properties),
	}
}

// Add registers a tool and applies the known properties to it. Tool names
// are unique.
func (m *Manager) Add(t Tool) error {
	m.mutex.Lock()
	if m.closed {
		m.mutex.Unlock()
		return errors.New("tool manager is closed").
			WithTag("tool", t.ToolName())
	}

	for _, existing := range m.tools {
		if existing.ToolName() == t.ToolName() {
			m.mutex.Unlock()
			return errors.New("tool already added").
				WithType(ErrTypeInvalidArgument).
				WithTag("tool", t.ToolName())
		}
	}

	m.tools = append(m.tools, t)
	properties := m.copyProperties()
	m.mutex.Unlock()

	name := t.ToolName()
	m.connections.Add(
		t.Events().PropertyChanged.Connect(func(p Property) {
			m.mutex.Lock()
			m.properties[p.Name] = p.Value
			m.mutex.Unlock()

			m.PropertyChanged.Emit(ToolEvent[Property]{Tool: name, Value: p})
		}),
		t.Events().ErrorOccurred.Connect(func(e ToolError) {
			logs.WithTag("tool", name).
				WithTag("type", e.Type).
				WithTag("additional", e.Additional).
				Info(e.Message)
			instrumentToolError(name, e.Type)

			m.ErrorOccurred.Emit(ToolEvent[ToolError]{Tool: name, Value: e})
		}),
	)

	logs.WithTag("tool", name).Debug("tool added")

	if len(properties) != 0 {
		t.SetProperties(properties)
	}
	return nil
}

// Tool returns the tool with the given name.
func (m *Manager) Tool(name string) (Tool, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, t := range m.tools {
		if t.ToolName() == name {
			return t, true
		}
	}
	return nil, false
}

// Tools returns the registered tools, in registration order.
func (m *Manager) Tools() []Tool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return append([]Tool(nil), m.tools...)
}

// SetProperties records properties and applies them to every tool.
func (m *Manager) SetProperties(properties Properties) {
	m.mutex.Lock()
	for k, v := range properties {
		m.properties[k] = v
	}
	tools := append([]Tool(nil), m.tools...)
	m.mutex.Unlock()

	for _, t := range tools {
		t.SetProperties(properties)
	}
}

// Properties returns the last known value of every property.
func (m *Manager) Properties() Properties {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.copyProperties()
}

// UseSettings applies the stored properties to the tools and saves the
// property changes to the store.
func (m *Manager) UseSettings(s *settings.Store) {
	m.SetProperties(s.Values())

	m.connections.Add(m.PropertyChanged.Connect(func(e ToolEvent[Property]) {
		if !s.Set(e.Value.Name, e.Value.Value) {
			return
		}

		if err := s.Save(); err != nil {
			logs.Warn(errors.New("saving tool properties failed").
				WithTag("tool", e.Tool).
				WithTag("property", e.Value.Name).
				Wrap(err))
		}
	}))
}

// Close closes every tool, most recently added first.
func (m *Manager) Close() {
	m.mutex.Lock()
	if m.closed {
		m.mutex.Unlock()
		return
	}
	m.closed = true
	tools := m.tools
	m.tools = nil
	m.mutex.Unlock()

	m.connections.DisconnectAll()

	for i := len(tools) - 1; i >= 0; i-- {
		tools[i].Close()
		logs.WithTag("tool", tools[i].ToolName()).Debug("tool closed")
	}
}

func (m *Manager) copyProperties() Properties {
	properties := make(Properties, len(m.properties))
	for k, v := range m.properties {
		properties[k] = v
	}
	return properties
}
