package alerts

import (
	"sync"

	"github.com/aukilabs/dsa/notify"
)

// FilteredModel is the projection of a Model through a filter chain.
//
// The projection is recomputed whenever the source model changes or Apply
// is called, and Reset is emitted afterwards.
type FilteredModel struct {
	Reset notify.Event

	source      *Model
	connections notify.Connections

	mutex   sync.RWMutex
	filters []Filter
	rows    []int
}

// NewFilteredModel creates a projection of source through filters.
func NewFilteredModel(source *Model, filters ...Filter) *FilteredModel {
	m := &FilteredModel{
		source:  source,
		filters: filters,
	}

	invalidate := func(notify.Row[*Alert]) { m.invalidate() }
	m.connections.Add(
		source.RowsInserted.Connect(invalidate),
		source.RowsRemoved.Connect(invalidate),
		source.DataChanged.Connect(invalidate),
	)

	m.invalidate()
	return m
}

// Apply replaces the filter chain and recomputes the projection.
func (m *FilteredModel) Apply(filters ...Filter) {
	m.mutex.Lock()
	m.filters = filters
	m.mutex.Unlock()

	m.invalidate()
}

// Invalidate recomputes the projection. It is called after a filter of the
// chain was modified.
func (m *FilteredModel) Invalidate() {
	m.invalidate()
}

func (m *FilteredModel) invalidate() {
	m.mutex.RLock()
	filters := m.filters
	m.mutex.RUnlock()

	var rows []int
	for i, a := range m.source.Alerts() {
		if Pass(a, filters...) {
			rows = append(rows, i)
		}
	}

	m.mutex.Lock()
	m.rows = rows
	m.mutex.Unlock()

	notify.Fire(&m.Reset)
}

// Len returns the number of listed alerts.
func (m *FilteredModel) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return len(m.rows)
}

// MapToSource returns the source model row of a filtered row.
func (m *FilteredModel) MapToSource(row int) (int, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if row < 0 || row >= len(m.rows) {
		return -1, false
	}
	return m.rows[row], true
}

// At returns the alert listed at the given row.
func (m *FilteredModel) At(row int) (*Alert, bool) {
	sourceRow, ok := m.MapToSource(row)
	if !ok {
		return nil, false
	}
	return m.source.At(sourceRow)
}

// Alerts returns the listed alerts, in row order.
func (m *FilteredModel) Alerts() []*Alert {
	m.mutex.RLock()
	rows := append([]int(nil), m.rows...)
	m.mutex.RUnlock()

	alerts := make([]*Alert, 0, len(rows))
	for _, row := range rows {
		if a, ok := m.source.At(row); ok {
			alerts = append(alerts, a)
		}
	}
	return alerts
}

// Source returns the model being filtered.
func (m *FilteredModel) Source() *Model {
	return m.source
}

// Close disconnects the projection from its source.
func (m *FilteredModel) Close() {
	m.connections.DisconnectAll()
}
