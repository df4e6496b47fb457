// Package analysis presents the viewsheds and the lines of sight of a scene
// as a single list.
package analysis

import (
	"fmt"

	"github.com/aukilabs/dsa/geoview"
	"github.com/aukilabs/dsa/notify"
	"github.com/twpayne/go-geom"
)

const (
	TypeViewshed    = "viewshed"
	TypeLineOfSight = "lineOfSight"
)

// Row is the data of an analysis as listed by the model.
type Row struct {
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
	Type    string `json:"type"`
}

// CombinedListModel lists the viewsheds of a resource provider followed by
// its lines of sight.
type CombinedListModel struct {
	// Emitted whenever one of the underlying lists changes.
	Reset notify.Event

	viewsheds    *notify.List[*geoview.Viewshed]
	linesOfSight *notify.List[*geoview.Analysis]
	connections  notify.Connections
}

// NewCombinedListModel creates a model over the analyses of resources.
func NewCombinedListModel(resources *geoview.ResourceProvider) *CombinedListModel {
	m := &CombinedListModel{
		viewsheds:    resources.Viewsheds(),
		linesOfSight: resources.LinesOfSight(),
	}

	m.connections.Add(
		m.viewsheds.OnChange(m.reset),
		m.linesOfSight.OnChange(m.reset),
	)
	return m
}

func (m *CombinedListModel) Len() int {
	return m.viewsheds.Len() + m.linesOfSight.Len()
}

// At returns the data of the analysis at row.
func (m *CombinedListModel) At(row int) (Row, bool) {
	if v, ok := m.viewshed(row); ok {
		return Row{
			Name:    v.Name,
			Visible: v.Analysis != nil && v.Analysis.Visible(),
			Type:    TypeViewshed,
		}, true
	}

	if i, a, ok := m.lineOfSight(row); ok {
		return Row{
			Name:    fmt.Sprintf("Line of Sight %d", i),
			Visible: a.Visible(),
			Type:    TypeLineOfSight,
		}, true
	}

	return Row{}, false
}

// Rows returns the data of all the analyses.
func (m *CombinedListModel) Rows() []Row {
	rows := make([]Row, 0, m.Len())
	for i := 0; i < m.Len(); i++ {
		if r, ok := m.At(i); ok {
			rows = append(rows, r)
		}
	}
	return rows
}

// SetVisible shows or hides the analysis at row. It returns false when row
// is out of range.
func (m *CombinedListModel) SetVisible(row int, visible bool) bool {
	if v, ok := m.viewshed(row); ok {
		if v.Analysis == nil {
			return false
		}
		v.Analysis.SetVisible(visible)
		m.viewsheds.Touch(row)
		return true
	}

	if i, a, ok := m.lineOfSight(row); ok {
		a.SetVisible(visible)
		m.linesOfSight.Touch(i)
		return true
	}

	return false
}

// RemoveAt removes the analysis at row from its underlying list.
func (m *CombinedListModel) RemoveAt(row int) bool {
	if row < m.viewsheds.Len() {
		return m.viewsheds.RemoveAt(row)
	}
	return m.linesOfSight.RemoveAt(row - m.viewsheds.Len())
}

// LocationAt returns the point of interest of the analysis at row: the
// observer of a viewshed or the target of a line of sight. It returns nil
// when row is out of range or the analysis has no location.
func (m *CombinedListModel) LocationAt(row int) *geom.Point {
	var a *geoview.Analysis
	if v, ok := m.viewshed(row); ok {
		a = v.Analysis
	} else if _, los, ok := m.lineOfSight(row); ok {
		a = los
	}
	if a == nil {
		return nil
	}
	return a.Location()
}

func (m *CombinedListModel) Close() {
	m.connections.DisconnectAll()
}

func (m *CombinedListModel) viewshed(row int) (*geoview.Viewshed, bool) {
	v, ok := m.viewsheds.At(row)
	return v, ok && v != nil
}

func (m *CombinedListModel) lineOfSight(row int) (int, *geoview.Analysis, bool) {
	i := row - m.viewsheds.Len()
	if row < 0 || i < 0 {
		return 0, nil, false
	}

	a, ok := m.linesOfSight.At(i)
	return i, a, ok && a != nil
}

func (m *CombinedListModel) reset() {
	notify.Fire(&m.Reset)
}
