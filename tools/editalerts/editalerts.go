// Package editalerts implements the tool that creates and removes alert
// conditions.
//
// Layers are addressed by index: the operational layers of the loaded
// document come first, followed by the graphics overlays of the geo view.
package editalerts

import (
	"slices"

	"github.com/aukilabs/dsa/alerts"
	"github.com/aukilabs/dsa/geoview"
	"github.com/aukilabs/dsa/notify"
	"github.com/aukilabs/dsa/tools"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

const (
	// ToolName is the name of the edit alerts tool.
	ToolName = "Edit Alerts"

	areaIndexMaxLevels = 8
)

// Controller is the edit alerts tool.
type Controller struct {
	tools.Events

	// Emitted when the layer names change.
	LayerNamesChanged notify.Event

	// Emitted when the conditions list changes.
	ConditionsListChanged notify.Event

	model     *alerts.Model
	resources *geoview.ResourceProvider

	layerNames      []string
	connections     notify.Connections
	viewConnections notify.Connections
	rules           []*rule
}

// New creates an edit alerts tool adding its alerts to model.
func New(model *alerts.Model, resources *geoview.ResourceProvider) *Controller {
	c := &Controller{
		model:     model,
		resources: resources,
	}

	conditionsChanged := func(notify.Row[*alerts.Alert]) {
		notify.Fire(&c.ConditionsListChanged)
	}

	c.connections.Add(
		resources.GeoViewChanged.Connect(func(struct{}) { c.onGeoViewChanged() }),
		resources.DocumentChanged.Connect(func(struct{}) { c.onGeoViewChanged() }),
		model.RowsInserted.Connect(conditionsChanged),
		model.RowsRemoved.Connect(conditionsChanged),
		model.DataChanged.Connect(conditionsChanged),
	)

	c.onGeoViewChanged()
	return c
}

func (c *Controller) ToolName() string {
	return ToolName
}

// SetProperties does nothing: the tool has no persisted properties.
func (c *Controller) SetProperties(tools.Properties) {
}

// LayerNames returns the names of the operational layers followed by the
// ids of the graphics overlays.
func (c *Controller) LayerNames() []string {
	return append([]string(nil), c.layerNames...)
}

// StatusNames returns the names of the alert statuses, ordered by severity.
func (c *Controller) StatusNames() []string {
	return alerts.StatusNames()
}

// ConditionsList returns the alerts model.
func (c *Controller) ConditionsList() *alerts.Model {
	return c.model
}

// AddWithinDistanceAlert creates one alert per graphic of the source layer
// that is active while the graphic is within distance of the target graphic
// identified by itemID. Graphics added to the source layer later get their
// own alert. Invalid arguments are ignored.
func (c *Controller) AddWithinDistanceAlert(statusIndex, sourceLayerIndex int, distance float64, itemID, targetLayerIndex int) {
	if statusIndex < 0 ||
		sourceLayerIndex < 0 ||
		distance < 0 ||
		itemID < 0 ||
		targetLayerIndex < 0 {
		return
	}

	if sourceLayerIndex == targetLayerIndex {
		return
	}

	status := alerts.Status(statusIndex)
	if !status.Valid() {
		return
	}

	source, ok := c.graphics(sourceLayerIndex)
	if !ok {
		return
	}

	targets, ok := c.graphics(targetLayerIndex)
	if !ok {
		return
	}

	target, ok := targets.At(itemID)
	if !ok || target == nil {
		return
	}

	r := newRule(c.model, source, func(g *geoview.Graphic) *alerts.Alert {
		return alerts.NewProximityAlert(g, target, distance, status)
	})

	r.connections.Add(
		targets.Removed.Connect(func(row notify.Row[*geoview.Graphic]) {
			if row.Value == target {
				r.close()
			}
		}),
		targets.Reset.Connect(func(struct{}) {
			for _, g := range targets.Items() {
				if g == target {
					return
				}
			}
			r.close()
		}),
	)

	c.rules = append(c.rules, r)

	logs.WithTag("tool", ToolName).
		WithTag("status", status).
		WithTag("distance", distance).
		WithTag("alerts", len(r.alerts)).
		Info("within distance alert added")
}

// AddWithinAreaAlert creates one alert per graphic of the source layer that
// is active while the graphic is inside one of the areas of the target
// layer. Invalid arguments are ignored.
func (c *Controller) AddWithinAreaAlert(statusIndex, sourceLayerIndex, targetLayerIndex int) {
	if statusIndex < 0 || sourceLayerIndex < 0 || targetLayerIndex < 0 {
		return
	}

	if sourceLayerIndex == targetLayerIndex {
		return
	}

	status := alerts.Status(statusIndex)
	if !status.Valid() {
		return
	}

	source, ok := c.graphics(sourceLayerIndex)
	if !ok {
		return
	}

	areas, ok := c.graphics(targetLayerIndex)
	if !ok {
		return
	}

	index := alerts.NewAreaIndex(areas, areaIndexMaxLevels)
	r := newRule(c.model, source, func(g *geoview.Graphic) *alerts.Alert {
		return alerts.NewWithinAreaAlert(g, index, status)
	})
	r.connections.Add(index.Close)

	c.rules = append(c.rules, r)

	stats := index.Stats()
	logs.WithTag("tool", ToolName).
		WithTag("status", status).
		WithTag("areas", areas.Len()).
		WithTag("nodes", stats.NodeCount).
		WithTag("alerts", len(r.alerts)).
		Info("within area alert added")
}

// RemoveConditionAt invalidates the alert at the given row of the alerts
// model, which removes it and releases its wiring.
func (c *Controller) RemoveConditionAt(row int) {
	a, ok := c.model.At(row)
	if !ok {
		return
	}
	a.Invalidate()
}

func (c *Controller) Close() {
	c.connections.DisconnectAll()
	c.viewConnections.DisconnectAll()

	for _, r := range c.rules {
		r.connections.DisconnectAll()
	}
	c.rules = nil
}

// graphics returns the graphics of the layer at the given index.
func (c *Controller) graphics(index int) (*notify.List[*geoview.Graphic], bool) {
	view := c.resources.GeoView()
	if view == nil {
		return nil, false
	}

	if layers := c.resources.OperationalLayers(); layers != nil {
		if index < layers.Len() {
			l, ok := layers.At(index)
			if !ok || l == nil {
				return nil, false
			}
			return l.Features, true
		}
		index -= layers.Len()
	}

	o, ok := view.Overlays.At(index)
	if !ok || o == nil {
		return nil, false
	}
	return o.Graphics, true
}

func (c *Controller) onGeoViewChanged() {
	c.viewConnections.DisconnectAll()

	view := c.resources.GeoView()
	if view == nil {
		c.setLayerNames(nil)
		return
	}

	refresh := func() { c.refreshLayerNames() }

	if layers := c.resources.OperationalLayers(); layers != nil {
		c.viewConnections.Add(layers.OnChange(refresh))
	}
	c.viewConnections.Add(view.Overlays.OnChange(refresh))

	c.refreshLayerNames()
}

func (c *Controller) refreshLayerNames() {
	view := c.resources.GeoView()
	if view == nil {
		c.setLayerNames(nil)
		return
	}

	var names []string
	if layers := c.resources.OperationalLayers(); layers != nil {
		for _, l := range layers.Items() {
			if l != nil {
				names = append(names, l.Name)
			}
		}
	}

	for _, o := range view.Overlays.Items() {
		if o != nil {
			names = append(names, o.ID)
		}
	}

	c.setLayerNames(names)
}

func (c *Controller) setLayerNames(names []string) {
	if slices.Equal(c.layerNames, names) {
		return
	}

	c.layerNames = names
	notify.Fire(&c.LayerNamesChanged)
}
