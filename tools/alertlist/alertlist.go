// Package alertlist implements the tool presenting the active alerts to
// users. Alerts can be highlighted, zoomed to, marked as viewed, dismissed
// and filtered by minimum status.
package alertlist

import (
	"time"

	"github.com/aukilabs/dsa/alerts"
	"github.com/aukilabs/dsa/geoview"
	"github.com/aukilabs/dsa/notify"
	"github.com/aukilabs/dsa/tools"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

const (
	// ToolName is the name of the alert list tool.
	ToolName = "Alert List"

	zoomFactor   = 10
	zoomDuration = time.Second
)

// Controller is the alert list tool.
type Controller struct {
	tools.Events

	model        *alerts.Model
	resources    *geoview.ResourceProvider
	filtered     *alerts.FilteredModel
	statusFilter *alerts.StatusFilter
	idsFilter    *alerts.IDsFilter
	highlighter  *Highlighter

	highlighted          *alerts.Alert
	highlightConnections notify.Connections
}

// New creates an alert list tool listing the active alerts of model.
func New(model *alerts.Model, resources *geoview.ResourceProvider) *Controller {
	c := &Controller{
		model:        model,
		resources:    resources,
		statusFilter: alerts.NewStatusFilter(alerts.Low),
		idsFilter:    alerts.NewIDsFilter(),
		highlighter:  NewHighlighter(resources),
	}

	c.filtered = alerts.NewFilteredModel(model, alerts.ActiveFilter{}, c.statusFilter, c.idsFilter)
	return c
}

func (c *Controller) ToolName() string {
	return ToolName
}

// SetProperties does nothing: the alert list has no persisted properties.
func (c *Controller) SetProperties(tools.Properties) {
}

// AlertListModel returns the filtered alerts presented to users.
func (c *Controller) AlertListModel() *alerts.FilteredModel {
	return c.filtered
}

// Highlighter returns the highlighter showing the highlighted alert.
func (c *Controller) Highlighter() *Highlighter {
	return c.highlighter
}

// Highlighted returns the highlighted alert, or nil.
func (c *Controller) Highlighted() *alerts.Alert {
	return c.highlighted
}

// Highlight shows or hides the highlight of the alert at the given row of
// the filtered model. Only one alert is highlighted at a time: highlighting
// an alert replaces the previous highlight.
func (c *Controller) Highlight(row int, show bool) {
	if !show {
		c.stopHighlight()
		return
	}

	a, ok := c.filtered.At(row)
	if !ok {
		return
	}

	c.highlightConnections.DisconnectAll()
	c.highlighted = a

	c.highlightConnections.Add(
		a.NoLongerValid.Connect(func(struct{}) {
			c.stopHighlight()
		}),
		a.Changed.Connect(func(struct{}) {
			if !a.Active() {
				c.stopHighlight()
				return
			}
			c.highlighter.PointChanged(a.Position())
		}),
	)

	c.highlighter.PointChanged(a.Position())
	c.highlighter.Start()

	logs.WithTag("tool", ToolName).
		WithTag("alert_id", a.ID()).
		Debug("alert highlighted")
}

func (c *Controller) stopHighlight() {
	c.highlightConnections.DisconnectAll()
	c.highlighted = nil
	c.highlighter.Stop()
}

// ZoomTo moves the geo view to the alert at the given row of the filtered
// model. Scene cameras zoom toward the alert, map views are recentred on it
// at the current scale.
func (c *Controller) ZoomTo(row int) {
	a, ok := c.filtered.At(row)
	if !ok {
		return
	}

	view := c.resources.GeoView()
	if view == nil {
		return
	}

	center := geoview.CenterPoint(a.Position())
	if center == nil {
		return
	}

	switch view.Kind {
	case geoview.KindScene:
		camera := view.Scene.Camera().ZoomToward(center, zoomFactor)
		view.Scene.SetCamera(camera, zoomDuration)

	case geoview.KindMap:
		vp := view.Map.Viewpoint()
		view.Map.SetViewpoint(geoview.Viewpoint{
			Center: center,
			Scale:  vp.Scale,
		}, zoomDuration)
	}
}

// SetViewed marks the alert at the given row of the filtered model as
// viewed.
func (c *Controller) SetViewed(row int) {
	source, ok := c.filtered.MapToSource(row)
	if !ok {
		return
	}
	c.model.SetData(source, alerts.RoleViewed, true)
}

// Dismiss hides the alert at the given row of the filtered model. The alert
// stays in the alert model.
func (c *Controller) Dismiss(row int) {
	a, ok := c.filtered.At(row)
	if !ok {
		return
	}

	c.idsFilter.Add(a.ID())
	c.filtered.Invalidate()

	logs.WithTag("tool", ToolName).
		WithTag("alert_id", a.ID()).
		Debug("alert dismissed")
}

// ClearDismissed lists the dismissed alerts again.
func (c *Controller) ClearDismissed() {
	if c.idsFilter.Len() == 0 {
		return
	}

	c.idsFilter.Clear()
	c.filtered.Invalidate()
}

// SetMinLevel lists only the alerts with a status greater or equal to
// level. Invalid levels are ignored.
func (c *Controller) SetMinLevel(level int) {
	if !c.statusFilter.SetMinLevel(alerts.Status(level)) {
		return
	}
	c.filtered.Invalidate()
}

// MinLevel returns the minimum listed status.
func (c *Controller) MinLevel() alerts.Status {
	return c.statusFilter.MinLevel()
}

// FlashAll sets the flashing state of every active alert.
func (c *Controller) FlashAll(flash bool) {
	for _, a := range c.model.Alerts() {
		if a == nil || !a.Active() {
			continue
		}
		a.SetFlashing(flash)
	}
}

func (c *Controller) Close() {
	c.stopHighlight()
	c.filtered.Close()
}
