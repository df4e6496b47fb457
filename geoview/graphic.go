// Package geoview models the objects a geo view exposes to tools: layers,
// graphics overlays, graphics, viewpoints, cameras and analyses.
//
// A geo view is either a map or a scene. Tools query and mutate these objects
// and observe them through the signals they carry.
package geoview

import (
	"sync"

	"github.com/aukilabs/dsa/notify"
	"github.com/aukilabs/dsa/quadtree"
	"github.com/twpayne/go-geom"
)

// Graphic is a geometry with attributes drawn in a layer or an overlay.
type Graphic struct {
	// Emitted after the geometry is replaced.
	GeometryChanged notify.Event

	// Emitted after the highlight state changes.
	HighlightChanged notify.Signal[bool]

	Attributes map[string]any

	mutex       sync.RWMutex
	geometry    geom.T
	highlighted bool
}

// NewGraphic creates a graphic.
func NewGraphic(g geom.T, attributes map[string]any) *Graphic {
	if attributes == nil {
		attributes = make(map[string]any)
	}

	return &Graphic{
		Attributes: attributes,
		geometry:   g,
	}
}

// Geometry returns the graphic geometry.
func (g *Graphic) Geometry() geom.T {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return g.geometry
}

// SetGeometry replaces the graphic geometry.
func (g *Graphic) SetGeometry(v geom.T) {
	g.mutex.Lock()
	g.geometry = v
	g.mutex.Unlock()

	notify.Fire(&g.GeometryChanged)
}

// Center returns the center of the graphic extent.
func (g *Graphic) Center() (x, y float64, ok bool) {
	return Center(g.Geometry())
}

func (g *Graphic) Highlighted() bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return g.highlighted
}

func (g *Graphic) SetHighlighted(v bool) {
	g.mutex.Lock()
	changed := g.highlighted != v
	g.highlighted = v
	g.mutex.Unlock()

	if changed {
		g.HighlightChanged.Emit(v)
	}
}

// Center returns the center of the extent of a geometry. ok is false for an
// empty geometry.
func Center(g geom.T) (x, y float64, ok bool) {
	extent := quadtree.ExtentOf(g)
	if extent.IsEmpty() {
		return 0, 0, false
	}

	x, y = extent.Center()
	return x, y, true
}

// NewPoint returns a 2D point.
func NewPoint(x, y float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{x, y})
}

// CenterPoint returns the center of the extent of g as a point, or nil when
// g is empty.
func CenterPoint(g geom.T) *geom.Point {
	x, y, ok := Center(g)
	if !ok {
		return nil
	}
	return NewPoint(x, y)
}
