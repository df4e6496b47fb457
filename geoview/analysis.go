package geoview

import (
	"fmt"
	"sync"

	"github.com/aukilabs/dsa/notify"
	"github.com/twpayne/go-geom"
)

// AnalysisKind identifies the variant of an Analysis.
type AnalysisKind int

const (
	LocationViewshed AnalysisKind = iota
	LocationLineOfSight
	GeoElementViewshed
	GeoElementLineOfSight
)

func (k AnalysisKind) String() string {
	switch k {
	case LocationViewshed:
		return "locationViewshed"
	case LocationLineOfSight:
		return "locationLineOfSight"
	case GeoElementViewshed:
		return "geoElementViewshed"
	case GeoElementLineOfSight:
		return "geoElementLineOfSight"
	default:
		return fmt.Sprintf("AnalysisKind(%d)", int(k))
	}
}

// Analysis is a visibility analysis displayed in a scene. The fields that are
// set depend on Kind:
//   - LocationViewshed: Observer.
//   - LocationLineOfSight: Observer and Target.
//   - GeoElementViewshed: ObserverElement.
//   - GeoElementLineOfSight: ObserverElement and TargetElement.
type Analysis struct {
	Kind AnalysisKind

	Observer *geom.Point
	Target   *geom.Point

	ObserverElement *Graphic
	TargetElement   *Graphic

	VisibleChanged notify.Signal[bool]

	mutex   sync.RWMutex
	visible bool
}

func NewLocationViewshed(observer *geom.Point) *Analysis {
	return &Analysis{
		Kind:     LocationViewshed,
		Observer: observer,
		visible:  true,
	}
}

func NewLocationLineOfSight(observer, target *geom.Point) *Analysis {
	return &Analysis{
		Kind:     LocationLineOfSight,
		Observer: observer,
		Target:   target,
		visible:  true,
	}
}

func NewGeoElementViewshed(observer *Graphic) *Analysis {
	return &Analysis{
		Kind:            GeoElementViewshed,
		ObserverElement: observer,
		visible:         true,
	}
}

func NewGeoElementLineOfSight(observer, target *Graphic) *Analysis {
	return &Analysis{
		Kind:            GeoElementLineOfSight,
		ObserverElement: observer,
		TargetElement:   target,
		visible:         true,
	}
}

// Location returns the point of interest of the analysis: the observer of a
// viewshed or the target of a line of sight. It returns nil when the
// analysis is incomplete.
func (a *Analysis) Location() *geom.Point {
	switch a.Kind {
	case LocationViewshed:
		return a.Observer

	case LocationLineOfSight:
		return a.Target

	case GeoElementViewshed:
		if a.ObserverElement == nil {
			return nil
		}
		return CenterPoint(a.ObserverElement.Geometry())

	case GeoElementLineOfSight:
		if a.TargetElement == nil {
			return nil
		}
		return CenterPoint(a.TargetElement.Geometry())

	default:
		return nil
	}
}

func (a *Analysis) Visible() bool {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.visible
}

func (a *Analysis) SetVisible(v bool) {
	a.mutex.Lock()
	changed := a.visible != v
	a.visible = v
	a.mutex.Unlock()

	if changed {
		a.VisibleChanged.Emit(v)
	}
}

// Viewshed is a named 360 degrees viewshed.
type Viewshed struct {
	Name     string
	Analysis *Analysis
}
