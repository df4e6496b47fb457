package alerts

import (
	"fmt"

	"github.com/aukilabs/dsa/geoview"
	"github.com/aukilabs/dsa/notify"
	"github.com/aukilabs/dsa/quadtree"
)

const (
	proximityCondition  = "proximity"
	withinAreaCondition = "within_area"
)

// NewProximityAlert creates an alert that is active while the source graphic
// is within distance of the target graphic. The alert follows the geometry
// changes of both graphics until it is invalidated.
func NewProximityAlert(source, target *geoview.Graphic, distance float64, status Status) *Alert {
	a := New(status, "Location in geofence")
	a.SetDescription(fmt.Sprintf("within %g of target", distance))

	evaluate := func() {
		a.SetPosition(source.Geometry())

		active := Distance(source.Geometry(), target.Geometry()) <= distance
		a.SetActive(active)
		instrumentConditionEvaluated(proximityCondition, active)
	}

	a.Own(
		source.GeometryChanged.Connect(func(struct{}) { evaluate() }),
		target.GeometryChanged.Connect(func(struct{}) { evaluate() }),
		a.Changed.Connect(func(struct{}) { source.SetHighlighted(a.Flashing()) }),
	)

	evaluate()
	return a
}

// NewWithinAreaAlert creates an alert that is active while the center of the
// source graphic lies inside one of the areas of index.
func NewWithinAreaAlert(source *geoview.Graphic, index *AreaIndex, status Status) *Alert {
	a := New(status, "Location in area")
	a.SetDescription("within area")

	evaluate := func() {
		a.SetPosition(source.Geometry())

		var active bool
		if x, y, ok := source.Center(); ok {
			_, active = index.Find(x, y)
		}
		a.SetActive(active)
		instrumentConditionEvaluated(withinAreaCondition, active)
	}

	a.Own(
		source.GeometryChanged.Connect(func(struct{}) { evaluate() }),
		index.Changed.Connect(func(struct{}) { evaluate() }),
		a.Changed.Connect(func(struct{}) { source.SetHighlighted(a.Flashing()) }),
	)

	evaluate()
	return a
}

// AreaIndex indexes the polygons of a graphics list to find the area that
// contains a point. It follows additions, removals and geometry changes of
// the list.
type AreaIndex struct {
	// Emitted after the index is updated.
	Changed notify.Event

	areas       *notify.List[*geoview.Graphic]
	tree        *quadtree.Quadtree
	connections notify.Connections
	watched     map[*geoview.Graphic]func()
}

// NewAreaIndex creates an index over areas with a quadtree of at most
// maxLevels levels.
func NewAreaIndex(areas *notify.List[*geoview.Graphic], maxLevels int) *AreaIndex {
	i := &AreaIndex{
		areas:   areas,
		tree:    quadtree.New(nil, elements(areas.Items()), maxLevels),
		watched: make(map[*geoview.Graphic]func()),
	}

	for _, g := range areas.Items() {
		i.watch(g)
	}

	i.connections.Add(
		i.tree.TreeChanged.Connect(func(struct{}) {
			notify.Fire(&i.Changed)
		}),
		areas.Added.Connect(func(r notify.Row[*geoview.Graphic]) {
			i.watch(r.Value)
			i.tree.Append(r.Value)
		}),
		areas.Removed.Connect(func(notify.Row[*geoview.Graphic]) {
			i.resync()
		}),
		areas.Reset.Connect(func(struct{}) {
			i.resync()
		}),
	)
	return i
}

// Find returns the first area, in list order, containing the point.
func (i *AreaIndex) Find(x, y float64) (*geoview.Graphic, bool) {
	for _, e := range i.tree.CandidatesAtPoint(x, y) {
		g := e.(*geoview.Graphic)
		if Contains(g.Geometry(), x, y) {
			return g, true
		}
	}
	return nil, false
}

// Stats returns debug information about the underlying quadtree.
func (i *AreaIndex) Stats() quadtree.DebugInfo {
	return i.tree.Stats()
}

// Close stops following the areas.
func (i *AreaIndex) Close() {
	i.connections.DisconnectAll()

	for g, disconnect := range i.watched {
		disconnect()
		delete(i.watched, g)
	}
}

func (i *AreaIndex) watch(g *geoview.Graphic) {
	if g == nil {
		return
	}
	if _, ok := i.watched[g]; ok {
		return
	}

	i.watched[g] = g.GeometryChanged.Connect(func(struct{}) {
		i.tree.Rebuild()
	})
}

func (i *AreaIndex) resync() {
	items := i.areas.Items()

	current := make(map[*geoview.Graphic]struct{}, len(items))
	for _, g := range items {
		current[g] = struct{}{}
		i.watch(g)
	}

	for g, disconnect := range i.watched {
		if _, ok := current[g]; !ok {
			disconnect()
			delete(i.watched, g)
		}
	}

	i.tree.Reset(elements(items))
}

func elements(graphics []*geoview.Graphic) []quadtree.Element {
	elements := make([]quadtree.Element, 0, len(graphics))
	for _, g := range graphics {
		if g != nil {
			elements = append(elements, g)
		}
	}
	return elements
}
