package quadtree

import "github.com/twpayne/go-geom"

// Element is a geometric object referenced by a spatial index. The index does
// not own elements.
type Element interface {
	Geometry() geom.T
}

// DebugInfo describes the shape of a spatial index.
type DebugInfo struct {
	MaxLevels    int
	Depth        int
	NodeCount    int
	LeafCount    int
	ElementCount int
	Extent       Extent
	Occupancy    []int
}

// SpatialIndex narrows a set of elements to the ones whose extent may
// intersect a query.
type SpatialIndex interface {
	Append(e Element)
	Candidates(g geom.T) []Element
	CandidatesInExtent(e Extent) []Element
	CandidatesAtPoint(x, y float64) []Element

	// debug stuff:
	Stats() DebugInfo
}
