package quadtree

import (
	"slices"

	"github.com/aukilabs/dsa/notify"
	"github.com/twpayne/go-geom"
)

// Geometry Quadtree
//
// A bounded four-way tree over the extents of static geometries. It is used to
// narrow the set of geometries worth a precise intersection test:
//   - queries return a superset of the intersecting elements. Exact tests are
//     left to the caller.
//   - an element is referenced by every leaf its extent touches.
//   - depth never exceeds the configured maximum, whatever the occupancy.

// A node stops splitting when it holds fewer elements than this.
const splitThreshold = 8

type node struct {
	extent   Extent
	level    int
	elements []int
	children *[4]*node
}

func (n *node) isLeaf() bool {
	return n.children == nil
}

var _ SpatialIndex = (*Quadtree)(nil)

// Quadtree is a SpatialIndex backed by a region quadtree.
type Quadtree struct {
	// Emitted after elements are appended or the tree is rebuilt.
	TreeChanged notify.Event

	maxLevels int
	extent    Extent
	elements  []Element
	extents   []Extent
	root      *node
}

// New builds a quadtree covering extent and indexing elements. A nil extent
// is computed from the elements. Elements lying outside extent grow the root
// so they are still found.
func New(extent *geom.Bounds, elements []Element, maxLevels int) *Quadtree {
	if maxLevels < 0 {
		maxLevels = 0
	}

	t := &Quadtree{
		maxLevels: maxLevels,
		extent:    ExtentOfBounds(extent),
		elements:  append([]Element(nil), elements...),
	}
	t.build()
	return t
}

// Append indexes a new element. It is placed in every leaf whose extent
// intersects its own; an overflowing leaf above the depth bound is split.
func (t *Quadtree) Append(e Element) {
	if e == nil {
		return
	}

	index := len(t.elements)
	ext := ExtentOf(e.Geometry())
	t.elements = append(t.elements, e)
	t.extents = append(t.extents, ext)

	switch {
	case ext.IsEmpty():
	case !t.root.extent.Contains(ext):
		t.extent = Union(t.extent, ext)
		t.build()
	default:
		t.insert(t.root, index)
	}

	notify.Fire(&t.TreeChanged)
}

// Rebuild recomputes the element extents and rebuilds the tree. It must be
// called when the geometry of an indexed element changes.
func (t *Quadtree) Rebuild() {
	t.build()
	notify.Fire(&t.TreeChanged)
}

// Reset replaces the indexed elements and rebuilds the tree.
func (t *Quadtree) Reset(elements []Element) {
	t.elements = append([]Element(nil), elements...)
	t.Rebuild()
}

// Candidates returns the elements that may intersect g.
func (t *Quadtree) Candidates(g geom.T) []Element {
	return t.CandidatesInExtent(ExtentOf(g))
}

// CandidatesInExtent returns the elements that may intersect e.
func (t *Quadtree) CandidatesInExtent(e Extent) []Element {
	if e.IsEmpty() {
		return nil
	}

	var indexes []int
	seen := make(map[int]struct{})
	t.query(t.root, e, seen, &indexes)

	slices.Sort(indexes)
	candidates := make([]Element, len(indexes))
	for i, index := range indexes {
		candidates[i] = t.elements[index]
	}
	return candidates
}

// CandidatesAtPoint returns the elements that may contain the given point.
func (t *Quadtree) CandidatesAtPoint(x, y float64) []Element {
	return t.CandidatesInExtent(Extent{MinX: x, MinY: y, MaxX: x, MaxY: y})
}

// Len returns the number of indexed elements.
func (t *Quadtree) Len() int {
	return len(t.elements)
}

// Depth returns the level of the deepest node. A single leaf tree has a depth
// of 0.
func (t *Quadtree) Depth() int {
	var depth int
	t.walk(t.root, func(n *node) {
		depth = max(depth, n.level)
	})
	return depth
}

// Extent returns the extent covered by the root node.
func (t *Quadtree) Extent() Extent {
	return t.root.extent
}

func (t *Quadtree) Stats() DebugInfo {
	info := DebugInfo{
		MaxLevels:    t.maxLevels,
		ElementCount: len(t.elements),
		Extent:       t.root.extent,
	}

	t.walk(t.root, func(n *node) {
		info.NodeCount++
		info.Depth = max(info.Depth, n.level)

		if n.isLeaf() {
			info.LeafCount++
			info.Occupancy = append(info.Occupancy, len(n.elements))
		}
	})
	return info
}

func (t *Quadtree) build() {
	t.extents = make([]Extent, len(t.elements))
	rootExtent := t.extent

	indexes := make([]int, 0, len(t.elements))
	for i, e := range t.elements {
		t.extents[i] = ExtentOf(e.Geometry())
		if t.extents[i].IsEmpty() {
			continue
		}

		rootExtent = Union(rootExtent, t.extents[i])
		indexes = append(indexes, i)
	}

	t.root = &node{
		extent:   rootExtent,
		elements: indexes,
	}
	t.split(t.root)
}

func (t *Quadtree) split(n *node) {
	if n.level >= t.maxLevels ||
		len(n.elements) < splitThreshold ||
		n.extent.IsDegenerate() {
		return
	}

	var children [4]*node
	for i, quadrant := range n.extent.Quadrants() {
		child := &node{
			extent: quadrant,
			level:  n.level + 1,
		}

		for _, index := range n.elements {
			if quadrant.Intersects(t.extents[index]) {
				child.elements = append(child.elements, index)
			}
		}

		children[i] = child
	}

	n.children = &children
	n.elements = nil

	for _, child := range children {
		t.split(child)
	}
}

func (t *Quadtree) insert(n *node, index int) {
	if !n.extent.Intersects(t.extents[index]) {
		return
	}

	if n.isLeaf() {
		n.elements = append(n.elements, index)
		t.split(n)
		return
	}

	for _, child := range n.children {
		t.insert(child, index)
	}
}

func (t *Quadtree) query(n *node, e Extent, seen map[int]struct{}, indexes *[]int) {
	if !n.extent.Intersects(e) {
		return
	}

	if !n.isLeaf() {
		for _, child := range n.children {
			t.query(child, e, seen, indexes)
		}
		return
	}

	for _, index := range n.elements {
		if _, ok := seen[index]; ok {
			continue
		}
		if !t.extents[index].Intersects(e) {
			continue
		}

		seen[index] = struct{}{}
		*indexes = append(*indexes, index)
	}
}

func (t *Quadtree) walk(n *node, f func(*node)) {
	f(n)

	if n.isLeaf() {
		return
	}
	for _, child := range n.children {
		t.walk(child, f)
	}
}
