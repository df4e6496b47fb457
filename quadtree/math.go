package quadtree

import (
	"math"

	"github.com/twpayne/go-geom"
)

// Extent is a 2D axis-aligned rectangle. Bounds are inclusive.
type Extent struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// NewExtent returns the extent spanning the given corners, whatever their
// order.
func NewExtent(x1, y1, x2, y2 float64) Extent {
	return Extent{
		MinX: math.Min(x1, x2),
		MinY: math.Min(y1, y2),
		MaxX: math.Max(x1, x2),
		MaxY: math.Max(y1, y2),
	}
}

// EmptyExtent returns an extent that contains nothing and intersects nothing.
func EmptyExtent() Extent {
	return Extent{
		MinX: math.Inf(1),
		MinY: math.Inf(1),
		MaxX: math.Inf(-1),
		MaxY: math.Inf(-1),
	}
}

// ExtentOfBounds converts go-geom bounds to an extent. Only the first two
// dimensions are kept.
func ExtentOfBounds(b *geom.Bounds) Extent {
	if b == nil || b.IsEmpty() {
		return EmptyExtent()
	}

	return Extent{
		MinX: b.Min(0),
		MinY: b.Min(1),
		MaxX: b.Max(0),
		MaxY: b.Max(1),
	}
}

// ExtentOf returns the extent of a geometry. A nil geometry has an empty
// extent.
func ExtentOf(g geom.T) Extent {
	if g == nil {
		return EmptyExtent()
	}
	return ExtentOfBounds(g.Bounds())
}

// Bounds returns the extent as XY go-geom bounds.
func (e Extent) Bounds() *geom.Bounds {
	return geom.NewBounds(geom.XY).Set(e.MinX, e.MinY, e.MaxX, e.MaxY)
}

func (e Extent) IsEmpty() bool {
	return e.MinX > e.MaxX || e.MinY > e.MaxY
}

// IsDegenerate reports whether the extent has no area.
func (e Extent) IsDegenerate() bool {
	return e.IsEmpty() || e.Width() == 0 || e.Height() == 0
}

func (e Extent) Width() float64 {
	return e.MaxX - e.MinX
}

func (e Extent) Height() float64 {
	return e.MaxY - e.MinY
}

func (e Extent) Center() (x, y float64) {
	return e.MinX + e.Width()/2, e.MinY + e.Height()/2
}

func (e Extent) Intersects(o Extent) bool {
	if e.IsEmpty() || o.IsEmpty() {
		return false
	}

	return e.MinX <= o.MaxX &&
		o.MinX <= e.MaxX &&
		e.MinY <= o.MaxY &&
		o.MinY <= e.MaxY
}

func (e Extent) Contains(o Extent) bool {
	if e.IsEmpty() || o.IsEmpty() {
		return false
	}

	return e.MinX <= o.MinX &&
		e.MinY <= o.MinY &&
		e.MaxX >= o.MaxX &&
		e.MaxY >= o.MaxY
}

func (e Extent) ContainsPoint(x, y float64) bool {
	return x >= e.MinX && x <= e.MaxX && y >= e.MinY && y <= e.MaxY
}

// Union returns the smallest extent containing both e and o.
func Union(e, o Extent) Extent {
	if e.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return e
	}

	return Extent{
		MinX: math.Min(e.MinX, o.MinX),
		MinY: math.Min(e.MinY, o.MinY),
		MaxX: math.Max(e.MaxX, o.MaxX),
		MaxY: math.Max(e.MaxY, o.MaxY),
	}
}

// Quadrants splits the extent at its center, in the order north-west,
// north-east, south-west, south-east.
func (e Extent) Quadrants() [4]Extent {
	cx, cy := e.Center()

	return [4]Extent{
		{MinX: e.MinX, MinY: cy, MaxX: cx, MaxY: e.MaxY},
		{MinX: cx, MinY: cy, MaxX: e.MaxX, MaxY: e.MaxY},
		{MinX: e.MinX, MinY: e.MinY, MaxX: cx, MaxY: cy},
		{MinX: cx, MinY: e.MinY, MaxX: e.MaxX, MaxY: cy},
	}
}
