package alerts

import (
	"math"

	"github.com/twpayne/go-geom"
)

// Planar geometry predicates used to evaluate alert conditions. Geometries
// are reduced to their vertices and segments; curves are not supported.

type segment struct {
	ax, ay, bx, by float64
}

// Contains reports whether the point (x, y) lies inside a polygonal
// geometry. Points inside a hole are outside. Non polygonal geometries
// contain nothing.
func Contains(g geom.T, x, y float64) bool {
	switch g := g.(type) {
	case *geom.Polygon:
		return polygonContains(g, x, y)

	case *geom.MultiPolygon:
		for i := 0; i < g.NumPolygons(); i++ {
			if polygonContains(g.Polygon(i), x, y) {
				return true
			}
		}
		return false

	default:
		return false
	}
}

func polygonContains(p *geom.Polygon, x, y float64) bool {
	if p == nil || p.NumLinearRings() == 0 {
		return false
	}

	stride := p.Stride()
	if !ringContains(p.LinearRing(0).FlatCoords(), stride, x, y) {
		return false
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		if ringContains(p.LinearRing(i).FlatCoords(), stride, x, y) {
			return false
		}
	}
	return true
}

// Even-odd ray casting.
func ringContains(flat []float64, stride int, x, y float64) bool {
	n := len(flat) / stride
	if n < 3 {
		return false
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := flat[i*stride], flat[i*stride+1]
		xj, yj := flat[j*stride], flat[j*stride+1]

		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// Distance returns the minimum planar distance between two geometries. It is
// zero when they touch or when a vertex of one lies inside a polygon of the
// other. Empty and unsupported geometries are infinitely far apart.
func Distance(a, b geom.T) float64 {
	va, sa := decompose(a)
	vb, sb := decompose(b)
	if len(va) == 0 || len(vb) == 0 {
		return math.Inf(1)
	}

	for _, v := range va {
		if Contains(b, v[0], v[1]) {
			return 0
		}
	}
	for _, v := range vb {
		if Contains(a, v[0], v[1]) {
			return 0
		}
	}

	d := math.Inf(1)
	for _, s := range sa {
		for _, o := range sb {
			d = math.Min(d, segmentDistance(s, o))
			if d == 0 {
				return 0
			}
		}
	}
	return d
}

// decompose returns the vertices of g and its segments. A geometry without
// segments, such as a point, has each vertex turned into a zero length
// segment.
func decompose(g geom.T) (vertices [][2]float64, segments []segment) {
	switch g.(type) {
	case *geom.Point, *geom.MultiPoint, *geom.LineString, *geom.LinearRing,
		*geom.MultiLineString, *geom.Polygon, *geom.MultiPolygon:
	default:
		return nil, nil
	}

	stride := g.Stride()
	flat := g.FlatCoords()
	for i := 0; i+1 < len(flat); i += stride {
		vertices = append(vertices, [2]float64{flat[i], flat[i+1]})
	}

	addPath := func(start, end int) {
		for i := start; i+stride < end; i += stride {
			segments = append(segments, segment{
				ax: flat[i],
				ay: flat[i+1],
				bx: flat[i+stride],
				by: flat[i+stride+1],
			})
		}
	}

	switch g := g.(type) {
	case *geom.LineString, *geom.LinearRing:
		addPath(0, len(flat))

	case *geom.Polygon, *geom.MultiLineString:
		start := 0
		for _, end := range g.Ends() {
			addPath(start, end)
			start = end
		}

	case *geom.MultiPolygon:
		start := 0
		for _, ends := range g.Endss() {
			for _, end := range ends {
				addPath(start, end)
				start = end
			}
		}
	}

	if len(segments) == 0 {
		for _, v := range vertices {
			segments = append(segments, segment{ax: v[0], ay: v[1], bx: v[0], by: v[1]})
		}
	}
	return vertices, segments
}

func segmentDistance(s, o segment) float64 {
	if segmentsIntersect(s, o) {
		return 0
	}

	return math.Min(
		math.Min(pointSegmentDistance(s.ax, s.ay, o), pointSegmentDistance(s.bx, s.by, o)),
		math.Min(pointSegmentDistance(o.ax, o.ay, s), pointSegmentDistance(o.bx, o.by, s)),
	)
}

func pointSegmentDistance(x, y float64, s segment) float64 {
	dx := s.bx - s.ax
	dy := s.by - s.ay

	lengthSquared := dx*dx + dy*dy
	if lengthSquared == 0 {
		return math.Hypot(x-s.ax, y-s.ay)
	}

	t := ((x-s.ax)*dx + (y-s.ay)*dy) / lengthSquared
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(x-(s.ax+t*dx), y-(s.ay+t*dy))
}

func segmentsIntersect(s, o segment) bool {
	d1 := orientation(o.ax, o.ay, o.bx, o.by, s.ax, s.ay)
	d2 := orientation(o.ax, o.ay, o.bx, o.by, s.bx, s.by)
	d3 := orientation(s.ax, s.ay, s.bx, s.by, o.ax, o.ay)
	d4 := orientation(s.ax, s.ay, s.bx, s.by, o.bx, o.by)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	// Collinear and touching cases are covered by the point to segment
	// distances.
	return false
}

func orientation(ax, ay, bx, by, cx, cy float64) float64 {
	return (bx-ax)*(cy-ay) - (by-ay)*(cx-ax)
}
