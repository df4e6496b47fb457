package geoview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestGraphic(t *testing.T) {
	g := NewGraphic(NewPoint(1, 2), nil)
	require.NotNil(t, g.Attributes)

	var changes int
	g.GeometryChanged.Connect(func(struct{}) { changes++ })

	g.SetGeometry(geom.NewPolygonFlat(geom.XY, []float64{0, 0, 4, 0, 4, 2, 0, 2, 0, 0}, []int{10}))
	require.Equal(t, 1, changes)

	x, y, ok := g.Center()
	require.True(t, ok)
	require.Equal(t, 2.0, x)
	require.Equal(t, 1.0, y)

	t.Run("highlight emits on change only", func(t *testing.T) {
		var states []bool
		g.HighlightChanged.Connect(func(v bool) { states = append(states, v) })

		g.SetHighlighted(true)
		g.SetHighlighted(true)
		g.SetHighlighted(false)
		require.Equal(t, []bool{true, false}, states)
	})

	t.Run("empty geometry has no center", func(t *testing.T) {
		_, _, ok := NewGraphic(nil, nil).Center()
		require.False(t, ok)
		require.Nil(t, CenterPoint(nil))
	})
}

func TestDecodeLayer(t *testing.T) {
	t.Run("feature collection", func(t *testing.T) {
		data := []byte(`{
			"type": "FeatureCollection",
			"features": [
				{
					"type": "Feature",
					"id": "hq",
					"geometry": {"type": "Point", "coordinates": [10, 20]},
					"properties": {"name": "HQ"}
				},
				{
					"type": "Feature",
					"geometry": {"type": "Polygon", "coordinates": [[[0, 0], [1, 0], [1, 1], [0, 1], [0, 0]]]},
					"properties": {"name": "zone"}
				}
			]
		}`)

		layer, err := DecodeLayer("sites", data)
		require.NoError(t, err)
		require.Equal(t, "sites", layer.Name)
		require.Equal(t, 2, layer.Features.Len())

		hq, _ := layer.Features.At(0)
		require.Equal(t, "HQ", hq.Attributes["name"])
		require.Equal(t, "hq", hq.Attributes["id"])
		require.IsType(t, &geom.Point{}, hq.Geometry())

		zone, _ := layer.Features.At(1)
		require.IsType(t, &geom.Polygon{}, zone.Geometry())
		require.NotContains(t, zone.Attributes, "id")
	})

	t.Run("not a feature collection", func(t *testing.T) {
		_, err := DecodeLayer("bad", []byte(`{"type": "Feature"}`))
		require.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := DecodeLayer("bad", []byte(`{`))
		require.Error(t, err)
	})
}

func TestGeoView(t *testing.T) {
	t.Run("map view", func(t *testing.T) {
		location := NewGraphicsOverlay("SCENEVIEWLOCATIONOVERLAY")
		v := NewMapView(NewGraphicsOverlay("a"), location)
		require.Equal(t, KindMap, v.Kind)
		require.NotNil(t, v.Map)
		require.Nil(t, v.Scene)

		o, ok := v.Overlay("SCENEVIEWLOCATIONOVERLAY")
		require.True(t, ok)
		require.Same(t, location, o)

		_, ok = v.Overlay("missing")
		require.False(t, ok)

		var change ViewpointChange
		v.Map.ViewpointChanged.Connect(func(c ViewpointChange) { change = c })
		v.Map.SetViewpoint(Viewpoint{Center: NewPoint(1, 1), Scale: 5000}, time.Second)
		require.Equal(t, 5000.0, change.Viewpoint.Scale)
		require.Equal(t, time.Second, change.Duration)
		require.Equal(t, 5000.0, v.Map.Viewpoint().Scale)

		var modes []AutoPanMode
		v.Map.AutoPanChanged.Connect(func(m AutoPanMode) { modes = append(modes, m) })
		v.Map.SetAutoPanMode(AutoPanNavigation)
		v.Map.SetAutoPanMode(AutoPanNavigation)
		require.Equal(t, []AutoPanMode{AutoPanNavigation}, modes)
	})

	t.Run("scene view", func(t *testing.T) {
		v := NewSceneView()
		require.Equal(t, KindScene, v.Kind)
		require.NotNil(t, v.Scene)
		require.Nil(t, v.Map)
		require.Equal(t, GlobeCameraController, v.Scene.CameraController().Kind)

		target := NewGraphic(NewPoint(0, 0), nil)
		v.Scene.SetCameraController(CameraController{
			Kind:     OrbitCameraController,
			Target:   target,
			Distance: 2000,
		})
		require.Equal(t, OrbitCameraController, v.Scene.CameraController().Kind)
		require.Same(t, target, v.Scene.CameraController().Target)
	})
}

func TestCameraZoomToward(t *testing.T) {
	c := Camera{
		Location: geom.NewPointFlat(geom.XYZ, []float64{100, 0, 1000}),
		Heading:  45,
	}
	target := NewPoint(0, 0)

	zoomed := c.ZoomToward(target, 10)
	require.InDelta(t, 10, zoomed.Location.X(), 1e-9)
	require.InDelta(t, 0, zoomed.Location.Y(), 1e-9)
	require.InDelta(t, 100, zoomed.Location.Z(), 1e-9)
	require.Equal(t, 45.0, zoomed.Heading)
	require.InDelta(t, c.DistanceTo(target)/10, zoomed.DistanceTo(target), 1e-9)

	require.Equal(t, c, c.ZoomToward(target, 0))
	require.Equal(t, c, c.ZoomToward(nil, 10))
}

func TestAnalysisLocation(t *testing.T) {
	observer := NewPoint(1, 1)
	target := NewPoint(5, 5)
	element := NewGraphic(geom.NewPolygonFlat(geom.XY, []float64{0, 0, 2, 0, 2, 2, 0, 2, 0, 0}, []int{10}), nil)

	tests := []struct {
		name     string
		analysis *Analysis
		expected []float64
	}{
		{
			name:     "location viewshed",
			analysis: NewLocationViewshed(observer),
			expected: []float64{1, 1},
		},
		{
			name:     "location line of sight",
			analysis: NewLocationLineOfSight(observer, target),
			expected: []float64{5, 5},
		},
		{
			name:     "geo element viewshed",
			analysis: NewGeoElementViewshed(element),
			expected: []float64{1, 1},
		},
		{
			name:     "geo element line of sight",
			analysis: NewGeoElementLineOfSight(nil, element),
			expected: []float64{1, 1},
		},
		{
			name:     "incomplete geo element line of sight",
			analysis: NewGeoElementLineOfSight(element, nil),
		},
		{
			name:     "unknown kind",
			analysis: &Analysis{Kind: AnalysisKind(42)},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			location := test.analysis.Location()
			if test.expected == nil {
				require.Nil(t, location)
				return
			}

			require.NotNil(t, location)
			require.Equal(t, test.expected, location.FlatCoords())
		})
	}
}

func TestAnalysisVisible(t *testing.T) {
	a := NewLocationViewshed(NewPoint(0, 0))
	require.True(t, a.Visible())

	var changes []bool
	a.VisibleChanged.Connect(func(v bool) { changes = append(changes, v) })

	a.SetVisible(false)
	a.SetVisible(false)
	require.False(t, a.Visible())
	require.Equal(t, []bool{false}, changes)
}

func TestResourceProvider(t *testing.T) {
	p := NewResourceProvider()
	require.Nil(t, p.GeoView())
	require.Nil(t, p.OperationalLayers())

	var viewChanges, documentChanges int
	p.GeoViewChanged.Connect(func(struct{}) { viewChanges++ })
	p.DocumentChanged.Connect(func(struct{}) { documentChanges++ })

	v := NewMapView()
	p.SetGeoView(v)
	p.SetGeoView(v)
	require.Equal(t, 1, viewChanges)
	require.Same(t, v, p.GeoView())

	d := NewDocument("map", "Map", KindMap, NewLayer("roads"))
	p.SetDocument(d)
	require.Equal(t, 1, documentChanges)
	require.Equal(t, 1, p.OperationalLayers().Len())

	require.NotNil(t, p.Viewsheds())
	require.NotNil(t, p.LinesOfSight())
}
