package follow

import (
	"testing"

	"github.com/aukilabs/dsa/geoview"
	"github.com/aukilabs/dsa/tools"
	"github.com/stretchr/testify/require"
)

func TestControllerIsTool(t *testing.T) {
	var _ tools.Tool = New(geoview.NewResourceProvider())
}

func TestFollowWithoutView(t *testing.T) {
	c := New(geoview.NewResourceProvider())
	defer c.Close()

	c.SetFollow(true)
	require.False(t, c.IsFollow())
}

func TestFollowMap(t *testing.T) {
	resources := geoview.NewResourceProvider()
	c := New(resources)
	defer c.Close()

	view := geoview.NewMapView()
	resources.SetGeoView(view)

	var changes []bool
	c.FollowChanged.Connect(func(v bool) { changes = append(changes, v) })

	c.SetFollow(true)
	require.True(t, c.IsFollow())
	require.Equal(t, geoview.AutoPanNavigation, view.Map.AutoPanMode())

	c.SetFollow(true)
	c.SetFollow(false)
	require.False(t, c.IsFollow())
	require.Equal(t, geoview.AutoPanOff, view.Map.AutoPanMode())
	require.Equal(t, []bool{true, false}, changes)
}

func TestFollowScene(t *testing.T) {
	t.Run("orbits the location graphic", func(t *testing.T) {
		location := geoview.NewGraphic(geoview.NewPoint(3, 4), nil)
		view := geoview.NewSceneView(geoview.NewGraphicsOverlay(LocationOverlayID, location))

		c := New(geoview.NewResourceProvider())
		defer c.Close()
		c.Init(view)

		c.SetFollow(true)
		require.Equal(t, geoview.CameraController{
			Kind:     geoview.OrbitCameraController,
			Target:   location,
			Distance: OrbitDistance,
		}, view.Scene.CameraController())

		c.SetFollow(false)
		require.Equal(t, geoview.GlobeCameraController, view.Scene.CameraController().Kind)
	})

	t.Run("requires a single location graphic", func(t *testing.T) {
		view := geoview.NewSceneView(geoview.NewGraphicsOverlay(LocationOverlayID,
			geoview.NewGraphic(geoview.NewPoint(3, 4), nil),
			geoview.NewGraphic(geoview.NewPoint(5, 6), nil),
		))

		c := New(geoview.NewResourceProvider())
		defer c.Close()
		c.Init(view)

		c.SetFollow(true)
		require.True(t, c.IsFollow())
		require.Equal(t, geoview.GlobeCameraController, view.Scene.CameraController().Kind)
	})

	t.Run("without location overlay", func(t *testing.T) {
		view := geoview.NewSceneView()

		c := New(geoview.NewResourceProvider())
		defer c.Close()
		c.Init(view)

		c.SetFollow(true)
		require.Equal(t, geoview.GlobeCameraController, view.Scene.CameraController().Kind)
	})
}
