// Package follow implements the tool that makes the active view follow the
// device position.
package follow

import (
	"github.com/aukilabs/dsa/geoview"
	"github.com/aukilabs/dsa/notify"
	"github.com/aukilabs/dsa/tools"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

const (
	// ToolName is the name of the follow position tool.
	ToolName = "follow position"

	// LocationOverlayID is the id of the scene overlay holding the graphic
	// of the device position.
	LocationOverlayID = "SCENEVIEWLOCATIONOVERLAY"

	// OrbitDistance is the distance between the camera and the position
	// when a scene follows it.
	OrbitDistance = 2000
)

// Controller is the follow position tool.
type Controller struct {
	tools.Events

	// Emitted when following is turned on or off.
	FollowChanged notify.Signal[bool]

	resources  *geoview.ResourceProvider
	view       *geoview.GeoView
	following  bool
	disconnect func()
}

// New creates a follow position tool driving the active view of resources.
func New(resources *geoview.ResourceProvider) *Controller {
	c := &Controller{
		resources: resources,
		view:      resources.GeoView(),
	}

	c.disconnect = resources.GeoViewChanged.Connect(func(struct{}) {
		c.Init(resources.GeoView())
	})
	return c
}

func (c *Controller) ToolName() string {
	return ToolName
}

// SetProperties does nothing: following is not persisted.
func (c *Controller) SetProperties(tools.Properties) {
}

// Init sets the view driven by the tool.
func (c *Controller) Init(view *geoview.GeoView) {
	c.view = view
}

func (c *Controller) IsFollow() bool {
	return c.following
}

// SetFollow turns following on or off. It does nothing when no view is set.
// A scene only orbits the position when the location overlay holds exactly
// one graphic.
func (c *Controller) SetFollow(follow bool) {
	if c.following == follow || c.view == nil {
		return
	}

	c.following = follow
	c.FollowChanged.Emit(follow)

	logs.WithTag("tool", ToolName).
		WithTag("follow", follow).
		WithTag("view", c.view.Kind).
		Debug("follow position changed")

	switch c.view.Kind {
	case geoview.KindMap:
		mode := geoview.AutoPanOff
		if follow {
			mode = geoview.AutoPanNavigation
		}
		c.view.Map.SetAutoPanMode(mode)

	case geoview.KindScene:
		if !follow {
			c.view.Scene.SetCameraController(geoview.CameraController{
				Kind: geoview.GlobeCameraController,
			})
			return
		}

		g, ok := c.locationGraphic()
		if !ok {
			return
		}

		c.view.Scene.SetCameraController(geoview.CameraController{
			Kind:     geoview.OrbitCameraController,
			Target:   g,
			Distance: OrbitDistance,
		})
	}
}

func (c *Controller) Close() {
	c.disconnect()
}

func (c *Controller) locationGraphic() (*geoview.Graphic, bool) {
	overlay, ok := c.view.Overlay(LocationOverlayID)
	if !ok || overlay.Graphics.Len() != 1 {
		return nil, false
	}

	g, ok := overlay.Graphics.At(0)
	return g, ok && g != nil
}
