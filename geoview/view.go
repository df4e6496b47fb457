package geoview

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/aukilabs/dsa/notify"
	"github.com/twpayne/go-geom"
)

// Kind identifies the variant of a GeoView.
type Kind int

const (
	KindMap Kind = iota
	KindScene
)

func (k Kind) String() string {
	switch k {
	case KindMap:
		return "map"
	case KindScene:
		return "scene"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// GeoView is a map view or a scene view. Exactly one of Map and Scene is set,
// according to Kind.
type GeoView struct {
	Kind     Kind
	Overlays *notify.List[*GraphicsOverlay]

	Map   *MapView
	Scene *SceneView
}

// NewMapView creates a 2D geo view.
func NewMapView(overlays ...*GraphicsOverlay) *GeoView {
	return &GeoView{
		Kind:     KindMap,
		Overlays: notify.NewList(overlays...),
		Map:      &MapView{viewpoint: Viewpoint{Scale: 1}},
	}
}

// NewSceneView creates a 3D geo view.
func NewSceneView(overlays ...*GraphicsOverlay) *GeoView {
	return &GeoView{
		Kind:     KindScene,
		Overlays: notify.NewList(overlays...),
		Scene: &SceneView{
			camera:     Camera{Location: geom.NewPointFlat(geom.XYZ, []float64{0, 0, 10000})},
			controller: CameraController{Kind: GlobeCameraController},
		},
	}
}

// Overlay returns the first overlay with the given id.
func (v *GeoView) Overlay(id string) (*GraphicsOverlay, bool) {
	for _, o := range v.Overlays.Items() {
		if o != nil && o.ID == id {
			return o, true
		}
	}
	return nil, false
}

// Viewpoint is a center and a scale.
type Viewpoint struct {
	Center *geom.Point
	Scale  float64
}

// ViewpointChange describes a viewpoint update and its animation duration.
type ViewpointChange struct {
	Viewpoint Viewpoint
	Duration  time.Duration
}

// AutoPanMode is how a map view follows the device location.
type AutoPanMode int

const (
	AutoPanOff AutoPanMode = iota
	AutoPanNavigation
)

func (m AutoPanMode) String() string {
	switch m {
	case AutoPanOff:
		return "off"
	case AutoPanNavigation:
		return "navigation"
	default:
		return fmt.Sprintf("AutoPanMode(%d)", int(m))
	}
}

// MapView holds the state specific to a 2D view.
type MapView struct {
	ViewpointChanged notify.Signal[ViewpointChange]
	AutoPanChanged   notify.Signal[AutoPanMode]

	mutex     sync.RWMutex
	viewpoint Viewpoint
	autoPan   AutoPanMode
}

func (m *MapView) Viewpoint() Viewpoint {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.viewpoint
}

// SetViewpoint moves the view to vp, animated over d.
func (m *MapView) SetViewpoint(vp Viewpoint, d time.Duration) {
	m.mutex.Lock()
	m.viewpoint = vp
	m.mutex.Unlock()

	m.ViewpointChanged.Emit(ViewpointChange{Viewpoint: vp, Duration: d})
}

func (m *MapView) AutoPanMode() AutoPanMode {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.autoPan
}

func (m *MapView) SetAutoPanMode(mode AutoPanMode) {
	m.mutex.Lock()
	changed := m.autoPan != mode
	m.autoPan = mode
	m.mutex.Unlock()

	if changed {
		m.AutoPanChanged.Emit(mode)
	}
}

// Camera is a 3D observer position and orientation. The location uses the
// XYZ layout.
type Camera struct {
	Location *geom.Point
	Heading  float64
	Pitch    float64
	Roll     float64
}

// ZoomToward returns a camera moved toward target so that its distance to
// the target is divided by factor. The orientation is kept. A factor lower
// or equal to zero returns the camera unchanged.
func (c Camera) ZoomToward(target *geom.Point, factor float64) Camera {
	if c.Location == nil || target == nil || factor <= 0 {
		return c
	}

	var tz float64
	if target.Layout().ZIndex() != -1 {
		tz = target.Z()
	}

	x := target.X() + (c.Location.X()-target.X())/factor
	y := target.Y() + (c.Location.Y()-target.Y())/factor
	z := tz + (c.Location.Z()-tz)/factor

	zoomed := c
	zoomed.Location = geom.NewPointFlat(geom.XYZ, []float64{x, y, z})
	return zoomed
}

// DistanceTo returns the 3D distance between the camera and a point.
func (c Camera) DistanceTo(p *geom.Point) float64 {
	if c.Location == nil || p == nil {
		return math.Inf(1)
	}

	var z float64
	if p.Layout().ZIndex() != -1 {
		z = p.Z()
	}

	dx := c.Location.X() - p.X()
	dy := c.Location.Y() - p.Y()
	dz := c.Location.Z() - z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// CameraChange describes a camera update and its animation duration.
type CameraChange struct {
	Camera   Camera
	Duration time.Duration
}

// CameraControllerKind identifies how user interaction moves a scene camera.
type CameraControllerKind int

const (
	// GlobeCameraController lets the user navigate freely around the globe.
	GlobeCameraController CameraControllerKind = iota

	// OrbitCameraController keeps the camera orbiting a graphic at a fixed
	// distance.
	OrbitCameraController
)

func (k CameraControllerKind) String() string {
	switch k {
	case GlobeCameraController:
		return "globe"
	case OrbitCameraController:
		return "orbit"
	default:
		return fmt.Sprintf("CameraControllerKind(%d)", int(k))
	}
}

// CameraController describes the active camera controller of a scene view.
// Target and Distance are only set for orbit controllers.
type CameraController struct {
	Kind     CameraControllerKind
	Target   *Graphic
	Distance float64
}

// SceneView holds the state specific to a 3D view.
type SceneView struct {
	CameraChanged           notify.Signal[CameraChange]
	CameraControllerChanged notify.Signal[CameraController]

	mutex      sync.RWMutex
	camera     Camera
	controller CameraController
}

func (s *SceneView) Camera() Camera {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.camera
}

// SetCamera moves the view to c, animated over d.
func (s *SceneView) SetCamera(c Camera, d time.Duration) {
	s.mutex.Lock()
	s.camera = c
	s.mutex.Unlock()

	s.CameraChanged.Emit(CameraChange{Camera: c, Duration: d})
}

func (s *SceneView) CameraController() CameraController {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.controller
}

func (s *SceneView) SetCameraController(c CameraController) {
	s.mutex.Lock()
	s.controller = c
	s.mutex.Unlock()

	s.CameraControllerChanged.Emit(c)
}
