package alertlist

import (
	"github.com/aukilabs/dsa/geoview"
	"github.com/twpayne/go-geom"
)

// HighlightOverlayID is the id of the overlay that displays the highlighted
// alert position.
const HighlightOverlayID = "HIGHLIGHTOVERLAY"

// Highlighter marks a single point of the active geo view.
type Highlighter struct {
	resources *geoview.ResourceProvider
	overlay   *geoview.GraphicsOverlay
	graphic   *geoview.Graphic
	active    bool
}

func NewHighlighter(resources *geoview.ResourceProvider) *Highlighter {
	g := geoview.NewGraphic(nil, nil)
	return &Highlighter{
		resources: resources,
		overlay:   geoview.NewGraphicsOverlay(HighlightOverlayID, g),
		graphic:   g,
	}
}

// PointChanged moves the highlight to the center of g.
func (h *Highlighter) PointChanged(g geom.T) {
	if p := geoview.CenterPoint(g); p != nil {
		h.graphic.SetGeometry(p)
	}
}

// Start shows the highlight in the active geo view.
func (h *Highlighter) Start() {
	view := h.resources.GeoView()
	if view == nil {
		return
	}

	if _, ok := view.Overlay(HighlightOverlayID); !ok {
		view.Overlays.Append(h.overlay)
	}

	h.active = true
	h.graphic.SetHighlighted(true)
}

// Stop hides the highlight.
func (h *Highlighter) Stop() {
	if !h.active {
		return
	}

	h.active = false
	h.graphic.SetHighlighted(false)

	if view := h.resources.GeoView(); view != nil {
		view.Overlays.RemoveFunc(func(o *geoview.GraphicsOverlay) bool {
			return o == h.overlay
		})
	}
}

// Active reports whether the highlight is shown.
func (h *Highlighter) Active() bool {
	return h.active
}

// Point returns the highlighted point.
func (h *Highlighter) Point() geom.T {
	return h.graphic.Geometry()
}
