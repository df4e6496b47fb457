package geoview

import (
	"sync"

	"github.com/aukilabs/dsa/notify"
)

// Document is a map or a scene loaded from a package.
type Document struct {
	Name   string
	Title  string
	Kind   Kind
	Layers *notify.List[*Layer]
}

func NewDocument(name, title string, kind Kind, layers ...*Layer) *Document {
	return &Document{
		Name:   name,
		Title:  title,
		Kind:   kind,
		Layers: notify.NewList(layers...),
	}
}

// ResourceProvider gives tools access to the active geo view, the loaded
// document and the analyses displayed in the view.
//
// It is created once by the host and shared by every tool.
type ResourceProvider struct {
	GeoViewChanged  notify.Event
	DocumentChanged notify.Event

	mutex        sync.RWMutex
	geoView      *GeoView
	document     *Document
	viewsheds    *notify.List[*Viewshed]
	linesOfSight *notify.List[*Analysis]
}

func NewResourceProvider() *ResourceProvider {
	return &ResourceProvider{
		viewsheds:    notify.NewList[*Viewshed](),
		linesOfSight: notify.NewList[*Analysis](),
	}
}

// GeoView returns the active geo view. It returns nil when no view is set.
func (p *ResourceProvider) GeoView() *GeoView {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	return p.geoView
}

func (p *ResourceProvider) SetGeoView(v *GeoView) {
	p.mutex.Lock()
	if p.geoView == v {
		p.mutex.Unlock()
		return
	}
	p.geoView = v
	p.mutex.Unlock()

	notify.Fire(&p.GeoViewChanged)
}

// Document returns the loaded document. It returns nil when nothing is
// loaded.
func (p *ResourceProvider) Document() *Document {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	return p.document
}

func (p *ResourceProvider) SetDocument(d *Document) {
	p.mutex.Lock()
	if p.document == d {
		p.mutex.Unlock()
		return
	}
	p.document = d
	p.mutex.Unlock()

	notify.Fire(&p.DocumentChanged)
}

// OperationalLayers returns the layers of the loaded document, or nil.
func (p *ResourceProvider) OperationalLayers() *notify.List[*Layer] {
	if d := p.Document(); d != nil {
		return d.Layers
	}
	return nil
}

func (p *ResourceProvider) Viewsheds() *notify.List[*Viewshed] {
	return p.viewsheds
}

func (p *ResourceProvider) LinesOfSight() *notify.List[*Analysis] {
	return p.linesOfSight
}
