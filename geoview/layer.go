package geoview

import (
	"github.com/aukilabs/dsa/notify"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Layer is an operational data layer of a document.
type Layer struct {
	Name     string
	Features *notify.List[*Graphic]
}

// NewLayer creates a layer holding the given features.
func NewLayer(name string, features ...*Graphic) *Layer {
	return &Layer{
		Name:     name,
		Features: notify.NewList(features...),
	}
}

// GraphicsOverlay is a named collection of graphics drawn on top of the
// document layers.
type GraphicsOverlay struct {
	ID       string
	Graphics *notify.List[*Graphic]
}

// NewGraphicsOverlay creates an overlay holding the given graphics.
func NewGraphicsOverlay(id string, graphics ...*Graphic) *GraphicsOverlay {
	return &GraphicsOverlay{
		ID:       id,
		Graphics: notify.NewList(graphics...),
	}
}

type featureCollection struct {
	Type     string             `json:"type"`
	Features []*geojson.Feature `json:"features"`
}

// DecodeLayer reads a layer from a GeoJSON feature collection. Feature
// properties become graphic attributes and the feature id is stored as the
// "id" attribute.
func DecodeLayer(name string, data []byte) (*Layer, error) {
	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, errors.New("decoding geojson layer failed").
			WithTag("layer", name).
			Wrap(err)
	}

	if fc.Type != "FeatureCollection" {
		return nil, errors.New("geojson layer is not a feature collection").
			WithTag("layer", name).
			WithTag("type", fc.Type)
	}

	layer := NewLayer(name)
	for _, f := range fc.Features {
		if f == nil {
			continue
		}

		attributes := make(map[string]any, len(f.Properties)+1)
		for k, v := range f.Properties {
			attributes[k] = v
		}
		if f.ID != "" {
			attributes["id"] = f.ID
		}

		layer.Features.Append(NewGraphic(f.Geometry, attributes))
	}
	return layer, nil
}
