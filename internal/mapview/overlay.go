// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package mapview

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrUnsupportedOverlay is returned when no renderer exists for an overlay type.
var ErrUnsupportedOverlay = errors.New("unsupported overlay")

// Overlay is a shape drawn on top of the map.
type Overlay interface {
	OverlayID() string
	Bound() orb.Bound
}

// RoutePolyline is the overlay of a calculated route.
type RoutePolyline struct {
	ID   string
	Name string
	Line orb.LineString
}

func (p *RoutePolyline) OverlayID() string {
	return p.ID
}

func (p *RoutePolyline) Bound() orb.Bound {
	return p.Line.Bound()
}

// Renderer turns an overlay into a styled GeoJSON feature.
type Renderer interface {
	Render(overlay Overlay) (*geojson.Feature, error)
}

// PolylineRenderer draws RoutePolyline overlays as stroked lines. The style properties follow
// the simplestyle-spec so common GeoJSON viewers pick them up.
type PolylineRenderer struct {
	StrokeColor string
	LineWidth   float64
}

func (r *PolylineRenderer) Render(overlay Overlay) (*geojson.Feature, error) {
	polyline, ok := overlay.(*RoutePolyline)
	if !ok {
		return nil, fmt.Errorf("%w: polyline renderer cannot draw %T", ErrUnsupportedOverlay, overlay)
	}
	feature := geojson.NewFeature(polyline.Line)
	feature.ID = polyline.ID
	feature.Properties["kind"] = "route"
	feature.Properties["name"] = polyline.Name
	feature.Properties["stroke"] = r.StrokeColor
	feature.Properties["stroke-width"] = r.LineWidth
	return feature, nil
}
