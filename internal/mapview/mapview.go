// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package mapview implements a headless map surface. It keeps the visible region, the user
// location and the overlays in memory and renders them as GeoJSON.
package mapview

import (
	"fmt"
	"slices"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/wneessen/userlocation/internal/geo"
)

// Delegate receives map callbacks. RegionDidChange is called on the goroutine that changed the
// region, after the map released its lock.
type Delegate interface {
	RegionDidChange(center geo.Coordinate)
	RendererFor(overlay Overlay) (Renderer, error)
}

type Headless struct {
	mu                sync.RWMutex
	delegate          Delegate
	region            geo.Region
	showsUserLocation bool
	userLocation      *geo.Coordinate
	overlays          []Overlay
	address           string
	addressHooks      []func(string)
}

// New returns a map showing the given region.
func New(region geo.Region) *Headless {
	return &Headless{region: region}
}

func (h *Headless) SetDelegate(delegate Delegate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.delegate = delegate
}

// SetRegion moves the map and notifies the delegate if the center changed.
func (h *Headless) SetRegion(region geo.Region) {
	h.mu.Lock()
	moved := h.region.Center != region.Center
	h.region = region
	delegate := h.delegate
	h.mu.Unlock()

	if moved && delegate != nil {
		delegate.RegionDidChange(region.Center)
	}
}

// SetVisibleRect fits the map region to the given bound.
func (h *Headless) SetVisibleRect(bound orb.Bound) {
	h.SetRegion(geo.RegionForBound(bound))
}

func (h *Headless) Region() geo.Region {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.region
}

func (h *Headless) Center() geo.Coordinate {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.region.Center
}

func (h *Headless) SetShowsUserLocation(show bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.showsUserLocation = show
}

func (h *Headless) ShowsUserLocation() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.showsUserLocation
}

func (h *Headless) SetUserLocation(coords geo.Coordinate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.userLocation = &coords
}

func (h *Headless) UserLocation() (geo.Coordinate, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.userLocation == nil {
		return geo.Coordinate{}, false
	}
	return *h.userLocation, true
}

func (h *Headless) AddOverlay(overlay Overlay) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.overlays = append(h.overlays, overlay)
}

// RemoveOverlays removes all overlays from the map.
func (h *Headless) RemoveOverlays() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.overlays = nil
}

func (h *Headless) Overlays() []Overlay {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.overlays)
}

// SetAddress updates the address label and runs the registered hooks if it changed.
func (h *Headless) SetAddress(address string) {
	h.mu.Lock()
	changed := h.address != address
	h.address = address
	hooks := slices.Clone(h.addressHooks)
	h.mu.Unlock()

	if !changed {
		return
	}
	for _, hook := range hooks {
		hook(address)
	}
}

func (h *Headless) Address() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.address
}

// OnAddressChange registers fn to be called with every new address label.
func (h *Headless) OnAddressChange(fn func(string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.addressHooks = append(h.addressHooks, fn)
}

// GeoJSON renders the map contents: the center, the user location if shown and every overlay
// through the renderer the delegate provides for it.
func (h *Headless) GeoJSON() (*geojson.FeatureCollection, error) {
	h.mu.RLock()
	region := h.region
	delegate := h.delegate
	overlays := slices.Clone(h.overlays)
	var user *geo.Coordinate
	if h.showsUserLocation && h.userLocation != nil {
		loc := *h.userLocation
		user = &loc
	}
	h.mu.RUnlock()

	fc := geojson.NewFeatureCollection()
	fc.BBox = geojson.NewBBox(region.Bound())

	center := geojson.NewFeature(region.Center.Point())
	center.Properties["kind"] = "center"
	fc.Append(center)

	if user != nil {
		feature := geojson.NewFeature(user.Point())
		feature.Properties["kind"] = "user"
		fc.Append(feature)
	}

	for _, overlay := range overlays {
		if delegate == nil {
			return nil, fmt.Errorf("no delegate to render overlay %s", overlay.OverlayID())
		}
		renderer, err := delegate.RendererFor(overlay)
		if err != nil {
			return nil, fmt.Errorf("failed to get renderer for overlay %s: %w", overlay.OverlayID(), err)
		}
		feature, err := renderer.Render(overlay)
		if err != nil {
			return nil, fmt.Errorf("failed to render overlay %s: %w", overlay.OverlayID(), err)
		}
		fc.Append(feature)
	}

	return fc, nil
}
