// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package controller

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wneessen/userlocation/internal/geo"
	"github.com/wneessen/userlocation/internal/geocode"
)

// FormatAddress renders a placemark as "{street number} {street name}". Missing parts are empty,
// so a placemark without street number yields a leading space.
func FormatAddress(placemark geocode.Placemark) string {
	return placemark.SubThoroughfare + " " + placemark.Thoroughfare
}

// regionChanged resolves the address of the new map center once it moved far enough away from
// the previous one. Without a previous center the event only serves as baseline.
func (c *Controller) regionChanged(center geo.Coordinate) {
	if c.previousCenter == nil {
		return
	}
	if center.DistanceTo(*c.previousCenter) <= c.config.GeocodeDistance {
		return
	}
	c.previousCenter = &center

	if c.geocodeCancel != nil {
		c.geocodeCancel()
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.geocodeCancel = cancel
	c.geocodeGen++
	gen := c.geocodeGen

	go func() {
		placemarks, err := c.geocoder.Reverse(ctx, center)
		c.loop.Post(func() {
			c.geocodeCompleted(gen, center, placemarks, err)
		})
	}()
}

// geocodeCompleted updates the address label with the first placemark. Results of cancelled
// lookups are dropped.
func (c *Controller) geocodeCompleted(gen uint64, center geo.Coordinate, placemarks []geocode.Placemark, err error) {
	if gen != c.geocodeGen {
		return
	}
	c.geocodeCancel()
	c.geocodeCancel = nil

	switch {
	case errors.Is(err, context.Canceled):
		c.metrics.ObserveGeocode(ResultCancelled)
		return
	case err != nil:
		c.metrics.ObserveGeocode(ResultError)
		c.report(&Error{Kind: GeocodeFailed, Err: err})
		return
	case len(placemarks) == 0:
		c.metrics.ObserveGeocode(ResultEmpty)
		c.report(&Error{Kind: GeocodeEmpty})
		return
	}

	c.metrics.ObserveGeocode(ResultSuccess)
	placemark := placemarks[0]
	address := FormatAddress(placemark)
	c.placemark = &placemark
	c.touch()
	c.surface.SetAddress(address)
	c.logger.Debug("address resolved", slog.String("center", center.String()), slog.String("address", address),
		slog.String("geocoder", c.geocoder.Name()), slog.Bool("cache_hit", placemark.CacheHit))
	c.events.AddressResolved(c.ctx, center, address, placemark)
}
