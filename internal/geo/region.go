// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geo

import (
	"math"

	"github.com/paulmach/orb"
)

const metersPerDegreeLat = 111320.0

// Region is a rectangular map area described by a center and its span in meters.
type Region struct {
	Center             Coordinate `json:"center"`
	LatitudinalMeters  float64    `json:"latitudinal_meters"`
	LongitudinalMeters float64    `json:"longitudinal_meters"`
}

// NewRegion returns a Region centered on center spanning the given meters in both directions.
func NewRegion(center Coordinate, latMeters, lonMeters float64) Region {
	return Region{Center: center, LatitudinalMeters: latMeters, LongitudinalMeters: lonMeters}
}

// Bound returns the bounding box covered by the region.
func (r Region) Bound() orb.Bound {
	dLat := r.LatitudinalMeters / 2 / metersPerDegreeLat
	dLon := 0.0
	if cos := math.Cos(r.Center.Lat * math.Pi / 180); cos > 1e-9 {
		dLon = r.LongitudinalMeters / 2 / (metersPerDegreeLat * cos)
	}
	return orb.Bound{
		Min: orb.Point{r.Center.Lon - dLon, r.Center.Lat - dLat},
		Max: orb.Point{r.Center.Lon + dLon, r.Center.Lat + dLat},
	}
}

// RegionForBound returns the region that exactly covers the bounding box b.
func RegionForBound(b orb.Bound) Region {
	center := FromPoint(b.Center())
	latMeters := (b.Max.Lat() - b.Min.Lat()) * metersPerDegreeLat
	lonMeters := (b.Max.Lon() - b.Min.Lon()) * metersPerDegreeLat * math.Cos(center.Lat*math.Pi/180)
	return NewRegion(center, latMeters, lonMeters)
}
