// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"context"

	"github.com/wneessen/userlocation/internal/geo"
)

// Placemark is a single reverse geocoding result.
type Placemark struct {
	Name               string         `json:"name"`
	SubThoroughfare    string         `json:"sub_thoroughfare"`
	Thoroughfare       string         `json:"thoroughfare"`
	SubLocality        string         `json:"sub_locality"`
	Locality           string         `json:"locality"`
	AdministrativeArea string         `json:"administrative_area"`
	PostalCode         string         `json:"postal_code"`
	Country            string         `json:"country"`
	ISOCountryCode     string         `json:"iso_country_code"`
	Coordinate         geo.Coordinate `json:"coordinate"`

	CacheHit bool `json:"-"`
}

// Geocoder resolves a coordinate into a list of placemarks, ordered by relevance. An empty
// list with a nil error means the coordinate has no address.
type Geocoder interface {
	Name() string
	Reverse(ctx context.Context, coords geo.Coordinate) ([]Placemark, error)
}
