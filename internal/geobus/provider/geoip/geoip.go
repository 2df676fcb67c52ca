// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geoip

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/userlocation/internal/geo"
	"github.com/wneessen/userlocation/internal/geobus"
	"github.com/wneessen/userlocation/internal/http"
)

const (
	APIEndpoint   = "https://reallyfreegeoip.org/json/"
	LookupTimeout = time.Second * 5
	name          = "geoip"
)

// GeolocationGeoIPProvider estimates the position from the public IP address.
type GeolocationGeoIPProvider struct {
	name     string
	endpoint string
	http     *http.Client
	period   time.Duration
	ttl      time.Duration
}

type APIResult struct {
	IP          string  `json:"ip"`
	CountryCode string  `json:"country_code"`
	Country     string  `json:"country_name"`
	RegionCode  string  `json:"region_code,omitempty"`
	Region      string  `json:"region_name,omitempty"`
	City        string  `json:"city,omitempty"`
	ZipCode     string  `json:"zip_code,omitempty"`
	TimeZone    string  `json:"time_zone"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	MetroCode   int     `json:"metro_code"`
}

func NewGeolocationGeoIPProvider(http *http.Client) *GeolocationGeoIPProvider {
	return &GeolocationGeoIPProvider{
		name:     name,
		endpoint: APIEndpoint,
		http:     http,
		period:   30 * time.Minute,
		ttl:      60 * time.Minute,
	}
}

func (p *GeolocationGeoIPProvider) Name() string {
	return p.name
}

// LookupStream queries the GeoIP API once per period and emits changed positions until ctx ends.
func (p *GeolocationGeoIPProvider) LookupStream(ctx context.Context, key string) <-chan geobus.Result {
	out := make(chan geobus.Result)
	go func() {
		defer close(out)
		state := geobus.GeolocationState{}

		for {
			if coord, acc, err := p.locate(ctx); err == nil {
				r := p.createResult(key, coord, acc)
				if state.HasChanged(r) {
					state.Update(r)
					select {
					case <-ctx.Done():
						return
					case out <- r:
					}
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(p.period):
			}
		}
	}()
	return out
}

// createResult composes and returns a Result using provided geolocation data and metadata.
func (p *GeolocationGeoIPProvider) createResult(key string, coord geo.Coordinate, acc float64) geobus.Result {
	return geobus.Result{
		Key:            key,
		Coordinate:     coord,
		AccuracyMeters: acc,
		Source:         p.name,
		At:             time.Now(),
		TTL:            p.ttl,
	}
}

// locate looks up the position of the public IP. The accuracy is derived from the most
// detailed field the API returned.
func (p *GeolocationGeoIPProvider) locate(ctx context.Context) (geo.Coordinate, float64, error) {
	result := new(APIResult)
	code, err := p.http.GetWithTimeout(ctx, p.endpoint, result, nil, nil, LookupTimeout)
	if err != nil {
		return geo.Coordinate{}, 0, fmt.Errorf("failed to get geolocation data from API: %w", err)
	}
	if code != 200 {
		return geo.Coordinate{}, 0, fmt.Errorf("geolocation API returned unexpected status: %d", code)
	}

	var acc float64
	switch {
	case result.ZipCode != "":
		acc = geobus.AccuracyZip
	case result.City != "":
		acc = geobus.AccuracyCity
	case result.RegionCode != "":
		acc = geobus.AccuracyRegion
	case result.CountryCode != "":
		acc = geobus.AccuracyCountry
	default:
		acc = geobus.AccuracyUnknown
	}

	coord := geo.NewCoordinate(geo.Truncate(result.Latitude, geobus.TruncPrecision),
		geo.Truncate(result.Longitude, geobus.TruncPrecision))
	return coord, acc, nil
}
