// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocodeearth

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
	"golang.org/x/text/language"

	"github.com/wneessen/userlocation/internal/geo"
	"github.com/wneessen/userlocation/internal/geocode"
	"github.com/wneessen/userlocation/internal/http"
)

const (
	APIEndpoint = "https://api.geocode.earth/v1/reverse"
	APITimeout  = time.Second * 10
	name        = "geocode-earth"
)

type GeocodeEarth struct {
	apikey   string
	http     *http.Client
	lang     language.Tag
	endpoint string
}

func New(client *http.Client, lang language.Tag, apikey string) *GeocodeEarth {
	return &GeocodeEarth{
		apikey:   apikey,
		lang:     lang,
		http:     client,
		endpoint: APIEndpoint,
	}
}

func (g *GeocodeEarth) Name() string {
	return name
}

// Reverse queries the Pelias based geocode.earth API. The response is a GeoJSON feature
// collection, one feature per result.
func (g *GeocodeEarth) Reverse(ctx context.Context, coords geo.Coordinate) ([]geocode.Placemark, error) {
	response := geojson.NewFeatureCollection()

	query := url.Values{}
	query.Set("api_key", g.apikey)
	query.Set("point.lat", strconv.FormatFloat(coords.Lat, 'f', 6, 64))
	query.Set("point.lon", strconv.FormatFloat(coords.Lon, 'f', 6, 64))
	query.Set("lang", g.lang.String())

	code, err := g.http.GetWithTimeout(ctx, g.endpoint, response, query, nil, APITimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve address details from geocode.earth API: %w", err)
	}
	if code != 200 {
		return nil, fmt.Errorf("received non-positive response code from geocode.earth API: %d", code)
	}

	placemarks := make([]geocode.Placemark, 0, len(response.Features))
	for _, feature := range response.Features {
		props := feature.Properties
		placemarks = append(placemarks, geocode.Placemark{
			Name:               props.MustString("label", props.MustString("name", "")),
			SubThoroughfare:    props.MustString("housenumber", ""),
			Thoroughfare:       props.MustString("street", ""),
			SubLocality:        props.MustString("neighbourhood", ""),
			Locality:           props.MustString("locality", ""),
			AdministrativeArea: props.MustString("region", ""),
			PostalCode:         props.MustString("postalcode", ""),
			Country:            props.MustString("country", ""),
			ISOCountryCode:     strings.ToUpper(props.MustString("country_code", "")),
			Coordinate:         geo.FromPoint(feature.Point()),
		})
	}

	return placemarks, nil
}
