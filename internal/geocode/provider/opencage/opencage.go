// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package opencage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/wneessen/userlocation/internal/geo"
	"github.com/wneessen/userlocation/internal/geocode"
	"github.com/wneessen/userlocation/internal/http"
)

const (
	APIEndpoint = "https://api.opencagedata.com/geocode/v1/json"
	APITimeout  = time.Second * 10
	name        = "opencage"
)

type OpenCage struct {
	apikey   string
	http     *http.Client
	lang     language.Tag
	endpoint string
}

type Response struct {
	Results      []Result `json:"results"`
	Status       Status   `json:"status"`
	TotalResults int      `json:"total_results"`
}

type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type Result struct {
	Components  Components `json:"components"`
	DisplayName string     `json:"formatted"`
	Geometry    Geometry   `json:"geometry"`
}

type Components struct {
	Type           string `json:"_type"`
	NormalizedCity string `json:"_normalized_city"`
	City           string `json:"city"`
	Country        string `json:"country"`
	CountryCode    string `json:"country_code"`
	HouseNumber    string `json:"house_number"`
	Postcode       string `json:"postcode"`
	Road           string `json:"road"`
	State          string `json:"state"`
	Suburb         string `json:"suburb"`
	Town           string `json:"town"`
	Village        string `json:"village"`
}

type Geometry struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lng"`
}

func New(client *http.Client, lang language.Tag, apikey string) *OpenCage {
	return &OpenCage{
		apikey:   apikey,
		lang:     lang,
		http:     client,
		endpoint: APIEndpoint,
	}
}

func (o *OpenCage) Name() string {
	return name
}

func (o *OpenCage) Reverse(ctx context.Context, coords geo.Coordinate) ([]geocode.Placemark, error) {
	var response Response

	query := url.Values{}
	query.Set("key", o.apikey)
	query.Set("q", fmt.Sprintf("%f,%f", coords.Lat, coords.Lon))
	query.Set("no_annotations", "1")
	query.Set("no_record", "1")
	query.Set("language", o.lang.String())

	code, err := o.http.GetWithTimeout(ctx, o.endpoint, &response, query, nil, APITimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve address details from OpenCage API: %w", err)
	}
	if code != 200 {
		return nil, fmt.Errorf("OpenCage API responded with status %d: %s", code, response.Status.Message)
	}

	placemarks := make([]geocode.Placemark, 0, len(response.Results))
	for _, result := range response.Results {
		comp := result.Components
		placemark := geocode.Placemark{
			Name:               result.DisplayName,
			SubThoroughfare:    comp.HouseNumber,
			Thoroughfare:       comp.Road,
			SubLocality:        comp.Suburb,
			Locality:           comp.NormalizedCity,
			AdministrativeArea: comp.State,
			PostalCode:         comp.Postcode,
			Country:            comp.Country,
			ISOCountryCode:     strings.ToUpper(comp.CountryCode),
			Coordinate:         geo.Coordinate{Lat: result.Geometry.Lat, Lon: result.Geometry.Lon},
		}
		switch {
		case placemark.Locality != "":
		case comp.City != "":
			placemark.Locality = comp.City
		case comp.Town != "":
			placemark.Locality = comp.Town
		case comp.Village != "":
			placemark.Locality = comp.Village
		}
		placemarks = append(placemarks, placemark)
	}

	return placemarks, nil
}
