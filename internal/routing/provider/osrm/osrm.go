// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package osrm

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/wneessen/userlocation/internal/geo"
	"github.com/wneessen/userlocation/internal/http"
	"github.com/wneessen/userlocation/internal/routing"
)

const (
	DefaultEndpoint = "https://router.project-osrm.org"
	APITimeout      = time.Second * 15
	name            = "osrm"

	codeOK      = "Ok"
	codeNoRoute = "NoRoute"
)

type OSRM struct {
	http     *http.Client
	endpoint string
}

type Response struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Routes  []Route `json:"routes"`
}

type Route struct {
	Distance float64           `json:"distance"`
	Duration float64           `json:"duration"`
	Geometry *geojson.Geometry `json:"geometry"`
	Legs     []Leg             `json:"legs"`
}

type Leg struct {
	Summary string `json:"summary"`
}

func New(client *http.Client, endpoint string) *OSRM {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &OSRM{
		http:     client,
		endpoint: strings.TrimRight(endpoint, "/"),
	}
}

func (o *OSRM) Name() string {
	return name
}

// Calculate requests routes from the OSRM route service with full GeoJSON geometries.
func (o *OSRM) Calculate(ctx context.Context, req routing.Request) ([]routing.Route, error) {
	profile, err := profileFor(req.Mode)
	if err != nil {
		return nil, err
	}
	if !req.Source.Valid() || !req.Destination.Valid() {
		return nil, fmt.Errorf("invalid route endpoints: %s -> %s", req.Source, req.Destination)
	}

	endpoint := fmt.Sprintf("%s/route/v1/%s/%s;%s", o.endpoint, profile,
		lonLat(req.Source), lonLat(req.Destination))
	query := url.Values{}
	query.Set("alternatives", strconv.FormatBool(req.AlternatesAllowed))
	query.Set("geometries", "geojson")
	query.Set("overview", "full")
	query.Set("steps", "false")

	var response Response
	code, err := o.http.GetWithTimeout(ctx, endpoint, &response, query, nil, APITimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve routes from OSRM API: %w", err)
	}
	switch response.Code {
	case codeOK:
	case codeNoRoute:
		return nil, nil
	default:
		return nil, fmt.Errorf("OSRM API responded with status %d (%s): %s", code, response.Code,
			response.Message)
	}

	routes := make([]routing.Route, 0, len(response.Routes))
	for i, r := range response.Routes {
		if r.Geometry == nil {
			return nil, fmt.Errorf("route %d has no geometry", i)
		}
		line, ok := r.Geometry.Coordinates.(orb.LineString)
		if !ok {
			return nil, fmt.Errorf("route %d has unexpected geometry type %s", i, r.Geometry.Type)
		}
		routes = append(routes, routing.Route{
			Name:               routeName(r.Legs),
			Polyline:           line,
			Distance:           r.Distance,
			ExpectedTravelTime: time.Duration(math.Round(r.Duration)) * time.Second,
		})
	}

	return routes, nil
}

func profileFor(mode routing.Mode) (string, error) {
	switch mode {
	case routing.Automobile:
		return "driving", nil
	case routing.Walking:
		return "foot", nil
	default:
		return "", fmt.Errorf("%w: %s", routing.ErrUnsupportedMode, mode)
	}
}

func lonLat(c geo.Coordinate) string {
	return strconv.FormatFloat(c.Lon, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lat, 'f', 6, 64)
}

func routeName(legs []Leg) string {
	names := make([]string, 0, len(legs))
	for _, leg := range legs {
		if leg.Summary != "" {
			names = append(names, leg.Summary)
		}
	}
	return strings.Join(names, "; ")
}
