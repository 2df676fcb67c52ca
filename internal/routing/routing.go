// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package routing

import (
	"context"
	"errors"
	"time"

	"github.com/paulmach/orb"

	"github.com/wneessen/userlocation/internal/geo"
)

// Mode is the means of transport a route is calculated for.
type Mode int

const (
	Automobile Mode = iota
	Walking
)

// ErrUnsupportedMode is returned by routers that cannot calculate routes for the requested mode.
var ErrUnsupportedMode = errors.New("unsupported transport mode")

func (m Mode) String() string {
	switch m {
	case Automobile:
		return "automobile"
	case Walking:
		return "walking"
	default:
		return "unknown"
	}
}

// Request describes a directions query from Source to Destination.
type Request struct {
	Source            geo.Coordinate
	Destination       geo.Coordinate
	Mode              Mode
	AlternatesAllowed bool
}

// Route is a single calculated route. Polyline follows the road network from source to
// destination.
type Route struct {
	Name               string         `json:"name"`
	Polyline           orb.LineString `json:"polyline"`
	Distance           float64        `json:"distance"`
	ExpectedTravelTime time.Duration  `json:"expected_travel_time"`
}

// Router calculates routes. An empty result with a nil error means no route exists.
type Router interface {
	Name() string
	Calculate(ctx context.Context, req Request) ([]Route, error)
}
