// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package controller

import (
	"context"

	"github.com/wneessen/userlocation/internal/geo"
	"github.com/wneessen/userlocation/internal/geocode"
	"github.com/wneessen/userlocation/internal/permission"
	"github.com/wneessen/userlocation/internal/routing"
)

// Request results reported to Metrics.
const (
	ResultSuccess   = "success"
	ResultError     = "error"
	ResultEmpty     = "empty"
	ResultCancelled = "cancelled"
)

// Metrics observes controller activity. All methods are called on the event loop.
type Metrics interface {
	ObserveAuthorization(state permission.State)
	ObserveGeocode(result string)
	ObserveRouting(result string)
	ObserveRouteCancelled()
	ObserveNotice(kind Kind)
}

// Events receives resolved addresses and calculated routes. All methods are called on the
// event loop and must not block.
type Events interface {
	AddressResolved(ctx context.Context, center geo.Coordinate, address string, placemark geocode.Placemark)
	RoutesCalculated(ctx context.Context, requestID string, req routing.Request, routes []routing.Route)
}

type noopMetrics struct{}

func (noopMetrics) ObserveAuthorization(permission.State) {}
func (noopMetrics) ObserveGeocode(string)                 {}
func (noopMetrics) ObserveRouting(string)                 {}
func (noopMetrics) ObserveRouteCancelled()                {}
func (noopMetrics) ObserveNotice(Kind)                    {}

type noopEvents struct{}

func (noopEvents) AddressResolved(context.Context, geo.Coordinate, string, geocode.Placemark) {}
func (noopEvents) RoutesCalculated(context.Context, string, routing.Request, []routing.Route) {}
