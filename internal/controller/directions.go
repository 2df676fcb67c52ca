// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/wneessen/userlocation/internal/mapview"
	"github.com/wneessen/userlocation/internal/routing"
)

// routeRequest is a tracked directions request.
type routeRequest struct {
	id     string
	cancel context.CancelFunc
	done   bool
}

// RequestDirections requests driving directions from the user location to the map center.
// It returns the ID of the issued request once the request was built; the routes are drawn
// asynchronously. Without a user location no request is issued and a LocationUnavailable
// error is returned.
func (c *Controller) RequestDirections(ctx context.Context) (string, error) {
	type issued struct {
		id  string
		err error
	}
	result := make(chan issued, 1)
	if !c.loop.Post(func() {
		id, err := c.requestDirections()
		result <- issued{id, err}
	}) {
		return "", ErrLoopStopped
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-result:
		return res.id, res.err
	case <-c.loop.Done():
		select {
		case res := <-result:
			return res.id, res.err
		default:
			return "", ErrLoopStopped
		}
	}
}

func (c *Controller) requestDirections() (string, error) {
	user, ok := c.location.Location()
	if !ok {
		err := &Error{Kind: LocationUnavailable}
		c.report(err)
		return "", err
	}
	req := routing.Request{
		Source:            user,
		Destination:       c.surface.Center(),
		Mode:              routing.Automobile,
		AlternatesAllowed: true,
	}

	c.surface.RemoveOverlays()
	c.routes = nil
	c.cancelRouteRequests()

	ctx, cancel := context.WithCancel(c.ctx)
	tracked := &routeRequest{id: uuid.NewString(), cancel: cancel}
	c.routeRequests = append(c.routeRequests, tracked)
	c.touch()

	c.logger.Debug("requesting directions", slog.String("request_id", tracked.id),
		slog.String("source", req.Source.String()), slog.String("destination", req.Destination.String()),
		slog.String("router", c.router.Name()))
	go func() {
		routes, err := c.router.Calculate(ctx, req)
		c.loop.Post(func() {
			c.directionsCompleted(tracked, req, routes, err)
		})
	}()

	return tracked.id, nil
}

// cancelRouteRequests cancels all tracked requests and clears the collection.
func (c *Controller) cancelRouteRequests() {
	for _, tracked := range c.routeRequests {
		if !tracked.done {
			c.metrics.ObserveRouteCancelled()
		}
		tracked.cancel()
	}
	c.routeRequests = nil
}

// directionsCompleted draws the routes of the current request. Completions of requests that
// were superseded in the meantime are dropped.
func (c *Controller) directionsCompleted(tracked *routeRequest, req routing.Request, routes []routing.Route, err error) {
	if !slices.Contains(c.routeRequests, tracked) {
		c.logger.Debug("dropping superseded directions", slog.String("request_id", tracked.id))
		return
	}
	tracked.done = true
	tracked.cancel()

	switch {
	case errors.Is(err, context.Canceled):
		c.metrics.ObserveRouting(ResultCancelled)
		return
	case err != nil:
		c.metrics.ObserveRouting(ResultError)
		c.report(&Error{Kind: RoutingFailed, Err: err})
		return
	case len(routes) == 0:
		c.metrics.ObserveRouting(ResultEmpty)
		c.report(&Error{Kind: RoutingEmpty})
		return
	}

	c.metrics.ObserveRouting(ResultSuccess)
	c.routes = routes
	c.touch()
	for i, route := range routes {
		overlay := &mapview.RoutePolyline{
			ID:   fmt.Sprintf("%s-%d", tracked.id, i),
			Name: route.Name,
			Line: route.Polyline,
		}
		c.surface.AddOverlay(overlay)
		c.surface.SetVisibleRect(overlay.Bound())
	}
	c.logger.Info("directions calculated", slog.String("request_id", tracked.id), slog.Int("routes", len(routes)))
	c.events.RoutesCalculated(c.ctx, tracked.id, req, routes)
}
