// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package controller

import (
	"context"
	"log/slog"
	"time"

	"github.com/wneessen/userlocation/internal/geo"
	"github.com/wneessen/userlocation/internal/logger"
	"github.com/wneessen/userlocation/internal/permission"
)

const permissionTimeout = 10 * time.Second

// AuthorizationChanged schedules a re-evaluation of the location authorization. It is safe to
// call from any goroutine; notifications arriving while an evaluation is pending are coalesced.
func (c *Controller) AuthorizationChanged() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// watchAuthorization queries the permission service for every change notification and posts
// the result onto the loop. Queries run one at a time, so results arrive in order.
func (c *Controller) watchAuthorization(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.wake:
		}

		enabled, state := c.queryAuthorization(ctx)
		if !c.loop.Post(func() { c.evaluateAuthorization(enabled, state) }) {
			return
		}
	}
}

func (c *Controller) queryAuthorization(ctx context.Context) (bool, permission.State) {
	ctxQuery, cancel := context.WithTimeout(ctx, permissionTimeout)
	defer cancel()

	log := c.logger.With(slog.String("permission", c.permission.Name()))
	enabled, err := c.permission.ServicesEnabled(ctxQuery)
	if err != nil {
		log.Error("failed to check if location services are enabled", logger.Err(err))
		return true, permission.Unknown
	}
	if !enabled {
		return false, permission.Unknown
	}
	state, err := c.permission.Status(ctxQuery)
	if err != nil {
		log.Error("failed to query location authorization", logger.Err(err))
		return true, permission.Unknown
	}
	return true, state
}

// evaluateAuthorization runs on the loop and decides what the current authorization means
// for the map.
func (c *Controller) evaluateAuthorization(enabled bool, state permission.State) {
	changed := !c.authKnown || c.servicesEnabled != enabled || c.authState != state
	c.authKnown, c.servicesEnabled, c.authState = true, enabled, state
	if changed {
		c.logger.Info("location authorization changed", slog.Bool("services_enabled", enabled),
			slog.String("state", state.String()))
		c.metrics.ObserveAuthorization(state)
		c.touch()
	}

	if !enabled {
		c.stopTracking()
		c.report(&Error{Kind: ServicesDisabled})
		return
	}

	switch state {
	case permission.AuthorizedWhenInUse, permission.AuthorizedAlways:
		c.beginTracking()
	case permission.NotDetermined:
		c.stopTracking()
		c.requestPermission()
	case permission.Denied:
		c.stopTracking()
		if changed {
			c.report(&Error{Kind: PermissionDenied})
		}
	case permission.Restricted:
		c.stopTracking()
		c.report(&Error{Kind: PermissionRestricted})
	default:
		c.stopTracking()
		c.report(&Error{Kind: PermissionUnknown})
	}
}

// requestPermission asks the permission service for when-in-use access. The outcome arrives as
// a change notification.
func (c *Controller) requestPermission() {
	ctx := c.ctx
	go func() {
		ctxReq, cancel := context.WithTimeout(ctx, permissionTimeout)
		defer cancel()
		if err := c.permission.RequestWhenInUse(ctxReq); err != nil {
			c.logger.Error("failed to request location permission", slog.String("permission", c.permission.Name()),
				logger.Err(err))
		}
	}()
}

// beginTracking shows the user location, centers the map on it and starts location updates.
// It has no effect while already tracking.
func (c *Controller) beginTracking() {
	if c.tracking {
		return
	}
	c.tracking = true
	c.touch()
	c.logger.Info("starting to track user location")

	c.surface.SetShowsUserLocation(true)
	c.location.StartUpdating(c.ctx)
	if coord, ok := c.location.Location(); ok {
		c.centerOnUser(coord)
	} else {
		c.centerPending = true
	}
	center := c.surface.Center()
	c.previousCenter = &center
}

// stopTracking stops location updates and hides the user location.
func (c *Controller) stopTracking() {
	if !c.tracking {
		return
	}
	c.tracking, c.centerPending = false, false
	c.touch()
	c.logger.Info("stopping to track user location")

	c.location.StopUpdating()
	c.surface.SetShowsUserLocation(false)
}

// centerOnUser moves the map to the user and makes the new center the address baseline.
func (c *Controller) centerOnUser(coord geo.Coordinate) {
	c.surface.SetUserLocation(coord)
	c.surface.SetRegion(geo.NewRegion(coord, c.config.RegionMeters, c.config.RegionMeters))
	center := c.surface.Center()
	c.previousCenter = &center
}
