// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package controller implements the map controller. It reacts to authorization changes,
// resolves the address of the map center and requests driving directions to it.
//
// All controller state is owned by a single event loop. Service callbacks and asynchronous
// completions are posted onto the loop before they touch that state.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/orb"

	"github.com/wneessen/userlocation/internal/geo"
	"github.com/wneessen/userlocation/internal/geocode"
	"github.com/wneessen/userlocation/internal/logger"
	"github.com/wneessen/userlocation/internal/mapview"
	"github.com/wneessen/userlocation/internal/notice"
	"github.com/wneessen/userlocation/internal/permission"
	"github.com/wneessen/userlocation/internal/routing"
)

const (
	DefaultRegionMeters    = 1000
	DefaultGeocodeDistance = 50
	DefaultStrokeColor     = "#0000ff"
	DefaultLineWidth       = 5
)

// Executor runs functions on the owning event loop. Post returns false once the loop stopped,
// Done is closed at that point.
type Executor interface {
	Post(fn func()) bool
	Done() <-chan struct{}
}

// LocationProvider reports the user's position while updating.
type LocationProvider interface {
	StartUpdating(ctx context.Context)
	StopUpdating()
	Location() (geo.Coordinate, bool)
}

// MapSurface is the map the controller draws on.
type MapSurface interface {
	SetRegion(region geo.Region)
	SetVisibleRect(bound orb.Bound)
	Center() geo.Coordinate
	SetShowsUserLocation(show bool)
	SetUserLocation(coords geo.Coordinate)
	AddOverlay(overlay mapview.Overlay)
	RemoveOverlays()
	SetAddress(address string)
}

// Config holds the tunables of the controller.
type Config struct {
	// Span of the region centered on the user location, in meters
	RegionMeters float64
	// Center movement in meters that triggers a new reverse geocode
	GeocodeDistance float64
	StrokeColor     string
	LineWidth       float64
}

// Services are the collaborators of the controller. Metrics and Events are optional.
type Services struct {
	Permission permission.Service
	Location   LocationProvider
	Router     routing.Router
	Geocoder   geocode.Geocoder
	Notifier   notice.Notifier
	Metrics    Metrics
	Events     Events
}

// Snapshot is a copy of the controller state.
type Snapshot struct {
	Authorization   permission.State   `json:"authorization"`
	ServicesEnabled bool               `json:"services_enabled"`
	Tracking        bool               `json:"tracking"`
	PreviousCenter  *geo.Coordinate    `json:"previous_center,omitempty"`
	RouteRequests   []string           `json:"route_requests"`
	Routes          []routing.Route    `json:"routes"`
	Placemark       *geocode.Placemark `json:"placemark,omitempty"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

type Controller struct {
	loop       Executor
	surface    MapSurface
	permission permission.Service
	location   LocationProvider
	router     routing.Router
	geocoder   geocode.Geocoder
	notifier   notice.Notifier
	metrics    Metrics
	events     Events
	logger     *logger.Logger
	config     Config
	wake       chan struct{}
	ctx        context.Context

	// owned by the event loop
	authKnown       bool
	authState       permission.State
	servicesEnabled bool
	tracking        bool
	centerPending   bool
	previousCenter  *geo.Coordinate
	routeRequests   []*routeRequest
	routes          []routing.Route
	geocodeCancel   context.CancelFunc
	geocodeGen      uint64
	placemark       *geocode.Placemark
	updatedAt       time.Time
}

// New returns a controller drawing on surface. It does nothing until Start is called.
func New(loop Executor, surface MapSurface, services Services, conf Config, log *logger.Logger) *Controller {
	if conf.RegionMeters <= 0 {
		conf.RegionMeters = DefaultRegionMeters
	}
	if conf.GeocodeDistance <= 0 {
		conf.GeocodeDistance = DefaultGeocodeDistance
	}
	if conf.StrokeColor == "" {
		conf.StrokeColor = DefaultStrokeColor
	}
	if conf.LineWidth <= 0 {
		conf.LineWidth = DefaultLineWidth
	}
	ctrl := &Controller{
		loop:       loop,
		surface:    surface,
		permission: services.Permission,
		location:   services.Location,
		router:     services.Router,
		geocoder:   services.Geocoder,
		notifier:   services.Notifier,
		metrics:    services.Metrics,
		events:     services.Events,
		logger:     log,
		config:     conf,
		wake:       make(chan struct{}, 1),
		ctx:        context.Background(),
	}
	if ctrl.metrics == nil {
		ctrl.metrics = noopMetrics{}
	}
	if ctrl.events == nil {
		ctrl.events = noopEvents{}
	}
	return ctrl
}

// Start subscribes to authorization changes and evaluates the current authorization. Requests
// issued by the controller are bound to ctx.
func (c *Controller) Start(ctx context.Context) {
	c.ctx = ctx
	c.permission.OnChange(c.AuthorizationChanged)
	go c.watchAuthorization(ctx)
	c.AuthorizationChanged()
}

// Snapshot returns a copy of the controller state, read on the event loop.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	result := make(chan Snapshot, 1)
	if !c.loop.Post(func() { result <- c.snapshot() }) {
		return Snapshot{}, ErrLoopStopped
	}
	select {
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case snap := <-result:
		return snap, nil
	case <-c.loop.Done():
		select {
		case snap := <-result:
			return snap, nil
		default:
			return Snapshot{}, ErrLoopStopped
		}
	}
}

func (c *Controller) snapshot() Snapshot {
	snap := Snapshot{
		Authorization:   c.authState,
		ServicesEnabled: c.servicesEnabled,
		Tracking:        c.tracking,
		RouteRequests:   make([]string, 0, len(c.routeRequests)),
		Routes:          append([]routing.Route(nil), c.routes...),
		UpdatedAt:       c.updatedAt,
	}
	if c.previousCenter != nil {
		center := *c.previousCenter
		snap.PreviousCenter = &center
	}
	if c.placemark != nil {
		placemark := *c.placemark
		snap.Placemark = &placemark
	}
	for _, req := range c.routeRequests {
		snap.RouteRequests = append(snap.RouteRequests, req.id)
	}
	return snap
}

// LocationUpdated moves the user location marker. The first position after tracking began
// centers the map on the user.
func (c *Controller) LocationUpdated(coord geo.Coordinate) {
	c.loop.Post(func() {
		if !c.tracking {
			return
		}
		c.surface.SetUserLocation(coord)
		if c.centerPending {
			c.centerPending = false
			c.centerOnUser(coord)
		}
	})
}

// RegionDidChange is called by the map whenever its center moved.
func (c *Controller) RegionDidChange(center geo.Coordinate) {
	c.loop.Post(func() {
		c.regionChanged(center)
	})
}

// RendererFor returns the renderer for route polylines. Other overlays are not supported.
func (c *Controller) RendererFor(overlay mapview.Overlay) (mapview.Renderer, error) {
	if _, ok := overlay.(*mapview.RoutePolyline); !ok {
		return nil, fmt.Errorf("%w: %T", mapview.ErrUnsupportedOverlay, overlay)
	}
	return &mapview.PolylineRenderer{StrokeColor: c.config.StrokeColor, LineWidth: c.config.LineWidth}, nil
}

// report shows the notice for err. Notices are shown off the loop since notifiers may block.
func (c *Controller) report(err *Error) {
	c.metrics.ObserveNotice(err.Kind)
	log := c.logger.With(slog.String("kind", err.Kind.String()))
	if err.Err != nil {
		log.Warn("map controller request failed", logger.Err(err.Err))
	}

	n := err.Kind.Notice()
	ctx := c.ctx
	go func() {
		if showErr := c.notifier.Show(ctx, n); showErr != nil {
			log.Error("failed to show notice", slog.String("notifier", c.notifier.Name()), logger.Err(showErr))
		}
	}()
}

func (c *Controller) touch() {
	c.updatedAt = time.Now()
}
