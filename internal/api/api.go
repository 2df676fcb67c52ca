// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package api serves the local control API of the map controller. Panning the map and
// requesting directions arrive here.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/paulmach/orb/geojson"

	"github.com/wneessen/userlocation/internal/controller"
	"github.com/wneessen/userlocation/internal/geo"
	"github.com/wneessen/userlocation/internal/logger"
	"github.com/wneessen/userlocation/internal/permission"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
	maxBodyBytes      = 1 << 16
)

// Controller is the part of the map controller exposed over HTTP.
type Controller interface {
	Snapshot(ctx context.Context) (controller.Snapshot, error)
	RequestDirections(ctx context.Context) (string, error)
	AuthorizationChanged()
}

// MapView is the map surface exposed over HTTP.
type MapView interface {
	Region() geo.Region
	SetRegion(region geo.Region)
	Address() string
	ShowsUserLocation() bool
	UserLocation() (geo.Coordinate, bool)
	GeoJSON() (*geojson.FeatureCollection, error)
}

// Authorizer changes the authorization state. Only the static permission provider supports it.
type Authorizer interface {
	SetState(state permission.State)
	SetServicesEnabled(enabled bool)
}

// Observer records served requests.
type Observer interface {
	ObserveRequest(method, path, status string, seconds float64)
}

// Options holds the optional collaborators of the server.
type Options struct {
	Authorizer Authorizer
	Observer   Observer
	Metrics    http.Handler
}

type Server struct {
	controller Controller
	view       MapView
	options    Options
	logger     *logger.Logger
	router     *mux.Router
	http       *http.Server
}

func New(addr string, ctrl Controller, view MapView, opts Options, log *logger.Logger) *Server {
	s := &Server{
		controller: ctrl,
		view:       view,
		options:    opts,
		logger:     log,
		router:     mux.NewRouter(),
	}
	s.routes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

func (s *Server) routes() {
	s.router.Use(s.requestLogger)

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	v1.HandleFunc("/map", s.handleMap).Methods(http.MethodGet)
	v1.HandleFunc("/region", s.handleRegion).Methods(http.MethodPut)
	v1.HandleFunc("/directions", s.handleDirections).Methods(http.MethodPost)
	v1.HandleFunc("/authorization", s.handleAuthorization).Methods(http.MethodPost)

	if s.options.Metrics != nil {
		s.router.Handle("/metrics", s.options.Metrics).Methods(http.MethodGet)
	}
}

// ServeHTTP makes the server usable as a plain handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves the API until ctx is cancelled and then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.http.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("control API listening", slog.String("addr", listener.Addr().String()))
		errCh <- s.http.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("control API failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down control API: %w", err)
	}
	return nil
}
