// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package service wires the map controller to its collaborators and runs it.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/vorlif/spreak"

	"github.com/wneessen/userlocation/internal/api"
	"github.com/wneessen/userlocation/internal/config"
	"github.com/wneessen/userlocation/internal/controller"
	"github.com/wneessen/userlocation/internal/eventloop"
	"github.com/wneessen/userlocation/internal/geo"
	"github.com/wneessen/userlocation/internal/geobus"
	"github.com/wneessen/userlocation/internal/logger"
	"github.com/wneessen/userlocation/internal/mapview"
	"github.com/wneessen/userlocation/internal/metrics"
	"github.com/wneessen/userlocation/internal/permission"
	"github.com/wneessen/userlocation/internal/presenter"
)

const (
	DesktopID       = "userlocation"
	snapshotTimeout = 5 * time.Second
)

// ErrNotRunning is returned by operations that need a running controller.
var ErrNotRunning = errors.New("map controller is not running")

type Service struct {
	config    *config.Config
	geobus    *geobus.GeoBus
	logger    *logger.Logger
	loop      *eventloop.Loop
	metrics   *metrics.Metrics
	presenter *presenter.Presenter
	scheduler gocron.Scheduler
	t         *spreak.Localizer
	view      *mapview.Headless
	SignalSrc signalSource

	outputLock sync.Mutex
	output     io.Writer

	ctrlLock   sync.RWMutex
	controller *controller.Controller
	authorizer api.Authorizer
	closers    []func()
}

func New(conf *config.Config, log *logger.Logger, t *spreak.Localizer) (*Service, error) {
	if log == nil {
		return nil, errors.New("logger is required")
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	pres, err := presenter.New(conf, t, t.Language())
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	service := &Service{
		config:    conf,
		geobus:    geobus.New(log),
		logger:    log,
		loop:      eventloop.New(),
		metrics:   metrics.New(),
		presenter: pres,
		scheduler: scheduler,
		t:         t,
		view:      mapview.New(geo.NewRegion(geo.Coordinate{}, conf.Map.RegionMeters, conf.Map.RegionMeters)),
		SignalSrc: stdLibSignalSource{},
		output:    os.Stdout,
	}
	return service, nil
}

// Run builds the collaborators, starts the map controller and blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	services, err := s.buildServices(ctx)
	if err != nil {
		return s.abort(err)
	}
	providers, err := s.selectGeobusProviders()
	if err != nil {
		return s.abort(fmt.Errorf("failed to create geobus orchestrator: %w", err))
	}
	locator := geobus.NewLocator(s.geobus, providers, DesktopID)
	services.Location = locator

	ctrl := controller.New(s.loop, s.view, services, controller.Config{
		RegionMeters:    s.config.Map.RegionMeters,
		GeocodeDistance: s.config.Map.GeocodeDistance,
		StrokeColor:     s.config.Map.StrokeColor,
	}, s.logger)
	s.ctrlLock.Lock()
	s.controller = ctrl
	s.ctrlLock.Unlock()

	s.view.SetDelegate(ctrl)
	locator.OnUpdate(ctrl.LocationUpdated)
	// The hooks run on the event loop, the output reads back from it.
	s.view.OnAddressChange(func(string) { go s.printOutput(ctx) })

	// Start scheduled jobs
	if err = s.createScheduledJob(ctx, s.config.Intervals.Output, s.printOutput, "address_output_job"); err != nil {
		return s.abort(err)
	}
	s.scheduler.Start()

	go s.loop.Run(ctx)
	ctrl.Start(ctx)
	go s.monitorSleepResume(ctx)
	s.startSignalHandler(ctx)

	errCh := make(chan error, 1)
	if !s.config.API.Disable {
		server := api.New(s.config.API.Listen, ctrl, s.view, api.Options{
			Authorizer: s.authorizer,
			Observer:   s.metrics,
			Metrics:    s.metrics.Handler(),
		}, s.logger)
		go func() {
			errCh <- server.ListenAndServe(ctx)
		}()
	}

	// Wait for the context to cancel or the API to fail
	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}
	locator.StopUpdating()
	s.close()
	if err = s.scheduler.Shutdown(); err != nil {
		return errors.Join(runErr, fmt.Errorf("failed to shut down scheduler: %w", err))
	}
	return runErr
}

// abort releases everything Run set up before it failed with err.
func (s *Service) abort(err error) error {
	s.close()
	if shutdownErr := s.scheduler.Shutdown(); shutdownErr != nil {
		return errors.Join(err, fmt.Errorf("failed to shut down scheduler: %w", shutdownErr))
	}
	return err
}

// RequestDirections asks the running controller for directions to the map center.
func (s *Service) RequestDirections(ctx context.Context) (string, error) {
	s.ctrlLock.RLock()
	ctrl := s.controller
	s.ctrlLock.RUnlock()
	if ctrl == nil {
		return "", ErrNotRunning
	}
	return ctrl.RequestDirections(ctx)
}

func (s *Service) createScheduledJob(ctx context.Context, interval time.Duration, task func(context.Context),
	jobName string,
) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(jobName),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", jobName, err)
	}
	return nil
}

// printOutput renders the address label and writes it as a JSON line to the output.
func (s *Service) printOutput(ctx context.Context) {
	s.ctrlLock.RLock()
	ctrl := s.controller
	s.ctrlLock.RUnlock()
	if ctrl == nil {
		return
	}

	snapCtx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()
	snap, err := ctrl.Snapshot(snapCtx)
	if err != nil {
		s.logger.Debug("failed to read controller state", logger.Err(err))
		return
	}

	output, err := s.presenter.Render(s.presenter.BuildContext(s.view.Address(), s.view.Center(), snap))
	if err != nil {
		s.logger.Error("failed to render address template", logger.Err(err))
		return
	}

	s.outputLock.Lock()
	defer s.outputLock.Unlock()
	if err = json.NewEncoder(s.output).Encode(output); err != nil {
		s.logger.Error("failed to encode address output", logger.Err(err))
	}
}

// logState logs the current address and map center.
func (s *Service) logState() {
	center := s.view.Center()
	s.logger.Info("currently resolved address", slog.String("address", s.view.Address()),
		slog.Float64("latitude", center.Lat), slog.Float64("longitude", center.Lon))
}

func (s *Service) addCloser(fn func()) {
	s.closers = append(s.closers, fn)
}

func (s *Service) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// staticAuthorizer returns the static provider when it drives the authorization.
func staticAuthorizer(svc permission.Service) api.Authorizer {
	if static, ok := svc.(*permission.Static); ok {
		return static
	}
	return nil
}
