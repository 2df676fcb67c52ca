// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wneessen/userlocation/internal/controller"
	"github.com/wneessen/userlocation/internal/events"
	"github.com/wneessen/userlocation/internal/geobus"
	"github.com/wneessen/userlocation/internal/geobus/provider/geoip"
	"github.com/wneessen/userlocation/internal/geobus/provider/geolocation_file"
	"github.com/wneessen/userlocation/internal/geobus/provider/gpsd"
	"github.com/wneessen/userlocation/internal/geobus/provider/ichnaea"
	"github.com/wneessen/userlocation/internal/geocode"
	geocodeearth "github.com/wneessen/userlocation/internal/geocode/provider/geocode-earth"
	"github.com/wneessen/userlocation/internal/geocode/provider/opencage"
	nominatim "github.com/wneessen/userlocation/internal/geocode/provider/osm-nominatim"
	"github.com/wneessen/userlocation/internal/http"
	"github.com/wneessen/userlocation/internal/logger"
	"github.com/wneessen/userlocation/internal/notice"
	"github.com/wneessen/userlocation/internal/permission"
	"github.com/wneessen/userlocation/internal/routing"
	"github.com/wneessen/userlocation/internal/routing/provider/osrm"
)

// buildServices creates the collaborators of the map controller, except for the location
// provider. Resources are released by close.
func (s *Service) buildServices(ctx context.Context) (controller.Services, error) {
	services := controller.Services{Metrics: s.metrics}

	geocoder, err := s.selectGeocodeProvider()
	if err != nil {
		return services, fmt.Errorf("failed to create geocode provider: %w", err)
	}
	services.Geocoder = geocoder

	router, err := s.selectRouter()
	if err != nil {
		return services, fmt.Errorf("failed to create routing provider: %w", err)
	}
	services.Router = router

	perm, err := s.selectPermissionService(ctx)
	if err != nil {
		return services, fmt.Errorf("failed to create permission service: %w", err)
	}
	services.Permission = perm
	s.authorizer = staticAuthorizer(perm)

	notifier, err := s.selectNotifier()
	if err != nil {
		return services, fmt.Errorf("failed to create notifier: %w", err)
	}
	services.Notifier = notifier

	if s.config.Events.NATSURL != "" {
		pub, err := events.New(s.config.Events.NATSURL, s.config.Events.Subject, s.logger)
		if err != nil {
			return services, fmt.Errorf("failed to create event publisher: %w", err)
		}
		s.addCloser(pub.Close)
		services.Events = pub
	}

	return services, nil
}

func (s *Service) selectGeobusProviders() ([]geobus.Provider, error) {
	httpClient := http.New(s.logger)
	var provider []geobus.Provider

	if !s.config.GeoLocation.DisableGeolocationFile {
		provider = append(provider, geolocation_file.NewGeolocationFileProvider(s.config.GeoLocation.File))
	}

	if !s.config.GeoLocation.DisableGPSD {
		provider = append(provider, gpsd.NewGeolocationGPSDProvider(s.config.GeoLocation.GPSDAddress))
	}

	if !s.config.GeoLocation.DisableGeoIP {
		provider = append(provider, geoip.NewGeolocationGeoIPProvider(httpClient))
	}

	if !s.config.GeoLocation.DisableICHNAEA {
		mls, err := ichnaea.NewGeolocationICHNAEAProvider(httpClient)
		if err != nil {
			s.logger.Error("failed to create ICHNAEA provider", logger.Err(err))
		} else {
			provider = append(provider, mls)
		}
	}
	if len(provider) == 0 {
		return nil, errors.New("no geolocation providers enabled")
	}

	return provider, nil
}

func (s *Service) selectGeocodeProvider() (geocode.Geocoder, error) {
	var coder geocode.Geocoder
	lang := s.t.Language()

	switch strings.ToLower(s.config.GeoCoder.Provider) {
	case "nominatim":
		coder = nominatim.New(http.New(s.logger), lang)
	case "opencage":
		if s.config.GeoCoder.APIKey == "" {
			return nil, errors.New("opencage geocoder requires an API key")
		}
		coder = opencage.New(http.New(s.logger), lang, s.config.GeoCoder.APIKey)
	case "geocode-earth":
		if s.config.GeoCoder.APIKey == "" {
			return nil, errors.New("geocode-earth geocoder requires an API key")
		}
		coder = geocodeearth.New(http.New(s.logger), lang, s.config.GeoCoder.APIKey)
	default:
		return nil, fmt.Errorf("unsupported geocoder type: %s", s.config.GeoCoder.Provider)
	}

	store, err := s.selectGeocodeStore()
	if err != nil {
		return nil, err
	}
	return geocode.NewCachedGeocoder(coder, store, s.logger, s.config.GeoCoder.CacheHitTTL,
		s.config.GeoCoder.CacheMissTTL), nil
}

func (s *Service) selectGeocodeStore() (geocode.Store, error) {
	switch strings.ToLower(s.config.GeoCoder.Cache) {
	case "memory":
		return geocode.NewMemoryStore(), nil
	case "valkey":
		store, err := geocode.NewValkeyStore(s.config.GeoCoder.ValkeyAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect geocode cache: %w", err)
		}
		s.addCloser(store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported geocoder cache: %s", s.config.GeoCoder.Cache)
	}
}

func (s *Service) selectRouter() (routing.Router, error) {
	switch strings.ToLower(s.config.Routing.Provider) {
	case "osrm":
		return osrm.New(http.New(s.logger), s.config.Routing.Endpoint), nil
	default:
		return nil, fmt.Errorf("unsupported routing provider: %s", s.config.Routing.Provider)
	}
}

func (s *Service) selectPermissionService(ctx context.Context) (permission.Service, error) {
	switch strings.ToLower(s.config.Permission.Provider) {
	case "static":
		initial, err := permission.ParseState(s.config.Permission.State)
		if err != nil {
			return nil, err
		}
		grant, err := permission.ParseState(s.config.Permission.Grant)
		if err != nil {
			return nil, err
		}
		return permission.NewStatic(initial, grant, !s.config.Permission.ServicesDisabled), nil
	case "geoclue":
		clue, err := permission.NewGeoClue(s.config.Permission.DesktopID, s.logger)
		if err != nil {
			return nil, err
		}
		s.addCloser(func() {
			if err := clue.Close(); err != nil {
				s.logger.Error("failed to close GeoClue2 connection", logger.Err(err))
			}
		})
		go clue.Watch(ctx, s.config.Permission.PollInterval)
		return clue, nil
	default:
		return nil, fmt.Errorf("unsupported permission provider: %s", s.config.Permission.Provider)
	}
}

func (s *Service) selectNotifier() (notice.Notifier, error) {
	switch strings.ToLower(s.config.Notifier.Provider) {
	case "log":
		return notice.NewLogNotifier(s.logger, s.t), nil
	case "desktop":
		desktop, err := notice.NewDesktopNotifier(DesktopID, s.t, s.config.Notifier.Timeout)
		if err != nil {
			return nil, err
		}
		s.addCloser(func() {
			if err := desktop.Close(); err != nil {
				s.logger.Error("failed to close notification connection", logger.Err(err))
			}
		})
		return desktop, nil
	default:
		return nil, fmt.Errorf("unsupported notifier provider: %s", s.config.Notifier.Provider)
	}
}
