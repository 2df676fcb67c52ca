// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	const (
		expectLogLevel        = slog.LevelInfo
		expectRegionMeters    = 1000
		expectGeocodeDistance = 50
		expectStrokeColor     = "#0000ff"
		expectIntervalOutput  = time.Second * 30
	)
	t.Run("new config with all defaults set", func(t *testing.T) {
		conf, err := New()
		if err != nil {
			t.Errorf("failed to load config: %s", err)
		}
		if conf.LogLevel != expectLogLevel {
			t.Errorf("expected log level to be: %s, got %s", expectLogLevel, conf.LogLevel)
		}
		if conf.Map.RegionMeters != expectRegionMeters {
			t.Errorf("expected region meters to be: %d, got %f", expectRegionMeters, conf.Map.RegionMeters)
		}
		if conf.Map.GeocodeDistance != expectGeocodeDistance {
			t.Errorf("expected geocode distance to be: %d, got %f", expectGeocodeDistance,
				conf.Map.GeocodeDistance)
		}
		if conf.Map.StrokeColor != expectStrokeColor {
			t.Errorf("expected stroke color to be: %s, got %s", expectStrokeColor, conf.Map.StrokeColor)
		}
		if conf.Intervals.Output != expectIntervalOutput {
			t.Errorf("expected output interval to be: %s, got %s", expectIntervalOutput, conf.Intervals.Output)
		}
		if conf.Permission.Provider != "static" {
			t.Errorf("expected permission provider to be static, got %s", conf.Permission.Provider)
		}
		if conf.Templates.Address != DefaultAddressTpl {
			t.Errorf("expected default address template, got %q", conf.Templates.Address)
		}
		if conf.Templates.Tooltip != DefaultTooltipTpl {
			t.Errorf("expected default tooltip template, got %q", conf.Templates.Tooltip)
		}
		if conf.GeoLocation.File == "" {
			t.Error("expected geolocation file path to be set")
		}
	})
	t.Run("custom address template from env is kept", func(t *testing.T) {
		t.Setenv("USERLOCATION_TEMPLATES_ADDRESS", "{{with .Placemark}}{{.Thoroughfare}}{{end}}")
		conf, err := New()
		if err != nil {
			t.Fatalf("failed to load config: %s", err)
		}
		if conf.Templates.Address != "{{with .Placemark}}{{.Thoroughfare}}{{end}}" {
			t.Errorf("expected address template from env, got %q", conf.Templates.Address)
		}
	})
	t.Run("new config with invalid values from env", func(t *testing.T) {
		t.Setenv("USERLOCATION_LOGLEVEL", "invalid")
		_, err := New()
		if err == nil {
			t.Error("expected config to fail, but didn't")
		}
	})
	t.Run("config validation fails", func(t *testing.T) {
		tests := []struct {
			name  string
			key   string
			value string
		}{
			{"negative region span", "USERLOCATION_MAP_REGION_METERS", "-5"},
			{"negative geocode distance", "USERLOCATION_MAP_GEOCODE_DISTANCE", "-1"},
			{"invalid stroke color", "USERLOCATION_MAP_STROKE_COLOR", "blue"},
			{"negative address width", "USERLOCATION_MAP_ADDRESS_MAX_WIDTH", "-3"},
			{"unsupported permission provider", "USERLOCATION_PERMISSION_PROVIDER", "corelocation"},
			{"unsupported geocoder cache", "USERLOCATION_GEOCODER_CACHE", "memcached"},
			{"unsupported notifier", "USERLOCATION_NOTIFIER_PROVIDER", "alert"},
			{"negative output interval", "USERLOCATION_INTERVALS_OUTPUT", "-1s"},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				t.Setenv(tc.key, tc.value)
				_, err := New()
				if err == nil {
					t.Error("expected config to fail, but didn't")
				}
			})
		}
	})
}

func TestNewFromFile(t *testing.T) {
	t.Run("reading config from valid file succeeds", func(t *testing.T) {
		conf, err := NewFromFile("../../etc", "config.toml")
		if err != nil {
			t.Fatalf("failed to load config: %s", err)
		}
		if conf.LogLevel != slog.LevelInfo {
			t.Errorf("expected log level to be: %s, got %s", slog.LevelInfo, conf.LogLevel)
		}
		if !conf.GeoLocation.DisableGPSD {
			t.Error("expected gpsd to be disabled")
		}
		if conf.Routing.Endpoint != "https://router.project-osrm.org" {
			t.Errorf("unexpected routing endpoint: %s", conf.Routing.Endpoint)
		}
	})
	t.Run("reading config from non-existent file fails", func(t *testing.T) {
		_, err := NewFromFile("../../etc", "non-existent.toml")
		if err == nil {
			t.Error("expected config to fail, but didn't")
		}
	})
	t.Run("reading invalid config file fails", func(t *testing.T) {
		_, err := NewFromFile("../../testdata", "invalid.toml")
		if err == nil {
			t.Error("expected config to fail, but didn't")
		}
	})
}
