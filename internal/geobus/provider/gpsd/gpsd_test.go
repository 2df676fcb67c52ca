// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package gpsd

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stratoberry/go-gpsd"

	"github.com/wneessen/userlocation/internal/geobus"
)

const (
	testLat = 40.7185
	testLon = -74.0025
)

func TestGeolocationGPSDProvider_Name(t *testing.T) {
	provider := NewGeolocationGPSDProvider("localhost:2947")
	if !strings.EqualFold(provider.Name(), name) {
		t.Errorf("expected provider name to be %s, got %s", name, provider.Name())
	}
}

func TestGeolocationGPSDProvider_createResult(t *testing.T) {
	provider := NewGeolocationGPSDProvider("localhost:2947")
	result := provider.createResult("test", fix{Lat: testLat, Lon: testLon, Acc: 12, Mode: gpsd.Mode3D})
	if result.Coordinate.Lat != testLat || result.Coordinate.Lon != testLon {
		t.Errorf("expected coordinate to be %f,%f, got %s", testLat, testLon, result.Coordinate)
	}
	if result.Key != "test" {
		t.Errorf("expected key to be %s, got %s", "test", result.Key)
	}
	if result.AccuracyMeters != 12 {
		t.Errorf("expected accuracy to be %d, got %f", 12, result.AccuracyMeters)
	}
	if result.Source != provider.Name() {
		t.Errorf("expected source to be %s, got %s", provider.Name(), result.Source)
	}
	if result.TTL != provider.ttl {
		t.Errorf("expected TTL to be %s, got %s", provider.ttl, result.TTL)
	}
}

func TestHorizontalAccuracyMeters(t *testing.T) {
	tests := []struct {
		name     string
		epx, epy float64
		mode     gpsd.Mode
		want     float64
	}{
		{"error estimates", 3, 4, gpsd.Mode3D, 5},
		{"3D fix fallback", 0, 0, gpsd.Mode3D, fallbackAccuracy3DFix},
		{"2D fix fallback", 0, 4, gpsd.Mode2D, fallbackAccuracy2DFix},
		{"no fix", 0, 0, gpsd.NoFix, fallbackAccuracyNoFix},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := horizontalAccuracyMeters(tt.epx, tt.epy, tt.mode); got != tt.want {
				t.Errorf("expected accuracy %f, got %f", tt.want, got)
			}
		})
	}
}

func TestFixFromReport(t *testing.T) {
	got := fixFromReport(&gpsd.TPVReport{Lat: testLat, Lon: testLon, Alt: 12, Epx: 6, Epy: 8, Mode: gpsd.Mode3D})
	if got.Lat != testLat || got.Lon != testLon || got.Alt != 12 {
		t.Errorf("unexpected position %+v", got)
	}
	if got.Acc != 10 {
		t.Errorf("expected accuracy 10, got %f", got.Acc)
	}
}

func TestGeolocationGPSDProvider_LookupStream(t *testing.T) {
	t.Run("fixes without 2D mode are skipped", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			runCount := 0
			provider := NewGeolocationGPSDProvider("localhost:2947")
			provider.period = time.Millisecond * 10
			provider.streamFn = func(ctx context.Context, fixes chan<- fix) error {
				runCount++
				if runCount == 1 {
					return errors.New("intentionally failing")
				}
				fixes <- fix{Lat: 1, Lon: 2, Acc: 3, Mode: gpsd.NoFix}
				fixes <- fix{Lat: 1, Lon: 2, Acc: 3, Mode: gpsd.Mode2D}
				<-ctx.Done()
				return ctx.Err()
			}

			out := provider.LookupStream(ctx, "test")
			var result geobus.Result
			select {
			case result = <-out:
				cancel()
			case <-ctx.Done():
				t.Fatalf("context done before result: %v", ctx.Err())
			}
			synctest.Wait()

			if result.Coordinate.Lat != 1.0 || result.Coordinate.Lon != 2.0 {
				t.Errorf("expected coordinate 1,2, got %s", result.Coordinate)
			}
			if result.AccuracyMeters != 3.0 {
				t.Errorf("expected accuracy to be %f, got %f", 3.0, result.AccuracyMeters)
			}
			if runCount != 2 {
				t.Errorf("expected a reconnect after the failure, got %d runs", runCount)
			}
		})
	})
	t.Run("repeated fixes are emitted once", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			provider := NewGeolocationGPSDProvider("localhost:2947")
			provider.streamFn = func(ctx context.Context, fixes chan<- fix) error {
				for range 3 {
					fixes <- fix{Lat: 1, Lon: 2, Acc: 3, Mode: gpsd.Mode3D}
				}
				fixes <- fix{Lat: 1.01, Lon: 2, Acc: 3, Mode: gpsd.Mode3D}
				<-ctx.Done()
				return ctx.Err()
			}

			out := provider.LookupStream(ctx, "test")
			first, second := <-out, <-out
			cancel()
			synctest.Wait()

			if first.Coordinate.Lat != 1 || second.Coordinate.Lat != 1.01 {
				t.Errorf("expected the moved fix second, got %s and %s", first.Coordinate, second.Coordinate)
			}
		})
	})
}
