// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geoip

import (
	"context"
	"log/slog"
	"testing"
	"testing/synctest"

	"github.com/wneessen/userlocation/internal/geobus"
	"github.com/wneessen/userlocation/internal/http"
	"github.com/wneessen/userlocation/internal/logger"
	"github.com/wneessen/userlocation/internal/testhelper"
)

func newTestProvider(status int, body string) *GeolocationGeoIPProvider {
	client := http.New(logger.New(slog.LevelInfo))
	client.Transport = testhelper.MockRoundTripper{Fn: testhelper.JSONResponse(status, body)}
	return NewGeolocationGeoIPProvider(client)
}

func TestGeolocationGeoIPProvider_locate(t *testing.T) {
	tests := []struct {
		name string
		body string
		acc  float64
	}{
		{"zip code", `{"country_code":"US","region_code":"NY","city":"New York","zip_code":"10013","latitude":40.71851,"longitude":-74.00251}`, geobus.AccuracyZip},
		{"city", `{"country_code":"US","region_code":"NY","city":"New York","latitude":40.71851,"longitude":-74.00251}`, geobus.AccuracyCity},
		{"region", `{"country_code":"US","region_code":"NY","latitude":40.71851,"longitude":-74.00251}`, geobus.AccuracyRegion},
		{"country", `{"country_code":"US","latitude":40.71851,"longitude":-74.00251}`, geobus.AccuracyCountry},
		{"unknown", `{"latitude":40.71851,"longitude":-74.00251}`, geobus.AccuracyUnknown},
	}
	for _, tt := range tests {
		t.Run("locate succeeds with accuracy of "+tt.name, func(t *testing.T) {
			coord, acc, err := newTestProvider(200, tt.body).locate(t.Context())
			if err != nil {
				t.Fatalf("failed to locate: %s", err)
			}
			if coord.Lat != 40.71851 || coord.Lon != -74.00251 {
				t.Errorf("unexpected coordinate %s", coord)
			}
			if acc != tt.acc {
				t.Errorf("expected accuracy %f, got %f", tt.acc, acc)
			}
		})
	}
	t.Run("locate fails with broken JSON", func(t *testing.T) {
		if _, _, err := newTestProvider(200, "NOT_JSON").locate(t.Context()); err == nil {
			t.Error("expected locate to fail")
		}
	})
	t.Run("locate fails on API error", func(t *testing.T) {
		if _, _, err := newTestProvider(429, `{}`).locate(t.Context()); err == nil {
			t.Error("expected locate to fail")
		}
	})
}

func TestGeolocationGeoIPProvider_LookupStream(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		provider := newTestProvider(200, `{"country_code":"US","latitude":40.7185,"longitude":-74.0025}`)
		out := provider.LookupStream(ctx, "test")
		result := <-out
		cancel()
		synctest.Wait()

		if result.Source != name {
			t.Errorf("expected source %s, got %s", name, result.Source)
		}
		if result.Key != "test" {
			t.Errorf("expected key test, got %s", result.Key)
		}
		if result.AccuracyMeters != geobus.AccuracyCountry {
			t.Errorf("expected country accuracy, got %f", result.AccuracyMeters)
		}
	})
}
