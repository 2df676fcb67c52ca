// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package osrm

import (
	"errors"
	"io"
	"log/slog"
	stdhttp "net/http"
	"strings"
	"testing"
	"time"

	"github.com/wneessen/userlocation/internal/geo"
	"github.com/wneessen/userlocation/internal/http"
	"github.com/wneessen/userlocation/internal/logger"
	"github.com/wneessen/userlocation/internal/routing"
	"github.com/wneessen/userlocation/internal/testhelper"
)

const (
	twoRoutesJSON = `{"code":"Ok","routes":[` +
		`{"distance":1523.4,"duration":301.6,"legs":[{"summary":"Infinite Loop, De Anza Boulevard"}],` +
		`"geometry":{"type":"LineString","coordinates":[[-122.0302,37.3318],[-122.0310,37.3250],[-122.0322,37.3230]]}},` +
		`{"distance":1810.0,"duration":355.2,"legs":[{"summary":"Mariani Avenue"}],` +
		`"geometry":{"type":"LineString","coordinates":[[-122.0302,37.3318],[-122.0280,37.3260],[-122.0322,37.3230]]}}]}`
	noRouteJSON      = `{"code":"NoRoute","message":"Impossible route between points"}`
	invalidQueryJSON = `{"code":"InvalidQuery","message":"Query string malformed close to position 28"}`
	pointJSON        = `{"code":"Ok","routes":[{"distance":0,"duration":0,"legs":[],` +
		`"geometry":{"type":"Point","coordinates":[-122.0302,37.3318]}}]}`
)

var testRequest = routing.Request{
	Source:            geo.Coordinate{Lat: 37.3318, Lon: -122.0302},
	Destination:       geo.Coordinate{Lat: 37.323, Lon: -122.0322},
	Mode:              routing.Automobile,
	AlternatesAllowed: true,
}

func TestNew(t *testing.T) {
	t.Run("empty endpoint uses the public demo server", func(t *testing.T) {
		router := New(http.New(logger.NewLogger(slog.LevelDebug, io.Discard)), "")
		if router.endpoint != DefaultEndpoint {
			t.Errorf("expected endpoint %q, got %q", DefaultEndpoint, router.endpoint)
		}
		if router.Name() != name {
			t.Errorf("expected name %q, got %q", name, router.Name())
		}
	})
	t.Run("trailing slashes are removed", func(t *testing.T) {
		router := New(http.New(logger.NewLogger(slog.LevelDebug, io.Discard)), "http://localhost:5000/")
		if router.endpoint != "http://localhost:5000" {
			t.Errorf("unexpected endpoint %q", router.endpoint)
		}
	})
}

func TestOSRM_Calculate(t *testing.T) {
	t.Run("routes are returned with geometry", func(t *testing.T) {
		var reqURL string
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			reqURL = req.URL.String()
			return testhelper.JSONResponse(200, twoRoutesJSON)(req)
		}
		router := testRouterWithRoundtripFunc(t, rtFn)
		routes, err := router.Calculate(t.Context(), testRequest)
		if err != nil {
			t.Fatal(err)
		}
		if len(routes) != 2 {
			t.Fatalf("expected 2 routes, got %d", len(routes))
		}
		if len(routes[0].Polyline) != 3 {
			t.Errorf("expected 3 polyline points, got %d", len(routes[0].Polyline))
		}
		if routes[0].Polyline[0].Lat() != 37.3318 {
			t.Errorf("expected polyline to start at the source, got %v", routes[0].Polyline[0])
		}
		if routes[0].Distance != 1523.4 {
			t.Errorf("expected distance 1523.4, got %f", routes[0].Distance)
		}
		if routes[0].ExpectedTravelTime != 302*time.Second {
			t.Errorf("expected travel time 5m2s, got %s", routes[0].ExpectedTravelTime)
		}
		if routes[1].Name != "Mariani Avenue" {
			t.Errorf("expected route name %q, got %q", "Mariani Avenue", routes[1].Name)
		}
		wantPath := "/route/v1/driving/-122.030200,37.331800;-122.032200,37.323000"
		if !strings.Contains(reqURL, wantPath) {
			t.Errorf("expected URL to contain %q, got %q", wantPath, reqURL)
		}
		for _, want := range []string{"alternatives=true", "geometries=geojson", "overview=full"} {
			if !strings.Contains(reqURL, want) {
				t.Errorf("expected URL to contain %q, got %q", want, reqURL)
			}
		}
	})
	t.Run("walking uses the foot profile", func(t *testing.T) {
		var path string
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			path = req.URL.Path
			return testhelper.JSONResponse(200, twoRoutesJSON)(req)
		}
		router := testRouterWithRoundtripFunc(t, rtFn)
		req := testRequest
		req.Mode = routing.Walking
		if _, err := router.Calculate(t.Context(), req); err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(path, "/route/v1/foot/") {
			t.Errorf("expected foot profile, got %q", path)
		}
	})
	t.Run("unknown modes are rejected", func(t *testing.T) {
		router := testRouterWithRoundtripFunc(t, testhelper.JSONResponse(200, twoRoutesJSON))
		req := testRequest
		req.Mode = routing.Mode(42)
		_, err := router.Calculate(t.Context(), req)
		if !errors.Is(err, routing.ErrUnsupportedMode) {
			t.Errorf("expected error to be %s, got %v", routing.ErrUnsupportedMode, err)
		}
	})
	t.Run("invalid coordinates are rejected", func(t *testing.T) {
		router := testRouterWithRoundtripFunc(t, testhelper.JSONResponse(200, twoRoutesJSON))
		req := testRequest
		req.Source = geo.Coordinate{Lat: 95, Lon: 0}
		if _, err := router.Calculate(t.Context(), req); err == nil {
			t.Fatal("expected calculation to fail")
		}
	})
	t.Run("no route returns an empty list", func(t *testing.T) {
		router := testRouterWithRoundtripFunc(t, testhelper.JSONResponse(400, noRouteJSON))
		routes, err := router.Calculate(t.Context(), testRequest)
		if err != nil {
			t.Fatal(err)
		}
		if len(routes) != 0 {
			t.Errorf("expected no routes, got %d", len(routes))
		}
	})
	t.Run("API errors fail the calculation", func(t *testing.T) {
		router := testRouterWithRoundtripFunc(t, testhelper.JSONResponse(400, invalidQueryJSON))
		_, err := router.Calculate(t.Context(), testRequest)
		if err == nil {
			t.Fatal("expected calculation to fail")
		}
		if !strings.Contains(err.Error(), "InvalidQuery") {
			t.Errorf("expected error to contain the OSRM code, got %s", err)
		}
	})
	t.Run("non-line geometries fail the calculation", func(t *testing.T) {
		router := testRouterWithRoundtripFunc(t, testhelper.JSONResponse(200, pointJSON))
		if _, err := router.Calculate(t.Context(), testRequest); err == nil {
			t.Fatal("expected calculation to fail")
		}
	})
	t.Run("transport errors fail the calculation", func(t *testing.T) {
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return nil, errors.New("intentionally failing")
		}
		router := testRouterWithRoundtripFunc(t, rtFn)
		if _, err := router.Calculate(t.Context(), testRequest); err == nil {
			t.Fatal("expected calculation to fail")
		}
	})
}

func TestOSRM_Calculate_integration(t *testing.T) {
	testhelper.PerformIntegrationTests(t)
	router := New(http.New(logger.New(slog.LevelDebug)), "")
	routes, err := router.Calculate(t.Context(), testRequest)
	if err != nil {
		t.Fatal(err)
	}
	if len(routes) == 0 {
		t.Fatal("expected at least one route")
	}
}

func testRouterWithRoundtripFunc(_ *testing.T, fn func(req *stdhttp.Request) (*stdhttp.Response, error)) *OSRM {
	testHttpClient := http.New(logger.NewLogger(slog.LevelDebug, io.Discard))
	testHttpClient.Transport = testhelper.MockRoundTripper{Fn: fn}
	return New(testHttpClient, "https://osrm.example.com")
}
