// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/wneessen/userlocation/internal/controller"
	"github.com/wneessen/userlocation/internal/geo"
	"github.com/wneessen/userlocation/internal/logger"
	"github.com/wneessen/userlocation/internal/mapview"
	"github.com/wneessen/userlocation/internal/permission"
)

var baker = geo.NewCoordinate(51.523767, -0.158555)

type fakeController struct {
	mu            sync.Mutex
	snapshot      controller.Snapshot
	directionsID  string
	directionsErr error
	snapshotErr   error
	authChanged   int
}

func (f *fakeController) Snapshot(context.Context) (controller.Snapshot, error) {
	return f.snapshot, f.snapshotErr
}

func (f *fakeController) RequestDirections(context.Context) (string, error) {
	return f.directionsID, f.directionsErr
}

func (f *fakeController) AuthorizationChanged() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authChanged++
}

type recordObserver struct {
	mu    sync.Mutex
	paths []string
}

func (r *recordObserver) ObserveRequest(method, path, status string, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, method+" "+path+" "+status)
}

func testServer(t *testing.T, ctrl *fakeController, opts Options) (*Server, *mapview.Headless) {
	t.Helper()
	view := mapview.New(geo.NewRegion(baker, 1000, 1000))
	log := logger.NewLogger(slog.LevelDebug, io.Discard)
	return New("127.0.0.1:0", ctrl, view, opts, log), view
}

func do(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_State(t *testing.T) {
	t.Run("state combines controller and map", func(t *testing.T) {
		ctrl := &fakeController{snapshot: controller.Snapshot{
			Authorization: permission.AuthorizedWhenInUse,
			Tracking:      true,
		}}
		srv, view := testServer(t, ctrl, Options{})
		view.SetAddress(" Baker Street")
		view.SetShowsUserLocation(true)
		view.SetUserLocation(baker)

		rec := do(t, srv, http.MethodGet, "/v1/state", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var resp map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %s", err)
		}
		if resp["authorization"] != "authorized_when_in_use" {
			t.Errorf("expected authorization in response, got %v", resp["authorization"])
		}
		if resp["address"] != " Baker Street" {
			t.Errorf("expected address in response, got %v", resp["address"])
		}
		if resp["tracking"] != true || resp["shows_user_location"] != true {
			t.Errorf("expected tracking state in response, got %v", resp)
		}
		if _, ok := resp["user_location"]; !ok {
			t.Error("expected user location in response")
		}
	})
	t.Run("stopped controller is unavailable", func(t *testing.T) {
		srv, _ := testServer(t, &fakeController{snapshotErr: controller.ErrLoopStopped}, Options{})
		rec := do(t, srv, http.MethodGet, "/v1/state", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", rec.Code)
		}
	})
	t.Run("unexpected errors are internal", func(t *testing.T) {
		srv, _ := testServer(t, &fakeController{snapshotErr: errors.New("boom")}, Options{})
		rec := do(t, srv, http.MethodGet, "/v1/state", "")
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rec.Code)
		}
	})
	t.Run("wrong method is rejected", func(t *testing.T) {
		srv, _ := testServer(t, &fakeController{}, Options{})
		rec := do(t, srv, http.MethodDelete, "/v1/state", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status 405, got %d", rec.Code)
		}
	})
}

func TestServer_Map(t *testing.T) {
	srv, _ := testServer(t, &fakeController{}, Options{})
	rec := do(t, srv, http.MethodGet, "/v1/map", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("expected GeoJSON content type, got %q", ct)
	}
	var fc struct {
		Type     string           `json:"type"`
		Features []map[string]any `json:"features"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &fc); err != nil {
		t.Fatalf("failed to decode GeoJSON: %s", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 1 {
		t.Errorf("expected a collection with the center feature, got %+v", fc)
	}
}

func TestServer_Region(t *testing.T) {
	t.Run("panning moves the center and keeps the span", func(t *testing.T) {
		srv, view := testServer(t, &fakeController{}, Options{})
		rec := do(t, srv, http.MethodPut, "/v1/region", `{"center":{"lat":51.5,"lon":-0.12}}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}
		region := view.Region()
		if region.Center != geo.NewCoordinate(51.5, -0.12) {
			t.Errorf("expected map to move, got %s", region.Center)
		}
		if region.LatitudinalMeters != 1000 || region.LongitudinalMeters != 1000 {
			t.Errorf("expected span to be kept, got %+v", region)
		}
	})
	t.Run("span can be changed", func(t *testing.T) {
		srv, view := testServer(t, &fakeController{}, Options{})
		rec := do(t, srv, http.MethodPut, "/v1/region",
			`{"center":{"lat":51.5,"lon":-0.12},"latitudinal_meters":250,"longitudinal_meters":500}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		region := view.Region()
		if region.LatitudinalMeters != 250 || region.LongitudinalMeters != 500 {
			t.Errorf("expected span to change, got %+v", region)
		}
	})
	t.Run("invalid requests are rejected", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{"empty body", ""},
			{"broken json", `{"center":`},
			{"missing center", `{"latitudinal_meters":100}`},
			{"out of range", `{"center":{"lat":91,"lon":0}}`},
			{"negative span", `{"center":{"lat":1,"lon":1},"latitudinal_meters":-1}`},
			{"unknown field", `{"center":{"lat":1,"lon":1},"zoom":3}`},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				srv, view := testServer(t, &fakeController{}, Options{})
				rec := do(t, srv, http.MethodPut, "/v1/region", tc.body)
				if rec.Code != http.StatusBadRequest {
					t.Errorf("expected status 400, got %d", rec.Code)
				}
				if view.Center() != baker {
					t.Errorf("expected map not to move, got %s", view.Center())
				}
			})
		}
	})
}

func TestServer_Directions(t *testing.T) {
	tests := []struct {
		name     string
		ctrl     *fakeController
		wantCode int
		wantBody string
	}{
		{"request is issued", &fakeController{directionsID: "abc"}, http.StatusAccepted, `"request_id":"abc"`},
		{
			"location unavailable",
			&fakeController{directionsErr: &controller.Error{Kind: controller.LocationUnavailable}},
			http.StatusConflict, `"kind":"location_unavailable"`,
		},
		{"loop stopped", &fakeController{directionsErr: controller.ErrLoopStopped}, http.StatusServiceUnavailable, "stopped"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := testServer(t, tc.ctrl, Options{})
			rec := do(t, srv, http.MethodPost, "/v1/directions", "")
			if rec.Code != tc.wantCode {
				t.Errorf("expected status %d, got %d", tc.wantCode, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tc.wantBody) {
				t.Errorf("expected body to contain %q, got %q", tc.wantBody, rec.Body.String())
			}
		})
	}
}

func TestServer_Authorization(t *testing.T) {
	t.Run("empty request re-evaluates", func(t *testing.T) {
		ctrl := &fakeController{}
		srv, _ := testServer(t, ctrl, Options{})
		rec := do(t, srv, http.MethodPost, "/v1/authorization", "")
		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected status 202, got %d", rec.Code)
		}
		if ctrl.authChanged != 1 {
			t.Errorf("expected authorization to be re-evaluated once, got %d", ctrl.authChanged)
		}
	})
	t.Run("state is set on the static provider", func(t *testing.T) {
		static := permission.NewStatic(permission.NotDetermined, permission.AuthorizedWhenInUse, true)
		srv, _ := testServer(t, &fakeController{}, Options{Authorizer: static})
		rec := do(t, srv, http.MethodPost, "/v1/authorization", `{"state":"denied","services_enabled":false}`)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected status 202, got %d", rec.Code)
		}
		state, _ := static.Status(t.Context())
		if state != permission.Denied {
			t.Errorf("expected state to be denied, got %s", state)
		}
		enabled, _ := static.ServicesEnabled(t.Context())
		if enabled {
			t.Error("expected location services to be disabled")
		}
	})
	t.Run("state cannot be set without authorizer", func(t *testing.T) {
		srv, _ := testServer(t, &fakeController{}, Options{})
		rec := do(t, srv, http.MethodPost, "/v1/authorization", `{"state":"denied"}`)
		if rec.Code != http.StatusConflict {
			t.Errorf("expected status 409, got %d", rec.Code)
		}
	})
	t.Run("unknown state is rejected", func(t *testing.T) {
		static := permission.NewStatic(permission.NotDetermined, permission.AuthorizedWhenInUse, true)
		srv, _ := testServer(t, &fakeController{}, Options{Authorizer: static})
		rec := do(t, srv, http.MethodPost, "/v1/authorization", `{"state":"maybe"}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})
}

func TestServer_Middleware(t *testing.T) {
	observer := &recordObserver{}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "metrics")
	})
	srv, _ := testServer(t, &fakeController{directionsID: "abc"}, Options{Observer: observer, Metrics: metrics})

	do(t, srv, http.MethodPost, "/v1/directions", "")
	rec := do(t, srv, http.MethodGet, "/metrics", "")
	if rec.Body.String() != "metrics" {
		t.Errorf("expected metrics handler to be mounted, got %q", rec.Body.String())
	}

	want := []string{"POST /v1/directions 202", "GET /metrics 200"}
	if strings.Join(observer.paths, ",") != strings.Join(want, ",") {
		t.Errorf("expected observed requests %v, got %v", want, observer.paths)
	}
}

func TestServer_Serve(t *testing.T) {
	srv, _ := testServer(t, &fakeController{}, Options{})
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %s", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx, listener) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/v1/map")
	if err != nil {
		t.Fatalf("failed to query server: %s", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}

	cancel()
	if err = <-errCh; err != nil {
		t.Errorf("expected graceful shutdown, got %s", err)
	}
}
