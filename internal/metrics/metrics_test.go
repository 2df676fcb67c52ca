// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/wneessen/userlocation/internal/controller"
	"github.com/wneessen/userlocation/internal/permission"
)

var _ controller.Metrics = (*Metrics)(nil)

func TestMetrics_Observe(t *testing.T) {
	t.Run("counters are incremented per label", func(t *testing.T) {
		m := New()
		m.ObserveAuthorization(permission.Denied)
		m.ObserveAuthorization(permission.Denied)
		m.ObserveAuthorization(permission.AuthorizedWhenInUse)
		m.ObserveGeocode(controller.ResultSuccess)
		m.ObserveRouting(controller.ResultEmpty)
		m.ObserveRouteCancelled()
		m.ObserveNotice(controller.GeocodeFailed)

		tests := []struct {
			name string
			got  float64
			want float64
		}{
			{"denied", testutil.ToFloat64(m.authorizations.WithLabelValues("denied")), 2},
			{"authorized", testutil.ToFloat64(m.authorizations.WithLabelValues("authorized_when_in_use")), 1},
			{"geocode", testutil.ToFloat64(m.geocodes.WithLabelValues(controller.ResultSuccess)), 1},
			{"routing", testutil.ToFloat64(m.routings.WithLabelValues(controller.ResultEmpty)), 1},
			{"cancelled", testutil.ToFloat64(m.routesCancelled), 1},
			{"notice", testutil.ToFloat64(m.notices.WithLabelValues("geocode_failed")), 1},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				if tc.got != tc.want {
					t.Errorf("expected %f, got %f", tc.want, tc.got)
				}
			})
		}
	})
	t.Run("instances do not share a registry", func(t *testing.T) {
		first, second := New(), New()
		first.ObserveRouteCancelled()
		if got := testutil.ToFloat64(second.routesCancelled); got != 0 {
			t.Errorf("expected second instance to be untouched, got %f", got)
		}
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveGeocode(controller.ResultError)
	m.ObserveRequest(http.MethodGet, "/v1/state", "200", 0.01)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("failed to scrape metrics: %s", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read metrics: %s", err)
	}
	for _, want := range []string{
		`userlocation_geocode_requests_total{result="error"} 1`,
		`userlocation_http_requests_total{method="GET",path="/v1/state",status="200"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected metrics output to contain %q", want)
		}
	}
}
