// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package gpsd

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/stratoberry/go-gpsd"

	"github.com/wneessen/userlocation/internal/geo"
	"github.com/wneessen/userlocation/internal/geobus"
)

const (
	name = "gpsd"

	fallbackAccuracy3DFix = 10  // ~10 m typical consumer GPS in open sky
	fallbackAccuracy2DFix = 25  // worse than 3D, but still accurate enough
	fallbackAccuracyNoFix = 1e6 // effectively unusable
)

// fix is a single position report from gpsd.
type fix struct {
	Lat  float64
	Lon  float64
	Alt  float64
	Acc  float64
	Mode gpsd.Mode
}

// GeolocationGPSDProvider streams TPV reports of a local gpsd daemon.
type GeolocationGPSDProvider struct {
	name     string
	addr     string
	period   time.Duration
	ttl      time.Duration
	streamFn func(ctx context.Context, fixes chan<- fix) error
}

// NewGeolocationGPSDProvider returns a provider for the gpsd daemon listening on addr.
func NewGeolocationGPSDProvider(addr string) *GeolocationGPSDProvider {
	provider := &GeolocationGPSDProvider{
		name:   name,
		addr:   addr,
		period: time.Second * 30,
		ttl:    time.Minute * 2,
	}
	provider.streamFn = provider.watch
	return provider
}

func (p *GeolocationGPSDProvider) Name() string {
	return p.name
}

// LookupStream emits every changed 2D or 3D fix. A lost gpsd connection is re-established
// after the provider's period.
func (p *GeolocationGPSDProvider) LookupStream(ctx context.Context, key string) <-chan geobus.Result {
	out := make(chan geobus.Result)
	fixes := make(chan fix)

	go func() {
		for {
			_ = p.streamFn(ctx, fixes)
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.period):
			}
		}
	}()

	go func() {
		defer close(out)
		state := geobus.GeolocationState{}
		for {
			select {
			case <-ctx.Done():
				return
			case f := <-fixes:
				if f.Mode < gpsd.Mode2D {
					continue
				}
				r := p.createResult(key, f)
				if !state.HasChanged(r) {
					continue
				}
				state.Update(r)
				select {
				case <-ctx.Done():
					return
				case out <- r:
				}
			}
		}
	}()

	return out
}

// watch connects to gpsd and forwards TPV reports until the connection ends or ctx is done.
func (p *GeolocationGPSDProvider) watch(ctx context.Context, fixes chan<- fix) error {
	session, err := gpsd.Dial(p.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to gpsd at %q: %w", p.addr, err)
	}

	session.AddFilter("TPV", func(r interface{}) {
		tpv, ok := r.(*gpsd.TPVReport)
		if !ok {
			return
		}
		select {
		case <-ctx.Done():
		case fixes <- fixFromReport(tpv):
		}
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-session.Watch():
		return fmt.Errorf("gpsd connection at %q closed", p.addr)
	}
}

func fixFromReport(tpv *gpsd.TPVReport) fix {
	return fix{
		Lat:  tpv.Lat,
		Lon:  tpv.Lon,
		Alt:  tpv.Alt,
		Acc:  horizontalAccuracyMeters(tpv.Epx, tpv.Epy, tpv.Mode),
		Mode: tpv.Mode,
	}
}

func horizontalAccuracyMeters(epx, epy float64, mode gpsd.Mode) float64 {
	if epx > 0 && epy > 0 {
		return math.Hypot(epx, epy)
	}
	switch mode {
	case gpsd.Mode3D:
		return fallbackAccuracy3DFix
	case gpsd.Mode2D:
		return fallbackAccuracy2DFix
	default:
		return fallbackAccuracyNoFix
	}
}

// createResult composes and returns a Result using provided geolocation data and metadata.
func (p *GeolocationGPSDProvider) createResult(key string, f fix) geobus.Result {
	return geobus.Result{
		Key: key,
		Coordinate: geo.NewCoordinate(geo.Truncate(f.Lat, geobus.TruncPrecision),
			geo.Truncate(f.Lon, geobus.TruncPrecision)),
		Alt:            geo.Truncate(f.Alt, geobus.TruncPrecision),
		AccuracyMeters: geo.Truncate(f.Acc, geobus.TruncPrecision),
		Source:         p.name,
		At:             time.Now(),
		TTL:            p.ttl,
	}
}
