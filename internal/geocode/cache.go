// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/wneessen/userlocation/internal/geo"
	"github.com/wneessen/userlocation/internal/logger"
)

// coordPrecision is the precision used to quantize coordinates (0.0001 degrees ≈ 11 m)
const coordPrecision = 1e-4

// Store persists reverse geocoding results by key.
type Store interface {
	Get(ctx context.Context, key string) ([]Placemark, bool, error)
	Set(ctx context.Context, key string, placemarks []Placemark, ttl time.Duration) error
}

type CachedGeocoder struct {
	coder   Geocoder
	store   Store
	logger  *logger.Logger
	ttlHit  time.Duration
	ttlMiss time.Duration
}

func NewCachedGeocoder(coder Geocoder, store Store, log *logger.Logger, ttlHit, ttlMiss time.Duration) *CachedGeocoder {
	return &CachedGeocoder{
		coder:   coder,
		store:   store,
		logger:  log,
		ttlHit:  ttlHit,
		ttlMiss: ttlMiss,
	}
}

func (c *CachedGeocoder) Name() string {
	return "geocoder cache using " + c.coder.Name()
}

// Reverse returns the cached placemarks for coords or queries the wrapped geocoder. Store
// failures are logged and never fail the lookup.
func (c *CachedGeocoder) Reverse(ctx context.Context, coords geo.Coordinate) ([]Placemark, error) {
	key := newKey(c.coder.Name(), coords)

	cached, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("failed to read geocode cache", logger.Err(err), slog.String("key", key))
	}
	if ok {
		for i := range cached {
			cached[i].CacheHit = true
		}
		return cached, nil
	}

	placemarks, err := c.coder.Reverse(ctx, coords)
	if err != nil {
		return placemarks, err
	}

	ttl := c.ttlHit
	if len(placemarks) == 0 {
		ttl = c.ttlMiss
	}
	if err = c.store.Set(ctx, key, placemarks, ttl); err != nil {
		c.logger.Warn("failed to write geocode cache", logger.Err(err), slog.String("key", key))
	}

	return placemarks, nil
}

func quantizeCoord(val float64) int32 {
	return int32(math.Round(val / coordPrecision))
}

func newKey(provider string, coords geo.Coordinate) string {
	return fmt.Sprintf("%s:%d:%d", provider, quantizeCoord(coords.Lat), quantizeCoord(coords.Lon))
}
