// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geolocation_file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/wneessen/userlocation/internal/geo"
	"github.com/wneessen/userlocation/internal/geobus"
)

const (
	name = "geolocation_file"
	// Accuracy of a manually maintained position. We consider it the most accurate data available.
	Accuracy = 5
)

var ErrNoCoordinates = errors.New("no valid coordinates found in geolocation file")

// GeolocationFileProvider reads a "lat,lon" position from a file and emits it via a stream.
// The file is re-read whenever it changes on disk and, as a fallback, once per period.
// Lines starting with # are ignored, the first valid coordinate pair wins.
type GeolocationFileProvider struct {
	name     string
	path     string
	period   time.Duration
	ttl      time.Duration
	locateFn func() (geo.Coordinate, error)
	watchFn  func() (<-chan struct{}, func())
}

// NewGeolocationFileProvider initializes a GeolocationFileProvider with a file path and default update
// interval and TTL settings.
func NewGeolocationFileProvider(path string) *GeolocationFileProvider {
	provider := &GeolocationFileProvider{
		name:   name,
		path:   path,
		period: time.Minute * 2,
		ttl:    time.Hour * 1,
	}
	provider.locateFn = provider.readFile
	provider.watchFn = provider.watch
	return provider
}

// Name returns the name of the GeolocationFileProvider instance.
func (p *GeolocationFileProvider) Name() string {
	return p.name
}

// LookupStream streams the file's position until ctx ends. Only changed positions are emitted.
func (p *GeolocationFileProvider) LookupStream(ctx context.Context, key string) <-chan geobus.Result {
	out := make(chan geobus.Result)
	go func() {
		defer close(out)
		state := geobus.GeolocationState{}
		changes, stop := p.watchFn()
		defer stop()

		ticker := time.NewTicker(p.period)
		defer ticker.Stop()

		for {
			if coord, err := p.locateFn(); err == nil {
				r := p.createResult(key, coord)
				if state.HasChanged(r) {
					state.Update(r)
					select {
					case <-ctx.Done():
						return
					case out <- r:
					}
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			case <-changes:
			}
		}
	}()
	return out
}

// watch notifies about writes to the geolocation file. The parent directory is watched, so the
// file may be created or replaced atomically. If no watcher can be set up, the returned channel
// never fires and the provider falls back to polling.
func (p *GeolocationFileProvider) watch() (<-chan struct{}, func()) {
	changes := make(chan struct{}, 1)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return changes, func() {}
	}
	if err = watcher.Add(filepath.Dir(p.path)); err != nil {
		_ = watcher.Close()
		return changes, func() {}
	}

	target := filepath.Clean(p.path)
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					select {
					case changes <- struct{}{}:
					default:
					}
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return changes, func() { _ = watcher.Close() }
}

// createResult composes and returns a Result using provided geolocation data and metadata.
func (p *GeolocationFileProvider) createResult(key string, coord geo.Coordinate) geobus.Result {
	return geobus.Result{
		Key:            key,
		Coordinate:     coord,
		AccuracyMeters: Accuracy,
		Source:         p.name,
		At:             time.Now(),
		TTL:            p.ttl,
	}
}

// readFile returns the first valid coordinate pair of the geolocation file.
func (p *GeolocationFileProvider) readFile() (geo.Coordinate, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("failed to read geolocation file %q: %w", p.path, err)
	}
	for line := range strings.SplitSeq(string(data), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			continue
		}
		coords := strings.Split(line, ",")
		if len(coords) != 2 {
			continue
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(coords[0]), 64)
		if err != nil {
			continue
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(coords[1]), 64)
		if err != nil {
			continue
		}
		coord := geo.NewCoordinate(lat, lon)
		if !coord.Valid() {
			continue
		}
		return coord, nil
	}
	return geo.Coordinate{}, ErrNoCoordinates
}
