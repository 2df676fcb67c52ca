// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geobus

import (
	"context"
	"sync"

	"github.com/wneessen/userlocation/internal/geo"
)

// Locator exposes the best known position of one bus key as a user location that can be
// switched on and off. While updating, the orchestrator tracks all providers and every
// published position is handed to the registered update hooks.
type Locator struct {
	bus          *GeoBus
	orchestrator *Orchestrator
	key          string

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	updating bool
	hooks    []func(geo.Coordinate)
}

// NewLocator returns a Locator tracking key with the given providers.
func NewLocator(bus *GeoBus, providers []Provider, key string) *Locator {
	return &Locator{
		bus:          bus,
		orchestrator: bus.NewOrchestrator(providers),
		key:          key,
	}
}

// OnUpdate registers fn to be called with every new position. Hooks run on the locator's own
// goroutine.
func (l *Locator) OnUpdate(fn func(geo.Coordinate)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, fn)
}

// StartUpdating starts tracking. Calling it while already updating has no effect.
func (l *Locator) StartUpdating(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.updating {
		return
	}

	ctxTrack, cancel := context.WithCancel(ctx)
	results, unsub := l.bus.Subscribe(l.key, 1)
	done := make(chan struct{})
	l.cancel, l.done, l.updating = cancel, done, true

	var wg sync.WaitGroup
	wg.Go(func() {
		l.orchestrator.Track(ctxTrack, l.key)
	})
	wg.Go(func() {
		defer unsub()
		for {
			select {
			case <-ctxTrack.Done():
				return
			case r := <-results:
				l.notify(r.Coordinate)
			}
		}
	})
	go func() {
		wg.Wait()
		close(done)
	}()
}

// StopUpdating stops tracking and waits for the providers to finish.
func (l *Locator) StopUpdating() {
	l.mu.Lock()
	if !l.updating {
		l.mu.Unlock()
		return
	}
	cancel, done := l.cancel, l.done
	l.cancel, l.done, l.updating = nil, nil, false
	l.mu.Unlock()

	cancel()
	<-done
}

// Updating reports whether the locator is currently tracking.
func (l *Locator) Updating() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.updating
}

// Location returns the best known, unexpired position. There is no position while the
// locator is not updating.
func (l *Locator) Location() (geo.Coordinate, bool) {
	if !l.Updating() {
		return geo.Coordinate{}, false
	}
	r, ok := l.bus.Best(l.key)
	if !ok {
		return geo.Coordinate{}, false
	}
	return r.Coordinate, true
}

func (l *Locator) notify(coord geo.Coordinate) {
	l.mu.Lock()
	hooks := make([]func(geo.Coordinate), len(l.hooks))
	copy(hooks, l.hooks)
	l.mu.Unlock()
	for _, fn := range hooks {
		fn(coord)
	}
}
