// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package permission

import (
	"context"
	"sync"
)

// Static is a configuration driven permission service. A permission request moves it from
// NotDetermined to the configured grant state. The state can be changed at runtime, e.g. through
// the control API.
type Static struct {
	mu       sync.Mutex
	state    State
	grant    State
	enabled  bool
	onChange []func()
}

func NewStatic(initial, grant State, servicesEnabled bool) *Static {
	return &Static{
		state:   initial,
		grant:   grant,
		enabled: servicesEnabled,
	}
}

func (s *Static) Name() string {
	return "static"
}

func (s *Static) ServicesEnabled(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled, nil
}

func (s *Static) Status(context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

// RequestWhenInUse grants the configured state if the user has not decided yet. Like a
// permission dialog, the answer arrives through the change callbacks.
func (s *Static) RequestWhenInUse(context.Context) error {
	s.mu.Lock()
	if s.state != NotDetermined {
		s.mu.Unlock()
		return nil
	}
	s.state = s.grant
	fns := s.onChange
	s.mu.Unlock()

	notify(fns)
	return nil
}

// SetState changes the authorization state and notifies the change callbacks.
func (s *Static) SetState(state State) {
	s.mu.Lock()
	if s.state == state {
		s.mu.Unlock()
		return
	}
	s.state = state
	fns := s.onChange
	s.mu.Unlock()

	notify(fns)
}

// SetServicesEnabled toggles the global location services switch.
func (s *Static) SetServicesEnabled(enabled bool) {
	s.mu.Lock()
	if s.enabled == enabled {
		s.mu.Unlock()
		return
	}
	s.enabled = enabled
	fns := s.onChange
	s.mu.Unlock()

	notify(fns)
}

func (s *Static) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

func notify(fns []func()) {
	for _, fn := range fns {
		go fn()
	}
}
