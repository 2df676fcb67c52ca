// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package permission provides the location authorization state and the services that own it.
package permission

import (
	"context"
	"fmt"
	"strings"
)

// State is the location authorization state of the application.
type State int

const (
	NotDetermined State = iota
	AuthorizedAlways
	AuthorizedWhenInUse
	Denied
	Restricted
	Unknown
)

var stateNames = map[State]string{
	NotDetermined:       "not_determined",
	AuthorizedAlways:    "authorized_always",
	AuthorizedWhenInUse: "authorized_when_in_use",
	Denied:              "denied",
	Restricted:          "restricted",
	Unknown:             "unknown",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Authorized reports whether location updates may be used in this state.
func (s State) Authorized() bool {
	return s == AuthorizedAlways || s == AuthorizedWhenInUse
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	state, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = state
	return nil
}

// ParseState parses the snake case name of a state.
func ParseState(name string) (State, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for state, stateName := range stateNames {
		if stateName == name {
			return state, nil
		}
	}
	return Unknown, fmt.Errorf("unknown authorization state: %q", name)
}

// Service is the authority over location permission. Change callbacks may run on any
// goroutine.
type Service interface {
	Name() string
	ServicesEnabled(ctx context.Context) (bool, error)
	Status(ctx context.Context) (State, error)
	RequestWhenInUse(ctx context.Context) error
	OnChange(fn func())
}
