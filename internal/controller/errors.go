// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package controller

import (
	"errors"
	"fmt"

	"github.com/wneessen/userlocation/internal/notice"
)

// ErrLoopStopped is returned when the event loop no longer accepts work.
var ErrLoopStopped = errors.New("event loop stopped")

// Kind classifies the failures the controller reports to the user.
type Kind int

const (
	PermissionDenied Kind = iota + 1
	PermissionRestricted
	PermissionUnknown
	LocationUnavailable
	GeocodeFailed
	GeocodeEmpty
	RoutingFailed
	RoutingEmpty
	ServicesDisabled
)

var kindNames = map[Kind]string{
	PermissionDenied:     "permission_denied",
	PermissionRestricted: "permission_restricted",
	PermissionUnknown:    "permission_unknown",
	LocationUnavailable:  "location_unavailable",
	GeocodeFailed:        "geocode_failed",
	GeocodeEmpty:         "geocode_empty",
	RoutingFailed:        "routing_failed",
	RoutingEmpty:         "routing_empty",
	ServicesDisabled:     "services_disabled",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a failure of the given kind, optionally caused by Err.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind, true
	}
	return 0, false
}

// Notice returns the user facing notice for the error kind.
func (k Kind) Notice() notice.Notice {
	n := notice.Notice{Kind: k.String(), Title: "Warning", Dismiss: "OK"}
	switch k {
	case ServicesDisabled:
		n.Body = "Location services are disabled."
	case PermissionDenied:
		n.Body = "Location access has been denied."
	case PermissionRestricted:
		n.Body = "Your device has been restricted."
		n.Blocking = true
	case LocationUnavailable:
		n.Body = "Your current location is not available yet."
	case GeocodeFailed:
		n.Title = "Error"
		n.Body = "The address could not be resolved."
	case GeocodeEmpty:
		n.Body = "No address was found for this location."
	case RoutingFailed:
		n.Title = "Error"
		n.Body = "Directions could not be calculated."
	case RoutingEmpty:
		n.Body = "No route was found to this location."
	default:
		n.Body = "There was an error. Could not determine authorization"
		n.Dismiss = "Ok"
		n.Blocking = true
	}
	return n
}
