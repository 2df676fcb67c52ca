// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geobus

import "math"

const (
	// DistanceThreshold is the movement in meters that counts as a new position
	DistanceThreshold = 10.0
	// AccuracyThreshold is the accuracy gain in meters that counts as a new position
	AccuracyThreshold = 50.0
)

// HasSignificantChange reports whether next moved more than DistanceThreshold away from prev or
// improved the accuracy by more than AccuracyThreshold.
func HasSignificantChange(prev, next Result) bool {
	if next.AccuracyMeters < prev.AccuracyMeters && math.Abs(next.AccuracyMeters-prev.AccuracyMeters) > AccuracyThreshold {
		return true
	}
	return prev.Coordinate.DistanceTo(next.Coordinate) > DistanceThreshold
}

// GeolocationState tracks the last reading of a provider, so providers only emit changed
// positions.
type GeolocationState struct {
	last     Result
	haveLast bool
}

// HasChanged reports whether r differs significantly from the last reading.
func (s *GeolocationState) HasChanged(r Result) bool {
	if !s.haveLast {
		return true
	}
	return HasSignificantChange(s.last, r)
}

// Update stores r as the last reading.
func (s *GeolocationState) Update(r Result) {
	s.last = r
	s.haveLast = true
}
