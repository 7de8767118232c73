// Package geo provides the geodetic helpers used by the wait engine.
package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// metersPerDegree converts a degree-space delta near the equator into
// meters. The test ranges sit close enough to the equator that the
// flat-earth approximation holds; it is not geodesically exact.
const metersPerDegree = 111319.5

// Distance returns the ground distance in meters between two points
// using the flat-earth approximation.
func Distance(a, b orb.Point) float64 {
	dLat := b.Lat() - a.Lat()
	dLon := b.Lon() - a.Lon()
	return math.Sqrt(dLat*dLat+dLon*dLon) * metersPerDegree
}

// Bearing returns the initial bearing from a to b in degrees, normalized
// to [0, 360). Coincident points have no defined bearing; report 0.
func Bearing(a, b orb.Point) float64 {
	offX := b.Lon() - a.Lon()
	offY := b.Lat() - a.Lat()
	if offX == 0 && offY == 0 {
		return 0
	}
	bearing := 90.0 + math.Atan2(-offY, offX)*(180.0/math.Pi)
	if bearing < 0 {
		bearing += 360.0
	}
	return bearing
}
