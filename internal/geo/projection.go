// Package geo projects geodetic coordinates onto the unit sphere so that Euclidean
// nearest-neighbour search approximates great-circle proximity.
package geo

import (
	"fmt"
	"math"
	"strings"
)

// Mean Earth radius in the supported distance units.
const (
	EarthRadiusKm = 6371.0
	EarthRadiusM  = 6371000.0
)

// Point is an Earth-centred, Earth-fixed direction vector (x, y, z) of unit length.
type Point [3]float64

// Unit selects the unit that distances are reported in.
type Unit string

const (
	// Kilometres reports distances in km.
	Kilometres Unit = "km"
	// Metres reports distances in m.
	Metres Unit = "m"
)

// ParseUnit converts a configuration value into a Unit.
func ParseUnit(s string) (Unit, error) {
	switch Unit(strings.ToLower(strings.TrimSpace(s))) {
	case Kilometres:
		return Kilometres, nil
	case Metres:
		return Metres, nil
	default:
		return "", fmt.Errorf("unsupported distance unit: %q", s)
	}
}

// EarthRadius returns the mean Earth radius expressed in u. Unknown units fall back to km.
func (u Unit) EarthRadius() float64 {
	if u == Metres {
		return EarthRadiusM
	}
	return EarthRadiusKm
}

// ToUnitSphere converts latitude and longitude in degrees to ECEF coordinates on the unit sphere.
// NaN input propagates to every component.
func ToUnitSphere(latDeg, lngDeg float64) Point {
	lat := latDeg * math.Pi / 180
	lng := lngDeg * math.Pi / 180
	cosLat := math.Cos(lat)

	return Point{cosLat * math.Cos(lng), cosLat * math.Sin(lng), math.Sin(lat)}
}

// SquaredDistance is the squared Euclidean distance between a and b.
func SquaredDistance(a, b Point) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return dx*dx + dy*dy + dz*dz
}

// SquaredChordToDistance converts a squared chord length between two unit-sphere points
// into a real-world distance, using earthRadius for the unit.
func SquaredChordToDistance(sqDist, earthRadius float64) float64 {
	return math.Sqrt(sqDist) * earthRadius
}

// IsNaN reports whether any component of p is NaN.
func (p Point) IsNaN() bool {
	return math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsNaN(p[2])
}
