// Package geo provides the geodesy primitives used to derive location
// features: a coordinate value type, initial bearing, ellipsoidal distance
// and a UTM projection for local planar distance computations.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/tidwall/geodesic"
)

const (
	// MetersPerMile converts planar station distances to miles.
	MetersPerMile = 1609.34
	// metersPerStatuteMile is the exact international mile, used for geodesic distances.
	metersPerStatuteMile = 1609.344
)

var (
	ErrInvalidLatitude  = errors.New("latitude out of range [-90, 90]")
	ErrInvalidLongitude = errors.New("longitude out of range [-180, 180]")
)

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Validate reports whether the coordinate is a finite, in-range lat/lon pair.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: %v", ErrInvalidLatitude, c.Lat)
	}
	if math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: %v", ErrInvalidLongitude, c.Lon)
	}
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%g, %g)", c.Lat, c.Lon)
}

// Bearing returns the initial great-circle bearing from one coordinate to
// another, in radians in the range (-π, π]. Identical points yield 0.
func Bearing(from, to Coordinate) float64 {
	lat1, lon1 := radians(from.Lat), radians(from.Lon)
	lat2, lon2 := radians(to.Lat), radians(to.Lon)

	dlon := lon2 - lon1
	x := math.Cos(lat2) * math.Sin(dlon)
	y := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dlon)
	return math.Atan2(x, y)
}

// DistanceMeters returns the geodesic distance on the WGS84 ellipsoid.
func DistanceMeters(a, b Coordinate) float64 {
	var s12 float64
	geodesic.WGS84.Inverse(a.Lat, a.Lon, b.Lat, b.Lon, &s12, nil, nil)
	return s12
}

// DistanceMiles returns the geodesic distance on the WGS84 ellipsoid in statute miles.
func DistanceMiles(a, b Coordinate) float64 {
	return DistanceMeters(a, b) / metersPerStatuteMile
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
