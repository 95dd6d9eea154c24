package geo

import (
	"fmt"
	"math"

	"github.com/wroge/wgs84"
)

const (
	epsgWGS84    = 4326
	epsgUTMNorth = 32600
	epsgUTMSouth = 32700

	utmFalseNorthing = 10000000.0
)

// TransverseMercator projects WGS84 coordinates onto a single UTM zone.
type TransverseMercator struct {
	zone    int
	north   bool
	forward wgs84.Func
}

// UTMZoneFor returns the UTM zone number and hemisphere for a coordinate.
func UTMZoneFor(c Coordinate) (zone int, north bool) {
	zone = int(math.Floor((c.Lon+180)/6)) + 1
	if zone < 1 {
		zone = 1
	}
	if zone > 60 {
		zone = 60
	}
	return zone, c.Lat >= 0
}

// NewUTM returns the projection for the given zone and hemisphere, backed by
// the EPSG:326zz and EPSG:327zz definitions.
func NewUTM(zone int, north bool) (*TransverseMercator, error) {
	if zone < 1 || zone > 60 {
		return nil, fmt.Errorf("invalid UTM zone %d", zone)
	}

	code := epsgUTMNorth + zone
	if !north {
		code = epsgUTMSouth + zone
	}
	epsg := wgs84.EPSG()
	to := epsg.Code(code)
	if to == nil {
		return nil, fmt.Errorf("no definition for EPSG:%d", code)
	}

	return &TransverseMercator{
		zone:    zone,
		north:   north,
		forward: wgs84.Transform(epsg.Code(epsgWGS84), to),
	}, nil
}

// Zone returns the UTM zone number.
func (tm *TransverseMercator) Zone() int { return tm.zone }

// North reports whether the projection uses the northern hemisphere origin.
func (tm *TransverseMercator) North() bool { return tm.north }

func (tm *TransverseMercator) String() string {
	hemisphere := "N"
	if !tm.north {
		hemisphere = "S"
	}
	return fmt.Sprintf("UTM %d%s", tm.zone, hemisphere)
}

// Forward projects a coordinate to easting/northing in metres.
func (tm *TransverseMercator) Forward(c Coordinate) (x, y float64) {
	x, y, _ = tm.forward(c.Lon, c.Lat, 0)
	return x, y
}

// ToWGS84 returns a transform from the planar or geographic system
// identified by an EPSG code to WGS84 longitude/latitude.
func ToWGS84(code int) (func(x, y float64) (lon, lat float64), error) {
	epsg := wgs84.EPSG()
	from := epsg.Code(code)
	if from == nil {
		return nil, fmt.Errorf("unknown EPSG code %d", code)
	}

	transform := wgs84.Transform(from, epsg.Code(epsgWGS84))
	return func(x, y float64) (float64, float64) {
		lon, lat, _ := transform(x, y, 0)
		return lon, lat
	}, nil
}
