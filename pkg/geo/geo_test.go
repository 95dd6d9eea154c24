package geo

import (
	"errors"
	"math"
	"testing"
)

var london = Coordinate{Lat: 51.5072, Lon: -0.1276}

func TestValidate(t *testing.T) {
	tests := []struct {
		c       Coordinate
		wantErr error
	}{
		{Coordinate{51.5, -0.13}, nil},
		{Coordinate{90, 180}, nil},
		{Coordinate{-90, -180}, nil},
		{Coordinate{90.1, 0}, ErrInvalidLatitude},
		{Coordinate{math.NaN(), 0}, ErrInvalidLatitude},
		{Coordinate{0, -180.5}, ErrInvalidLongitude},
		{Coordinate{0, math.Inf(1)}, ErrInvalidLongitude},
	}

	for _, test := range tests {
		err := test.c.Validate()
		if test.wantErr == nil {
			if err != nil {
				t.Errorf("Validate(%v) unexpected error: %v", test.c, err)
			}
			continue
		}
		if !errors.Is(err, test.wantErr) {
			t.Errorf("Validate(%v) = %v, expected %v", test.c, err, test.wantErr)
		}
	}
}

func TestBearing(t *testing.T) {
	if got := Bearing(london, london); got != 0 {
		t.Errorf("Bearing to itself = %f, expected 0", got)
	}

	north := Coordinate{Lat: london.Lat + 0.1, Lon: london.Lon}
	if got := Bearing(london, north); math.Abs(got) > 1e-9 {
		t.Errorf("Bearing due north = %f, expected 0", got)
	}

	south := Coordinate{Lat: london.Lat - 0.1, Lon: london.Lon}
	if got := Bearing(london, south); math.Abs(math.Abs(got)-math.Pi) > 1e-9 {
		t.Errorf("Bearing due south = %f, expected ±π", got)
	}

	east := Coordinate{Lat: london.Lat, Lon: london.Lon + 0.1}
	if got := Bearing(london, east); math.Abs(got-math.Pi/2) > 0.01 {
		t.Errorf("Bearing east = %f, expected ~π/2", got)
	}

	west := Coordinate{Lat: london.Lat, Lon: london.Lon - 0.1}
	if got := Bearing(london, west); math.Abs(got+math.Pi/2) > 0.01 {
		t.Errorf("Bearing west = %f, expected ~-π/2", got)
	}
}

func TestDistanceMiles(t *testing.T) {
	if got := DistanceMiles(london, london); got != 0 {
		t.Errorf("DistanceMiles to itself = %f, expected 0", got)
	}

	paris := Coordinate{Lat: 48.8566, Lon: 2.3522}
	got := DistanceMiles(london, paris)
	if math.Abs(got-213.7) > 2 {
		t.Errorf("DistanceMiles(London, Paris) = %f, expected ~213.7", got)
	}

	if back := DistanceMiles(paris, london); math.Abs(back-got) > 1e-9 {
		t.Errorf("DistanceMiles is not symmetric: %f vs %f", got, back)
	}
}

func TestUTMZoneFor(t *testing.T) {
	tests := []struct {
		c         Coordinate
		zone      int
		northHemi bool
	}{
		{london, 30, true},
		{Coordinate{51.5, 0.5}, 31, true},
		{Coordinate{-33.86, 151.2}, 56, false},
		{Coordinate{0, -180}, 1, true},
		{Coordinate{0, 180}, 60, true},
	}

	for _, test := range tests {
		zone, north := UTMZoneFor(test.c)
		if zone != test.zone || north != test.northHemi {
			t.Errorf("UTMZoneFor(%v) = %d/%v, expected %d/%v", test.c, zone, north, test.zone, test.northHemi)
		}
	}
}

func TestTransverseMercatorForward(t *testing.T) {
	tm, err := NewUTM(30, true)
	if err != nil {
		t.Fatalf("NewUTM() failed: %v", err)
	}

	// Central meridian of zone 30 is 3°W.
	x, y := tm.Forward(Coordinate{Lat: 0, Lon: -3})
	if math.Abs(x-500000) > 1e-3 || math.Abs(y) > 1e-3 {
		t.Errorf("Forward(origin) = (%f, %f), expected (500000, 0)", x, y)
	}

	x, _ = tm.Forward(Coordinate{Lat: 51.5, Lon: -3})
	if math.Abs(x-500000) > 1e-3 {
		t.Errorf("Forward on central meridian easting = %f, expected 500000", x)
	}

	south, err := NewUTM(56, false)
	if err != nil {
		t.Fatalf("NewUTM() failed: %v", err)
	}
	_, y = south.Forward(Coordinate{Lat: -33.86, Lon: 151.2})
	if y <= 0 || y >= utmFalseNorthing {
		t.Errorf("southern northing = %f, expected within (0, 10000000)", y)
	}

	if _, err := NewUTM(61, true); err == nil {
		t.Error("NewUTM(61) expected error but got none")
	}
}

func TestTransverseMercatorMatchesGeodesic(t *testing.T) {
	tm, err := NewUTM(30, true)
	if err != nil {
		t.Fatalf("NewUTM() failed: %v", err)
	}

	pairs := [][2]Coordinate{
		{london, {Lat: 51.5010, Lon: -0.1253}},
		{london, {Lat: 51.55, Lon: -0.2}},
		{{Lat: 51.40, Lon: -0.30}, {Lat: 51.60, Lon: 0.10}},
	}

	for _, p := range pairs {
		x1, y1 := tm.Forward(p[0])
		x2, y2 := tm.Forward(p[1])
		planar := math.Hypot(x2-x1, y2-y1)
		geodesic := DistanceMeters(p[0], p[1])
		if rel := math.Abs(planar-geodesic) / geodesic; rel > 0.002 {
			t.Errorf("planar %f vs geodesic %f differ by %.4f%%", planar, geodesic, rel*100)
		}
	}
}

func TestToWGS84(t *testing.T) {
	tests := []struct {
		code     int
		x, y     float64
		lon, lat float64
		tol      float64
	}{
		// British National Grid near Charing Cross.
		{27700, 530000, 180000, -0.1278, 51.5045, 0.005},
		{3857, 0, 0, 0, 0, 1e-9},
		{4326, -0.1276, 51.5072, -0.1276, 51.5072, 1e-9},
		{32630, 500000, 0, -3, 0, 1e-6},
	}

	for _, test := range tests {
		transform, err := ToWGS84(test.code)
		if err != nil {
			t.Errorf("ToWGS84(%d) failed: %v", test.code, err)
			continue
		}
		lon, lat := transform(test.x, test.y)
		if math.Abs(lon-test.lon) > test.tol || math.Abs(lat-test.lat) > test.tol {
			t.Errorf("EPSG:%d (%f, %f) = (%f, %f), expected (%f, %f)", test.code, test.x, test.y, lon, lat, test.lon, test.lat)
		}
	}

	if _, err := ToWGS84(1); err == nil {
		t.Error("ToWGS84(1) expected error but got none")
	}
}
