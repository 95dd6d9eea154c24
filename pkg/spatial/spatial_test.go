package spatial_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/rubiojr/rentgeo/internal/geotest"
	"github.com/rubiojr/rentgeo/pkg/geo"
	"github.com/rubiojr/rentgeo/pkg/spatial"
)

func coord(p [2]float64) geo.Coordinate {
	return geo.Coordinate{Lat: p[0], Lon: p[1]}
}

func TestLoad(t *testing.T) {
	dir := geotest.WriteDir(t)

	ref, err := spatial.Load(dir, spatial.LoadOptions{})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	want := map[spatial.Kind]int{
		spatial.KindBoroughs:  2,
		spatial.KindNoise:     2,
		spatial.KindFareZones: 3,
		spatial.KindStations:  4,
	}
	for kind, n := range ref.Summary() {
		if want[kind] != n {
			t.Errorf("%s has %d features, expected %d", kind, n, want[kind])
		}
	}

	if zone := ref.Stations.Projection().Zone(); zone != 30 {
		t.Errorf("station projection zone = %d, expected 30", zone)
	}
}

func TestLoadIsDeterministic(t *testing.T) {
	dir := geotest.WriteDir(t)

	a, err := spatial.Load(dir, spatial.LoadOptions{})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	b, err := spatial.Load(dir, spatial.LoadOptions{})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	for _, p := range [][2]float64{geotest.Trafalgar, geotest.Camden, geotest.Outer} {
		fa, oka := a.Boroughs.Lookup(coord(p))
		fb, okb := b.Boroughs.Lookup(coord(p))
		if oka != okb || fa.Index != fb.Index {
			t.Errorf("lookup of %v differs between two loads", p)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := geotest.WriteDir(t)
	if err := os.Remove(filepath.Join(dir, spatial.DefaultFiles()[spatial.KindNoise])); err != nil {
		t.Fatal(err)
	}

	_, err := spatial.Load(dir, spatial.LoadOptions{})
	if !errors.Is(err, spatial.ErrDataLoad) {
		t.Fatalf("Load() error = %v, expected ErrDataLoad", err)
	}

	var loadErr *spatial.DataLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Load() error is %T, expected *DataLoadError", err)
	}
	if loadErr.Kind != spatial.KindNoise {
		t.Errorf("DataLoadError.Kind = %s, expected %s", loadErr.Kind, spatial.KindNoise)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("DataLoadError does not wrap os.ErrNotExist: %v", err)
	}
}

func TestBuildRejectsInvalidData(t *testing.T) {
	tests := []struct {
		name string
		kind spatial.Kind
		data string
	}{
		{"not json", spatial.KindBoroughs, "{"},
		{"empty collection", spatial.KindNoise, geotest.Collection()},
		{"points in area layer", spatial.KindFareZones, geotest.Collection(geotest.PointFeature(`{"Name":"Zone 1"}`, -0.1, 51.5))},
		{"polygons in station layer", spatial.KindStations, geotest.Boroughs()},
		{"unsupported crs", spatial.KindBoroughs, `{"type":"FeatureCollection","crs":{"type":"name","properties":{"name":"urn:ogc:def:crs:EPSG::27700"}},"features":[` +
			geotest.PolygonFeature(`{"name":"X"}`, geotest.Square(500000, 170000, 540000, 200000)) + `]}`},
		{"out of range", spatial.KindBoroughs, geotest.Collection(geotest.PolygonFeature(`{"name":"X"}`, geotest.Square(500000, 170000, 540000, 200000)))},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sources := geotest.Sources()
			sources[test.kind] = []byte(test.data)

			_, err := spatial.Build(sources, spatial.LoadOptions{})
			var loadErr *spatial.DataLoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("Build() error = %v, expected *DataLoadError", err)
			}
			if loadErr.Kind != test.kind {
				t.Errorf("DataLoadError.Kind = %s, expected %s", loadErr.Kind, test.kind)
			}
		})
	}
}

func TestBuildMissingDataset(t *testing.T) {
	sources := geotest.Sources()
	delete(sources, spatial.KindStations)

	if _, err := spatial.Build(sources, spatial.LoadOptions{}); !errors.Is(err, spatial.ErrDataLoad) {
		t.Fatalf("Build() error = %v, expected ErrDataLoad", err)
	}
}

func TestDecodeLayerMercator(t *testing.T) {
	toMerc := func(lon, lat float64) orb.Point {
		return project.Point(orb.Point{lon, lat}, project.WGS84.ToMercator)
	}
	lo, hi := toMerc(-0.20, 51.48), toMerc(-0.10, 51.53)
	doc := `{"type":"FeatureCollection","crs":{"type":"name","properties":{"name":"urn:ogc:def:crs:EPSG::3857"}},"features":[` +
		geotest.PolygonFeature(`{"name":"Westminster"}`, geotest.Square(lo.X(), lo.Y(), hi.X(), hi.Y())) + `]}`

	layer, err := spatial.DecodeLayer(spatial.KindBoroughs, []byte(doc))
	if err != nil {
		t.Fatalf("DecodeLayer() failed: %v", err)
	}

	b := layer.Bound
	if math.Abs(b.Min.Lon()+0.20) > 1e-6 || math.Abs(b.Max.Lat()-51.53) > 1e-6 {
		t.Errorf("reprojected bound = %v, expected [-0.20 51.48, -0.10 51.53]", b)
	}

	pl, err := spatial.NewPolygonLayer(layer)
	if err != nil {
		t.Fatalf("NewPolygonLayer() failed: %v", err)
	}
	if _, ok := pl.Lookup(coord(geotest.Trafalgar)); !ok {
		t.Error("reprojected polygon does not contain Trafalgar")
	}
}

func TestDecodeLayerWGS84CRS(t *testing.T) {
	for _, name := range []string{"EPSG:4326", "urn:ogc:def:crs:OGC:1.3:CRS84", "urn:ogc:def:crs:EPSG::4326"} {
		doc := `{"type":"FeatureCollection","crs":{"type":"name","properties":{"name":"` + name + `"}},"features":[` +
			geotest.PolygonFeature(`{"name":"Westminster"}`, geotest.Square(-0.20, 51.48, -0.10, 51.53)) + `]}`
		if _, err := spatial.DecodeLayer(spatial.KindBoroughs, []byte(doc)); err != nil {
			t.Errorf("DecodeLayer() with crs %q failed: %v", name, err)
		}
	}
}

func TestDecodeLayerBritishNationalGrid(t *testing.T) {
	// Easting/northing square around Charing Cross.
	doc := `{"type":"FeatureCollection","crs":{"type":"name","properties":{"name":"urn:ogc:def:crs:EPSG::27700"}},"features":[` +
		geotest.PolygonFeature(`{"name":"Westminster"}`, geotest.Square(528000, 178000, 532000, 182000)) + `]}`

	layer, err := spatial.DecodeLayer(spatial.KindBoroughs, []byte(doc))
	if err != nil {
		t.Fatalf("DecodeLayer() failed: %v", err)
	}

	b := layer.Bound
	center := b.Center()
	if math.Abs(center.Lon()+0.128) > 0.01 || math.Abs(center.Lat()-51.5045) > 0.01 {
		t.Errorf("reprojected center = %v, expected near [-0.128 51.5045]", center)
	}
	if b.Max.Lon()-b.Min.Lon() > 0.1 || b.Max.Lat()-b.Min.Lat() > 0.1 {
		t.Errorf("reprojected bound = %v, expected a square a few kilometres wide", b)
	}

	pl, err := spatial.NewPolygonLayer(layer)
	if err != nil {
		t.Fatalf("NewPolygonLayer() failed: %v", err)
	}
	if _, ok := pl.Lookup(coord(geotest.Trafalgar)); !ok {
		t.Error("reprojected polygon does not contain Trafalgar")
	}
}

func TestDecodeLayerUnknownCRS(t *testing.T) {
	for _, name := range []string{"EPSG:1", "urn:ogc:def:crs:EPSG::not-a-code", "local"} {
		doc := `{"type":"FeatureCollection","crs":{"type":"name","properties":{"name":"` + name + `"}},"features":[` +
			geotest.PolygonFeature(`{"name":"Westminster"}`, geotest.Square(-0.20, 51.48, -0.10, 51.53)) + `]}`
		if _, err := spatial.DecodeLayer(spatial.KindBoroughs, []byte(doc)); err == nil {
			t.Errorf("DecodeLayer() with crs %q expected error but got none", name)
		}
	}
}

func TestPolygonLookupBoundary(t *testing.T) {
	ref := geotest.Context(t)

	tests := []struct {
		name  string
		point [2]float64
		want  any
	}{
		{"shared edge goes to first borough", [2]float64{51.53, -0.15}, "Westminster"},
		{"outer edge is inside", [2]float64{51.50, -0.10}, "Westminster"},
		{"corner is inside", [2]float64{51.57, -0.20}, "Camden"},
		{"just past the edge", [2]float64{51.50, -0.0999}, nil},
	}

	for _, test := range tests {
		f, ok := ref.Boroughs.Lookup(coord(test.point))
		if test.want == nil {
			if ok {
				t.Errorf("%s: Lookup(%v) = %v, expected no match", test.name, test.point, f.Properties)
			}
			continue
		}
		if !ok {
			t.Errorf("%s: Lookup(%v) found nothing, expected %v", test.name, test.point, test.want)
			continue
		}
		if got := f.Properties["name"]; got != test.want {
			t.Errorf("%s: Lookup(%v) = %v, expected %v", test.name, test.point, got, test.want)
		}
	}
}

func TestPolygonLookup(t *testing.T) {
	ref := geotest.Context(t)

	tests := []struct {
		name   string
		lookup spatial.SpatialLookup
		point  [2]float64
		key    string
		want   any
	}{
		{"borough westminster", ref.Boroughs, geotest.Trafalgar, "name", "Westminster"},
		{"borough camden", ref.Boroughs, geotest.Camden, "name", "Camden"},
		{"borough gap", ref.Boroughs, geotest.Outer, "name", nil},
		{"noise first match wins", ref.Noise, geotest.Trafalgar, "NoiseClass", "High"},
		{"noise outer polygon", ref.Noise, geotest.Camden, "NoiseClass", "Low"},
		{"noise gap", ref.Noise, geotest.FarNorth, "NoiseClass", nil},
		{"zone 1 before zone 2", ref.FareZones, geotest.Trafalgar, "Name", "Zone 1"},
		{"zone 2", ref.FareZones, geotest.Camden, "Name", "Zone 2"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f, ok := test.lookup.Lookup(coord(test.point))
			if test.want == nil {
				if ok {
					t.Errorf("Lookup(%v) = %v, expected no match", test.point, f.Properties)
				}
				return
			}
			if !ok {
				t.Fatalf("Lookup(%v) found nothing, expected %v", test.point, test.want)
			}
			if got := f.Properties[test.key]; got != test.want {
				t.Errorf("Lookup(%v)[%s] = %v, expected %v", test.point, test.key, got, test.want)
			}
		})
	}
}

func TestStationNearest(t *testing.T) {
	ref := geotest.Context(t)

	got := ref.Stations.Nearest(coord(geotest.Trafalgar), 3, 50000)
	if len(got) != 3 {
		t.Fatalf("Nearest() returned %d stations, expected 3", len(got))
	}
	if got[0].Name != "Westminster" {
		t.Errorf("closest station = %s, expected Westminster", got[0].Name)
	}
	if !got[0].TFL || got[0].Rail {
		t.Errorf("Westminster flags TFL=%v RAIL=%v, expected true/false", got[0].TFL, got[0].Rail)
	}
	for i := range got {
		if got[i].DistanceMiles < 0 {
			t.Errorf("station %d has negative distance %f", i, got[i].DistanceMiles)
		}
		if i > 0 && got[i].DistanceMiles < got[i-1].DistanceMiles {
			t.Errorf("stations not sorted: %f before %f", got[i-1].DistanceMiles, got[i].DistanceMiles)
		}
	}

	// Planar distance tracks the geodesic one closely.
	westminster := geo.Coordinate{Lat: 51.5010, Lon: -0.1253}
	geodesic := geo.DistanceMeters(coord(geotest.Trafalgar), westminster) / geo.MetersPerMile
	if math.Abs(got[0].DistanceMiles-geodesic)/geodesic > 0.002 {
		t.Errorf("distance to Westminster = %f, geodesic %f", got[0].DistanceMiles, geodesic)
	}
}

func TestStationNearestLimits(t *testing.T) {
	ref := geotest.Context(t)

	tests := []struct {
		name  string
		point [2]float64
		k     int
		max   float64
		want  int
	}{
		{"one station in range", geotest.FarNorth, 3, 50000, 1},
		{"k larger than dataset", geotest.Trafalgar, 10, 1e7, 4},
		{"k zero", geotest.Trafalgar, 0, 50000, 0},
		{"nothing in range", geotest.Trafalgar, 3, 10, 0},
		{"truncated to k", geotest.Trafalgar, 2, 50000, 2},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := ref.Stations.Nearest(coord(test.point), test.k, test.max)
			if len(got) != test.want {
				t.Errorf("Nearest() returned %d stations, expected %d", len(got), test.want)
			}
		})
	}

	far := ref.Stations.Nearest(coord(geotest.FarNorth), 3, 50000)
	if len(far) == 1 && (far[0].Name != "Farfield" || far[0].TFL || !far[0].Rail) {
		t.Errorf("far station = %+v, expected Farfield TFL=false RAIL=true", far[0])
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range spatial.Kinds {
		got, err := spatial.ParseKind(string(k))
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %q, %v", k, got, err)
		}
	}
	if _, err := spatial.ParseKind("rivers"); err == nil {
		t.Error("ParseKind(rivers) expected error but got none")
	}
}
