// Package geotest writes small reference datasets around central London for
// tests.
package geotest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rubiojr/rentgeo/pkg/spatial"
)

// Points of interest covered by the fixtures.
var (
	// Inside Westminster, the High noise hexagon and Zone 1.
	Trafalgar = [2]float64{51.50, -0.13}
	// Inside Camden, Low noise and Zone 2.
	Camden = [2]float64{51.55, -0.15}
	// Inside the "Outer area" fare polygon, outside every borough.
	Outer = [2]float64{51.35, -0.45}
	// North of London with a single station in range.
	FarNorth = [2]float64{52.05, -0.1276}
)

// Square returns a closed GeoJSON ring for the given bounds.
func Square(minLon, minLat, maxLon, maxLat float64) string {
	return fmt.Sprintf("[[%g,%g],[%g,%g],[%g,%g],[%g,%g],[%g,%g]]",
		minLon, minLat, maxLon, minLat, maxLon, maxLat, minLon, maxLat, minLon, minLat)
}

// PolygonFeature returns a GeoJSON polygon feature.
func PolygonFeature(props string, ring string) string {
	return fmt.Sprintf(`{"type":"Feature","properties":%s,"geometry":{"type":"Polygon","coordinates":[%s]}}`, props, ring)
}

// PointFeature returns a GeoJSON point feature.
func PointFeature(props string, lon, lat float64) string {
	return fmt.Sprintf(`{"type":"Feature","properties":%s,"geometry":{"type":"Point","coordinates":[%g,%g]}}`, props, lon, lat)
}

// Collection wraps features in a FeatureCollection.
func Collection(features ...string) string {
	return `{"type":"FeatureCollection","features":[` + strings.Join(features, ",") + `]}`
}

// Boroughs returns two adjacent boroughs.
func Boroughs() string {
	return Collection(
		PolygonFeature(`{"name":"Westminster"}`, Square(-0.20, 51.48, -0.10, 51.53)),
		PolygonFeature(`{"name":"Camden"}`, Square(-0.20, 51.53, -0.10, 51.57)),
	)
}

// Noise returns an inner "High" hexagon stored before a larger overlapping
// "Low" area, so first-match semantics are observable.
func Noise() string {
	hex := "[[-0.14,51.5025],[-0.135,51.495],[-0.125,51.495],[-0.12,51.5025],[-0.125,51.51],[-0.135,51.51],[-0.14,51.5025]]"
	return Collection(
		PolygonFeature(`{"NoiseClass":"High"}`, hex),
		PolygonFeature(`{"NoiseClass":"Low"}`, Square(-0.25, 51.45, -0.05, 51.60)),
	)
}

// FareZones returns Zone 1 inside Zone 2 plus a label without the Zone marker.
func FareZones() string {
	return Collection(
		PolygonFeature(`{"Name":"Zone 1"}`, Square(-0.17, 51.49, -0.09, 51.53)),
		PolygonFeature(`{"Name":"Zone 2"}`, Square(-0.25, 51.45, -0.05, 51.60)),
		PolygonFeature(`{"Name":"Outer area"}`, Square(-0.50, 51.30, -0.40, 51.40)),
	)
}

// Stations returns three central stations and one far to the north.
func Stations() string {
	return Collection(
		PointFeature(`{"CommonName":"Charing Cross","TFL":true,"RAIL":true}`, -0.1247, 51.5080),
		PointFeature(`{"CommonName":"Embankment","TFL":true,"RAIL":false}`, -0.1223, 51.5074),
		PointFeature(`{"CommonName":"Westminster","TFL":1,"RAIL":0}`, -0.1253, 51.5010),
		PointFeature(`{"CommonName":"Farfield","TFL":false,"RAIL":true}`, -0.1276, 52.0000),
	)
}

// Sources returns every fixture keyed by dataset.
func Sources() map[spatial.Kind][]byte {
	return map[spatial.Kind][]byte{
		spatial.KindBoroughs:  []byte(Boroughs()),
		spatial.KindNoise:     []byte(Noise()),
		spatial.KindFareZones: []byte(FareZones()),
		spatial.KindStations:  []byte(Stations()),
	}
}

// WriteDir writes every fixture to a fresh temporary directory using the
// default file names and returns it.
func WriteDir(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	files := spatial.DefaultFiles()
	for kind, data := range Sources() {
		if err := os.WriteFile(filepath.Join(dir, files[kind]), data, 0o644); err != nil {
			t.Fatalf("writing %s fixture: %v", kind, err)
		}
	}
	return dir
}

// Context builds a ReferenceContext from the fixtures.
func Context(t testing.TB) *spatial.ReferenceContext {
	t.Helper()
	ref, err := spatial.Build(Sources(), spatial.LoadOptions{})
	if err != nil {
		t.Fatalf("building reference context: %v", err)
	}
	return ref
}
