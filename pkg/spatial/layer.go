// Package spatial loads the reference datasets (borough boundaries, noise
// hexagons, fare zones and stations) and answers containment and
// nearest-station queries over them.
package spatial

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"

	"github.com/rubiojr/rentgeo/pkg/geo"
)

// Kind names one of the reference datasets.
type Kind string

const (
	KindBoroughs  Kind = "boroughs"
	KindNoise     Kind = "noise"
	KindFareZones Kind = "fare_zones"
	KindStations  Kind = "stations"
)

// Kinds lists every dataset required to build a ReferenceContext.
var Kinds = []Kind{KindBoroughs, KindNoise, KindFareZones, KindStations}

// ParseKind returns the Kind with the given name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown dataset kind %q", s)
}

func (k Kind) wantsPoints() bool { return k == KindStations }

// Feature is one geometry of a layer with its attribute columns. Index is the
// position of the feature in the source file.
type Feature struct {
	Index      int
	Geometry   orb.Geometry
	Properties geojson.Properties
}

// Layer is an immutable collection of features in WGS84 lon/lat, kept in
// storage order.
type Layer struct {
	Kind     Kind
	Features []Feature
	Bound    orb.Bound
}

// Len returns the number of features in the layer.
func (l *Layer) Len() int { return len(l.Features) }

type crsMember struct {
	CRS *struct {
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
	} `json:"crs"`
}

// DecodeLayer parses a GeoJSON FeatureCollection and normalises it to WGS84.
// Area layers must hold polygons, the station layer must hold points.
func DecodeLayer(kind Kind, data []byte) (*Layer, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("error decoding GeoJSON: %w", err)
	}
	if len(fc.Features) == 0 {
		return nil, errors.New("feature collection is empty")
	}

	var member crsMember
	if err := json.Unmarshal(data, &member); err != nil {
		return nil, fmt.Errorf("error decoding crs member: %w", err)
	}
	var toWGS84 orb.Projection
	if member.CRS != nil {
		toWGS84, err = projectionFor(member.CRS.Properties.Name)
		if err != nil {
			return nil, err
		}
	}

	layer := &Layer{
		Kind:     kind,
		Features: make([]Feature, 0, len(fc.Features)),
	}
	for i, f := range fc.Features {
		if f.Geometry == nil {
			return nil, fmt.Errorf("feature %d has no geometry", i)
		}
		g := f.Geometry
		if toWGS84 != nil {
			g = project.Geometry(g, toWGS84)
		}
		if err := checkGeometry(kind, g); err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}

		props := f.Properties
		if props == nil {
			props = geojson.Properties{}
		}
		layer.Features = append(layer.Features, Feature{Index: i, Geometry: g, Properties: props})

		if i == 0 {
			layer.Bound = g.Bound()
		} else {
			layer.Bound = layer.Bound.Union(g.Bound())
		}
	}

	return layer, nil
}

// projectionFor maps a GeoJSON "crs" name to a projection into WGS84. A nil
// projection means the data already is WGS84. Any EPSG code known to the
// geo package is accepted, so British National Grid (EPSG:27700) exports load
// without a separate conversion step.
func projectionFor(name string) (orb.Projection, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if strings.HasSuffix(upper, "CRS84") {
		return nil, nil
	}

	code := upper
	if i := strings.LastIndex(upper, ":"); i >= 0 {
		code = upper[i+1:]
	}
	switch code {
	case "4326":
		return nil, nil
	case "3857", "900913", "3785":
		return project.Mercator.ToWGS84, nil
	}

	epsg, err := strconv.Atoi(code)
	if err != nil {
		return nil, fmt.Errorf("unsupported coordinate reference system %q", name)
	}
	transform, err := geo.ToWGS84(epsg)
	if err != nil {
		return nil, fmt.Errorf("unsupported coordinate reference system %q: %w", name, err)
	}
	return func(p orb.Point) orb.Point {
		lon, lat := transform(p[0], p[1])
		return orb.Point{lon, lat}
	}, nil
}

func checkGeometry(kind Kind, g orb.Geometry) error {
	switch g.(type) {
	case orb.Point:
		if !kind.wantsPoints() {
			return fmt.Errorf("unexpected point geometry in %s layer", kind)
		}
	case orb.Polygon, orb.MultiPolygon:
		if kind.wantsPoints() {
			return fmt.Errorf("unexpected %s geometry in %s layer", g.GeoJSONType(), kind)
		}
	default:
		return fmt.Errorf("unsupported geometry type %s", g.GeoJSONType())
	}

	b := g.Bound()
	if b.Min.Lon() < -180 || b.Max.Lon() > 180 || b.Min.Lat() < -90 || b.Max.Lat() > 90 {
		return fmt.Errorf("coordinates outside WGS84 range: %v", b)
	}
	return nil
}
