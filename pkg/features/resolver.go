// Package features derives the geo-feature record of a property from its
// coordinates and merges it into the caller's row.
package features

import (
	"strings"

	"github.com/rubiojr/rentgeo/pkg/geo"
	"github.com/rubiojr/rentgeo/pkg/spatial"
)

const (
	DefaultK                        = 3
	DefaultMaxStationDistanceMeters = 50000.0
)

// DefaultCenter is the London reference point distances and bearings are
// measured from.
var DefaultCenter = geo.Coordinate{Lat: 51.5072, Lon: -0.1276}

// Attributes names the attribute columns read from the area layers.
type Attributes struct {
	Borough  string `yaml:"borough"`
	Noise    string `yaml:"noise"`
	FareZone string `yaml:"fare_zone"`
}

// Options configures a Resolver.
type Options struct {
	Center                   geo.Coordinate
	K                        int
	MaxStationDistanceMeters float64
	Attributes               Attributes
}

// DefaultOptions returns the options the price model was trained with.
func DefaultOptions() Options {
	return Options{
		Center:                   DefaultCenter,
		K:                        DefaultK,
		MaxStationDistanceMeters: DefaultMaxStationDistanceMeters,
		Attributes:               Attributes{Borough: "name", Noise: "NoiseClass", FareZone: "Name"},
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Center == (geo.Coordinate{}) {
		o.Center = d.Center
	}
	if o.K <= 0 {
		o.K = d.K
	}
	if o.MaxStationDistanceMeters <= 0 {
		o.MaxStationDistanceMeters = d.MaxStationDistanceMeters
	}
	if o.Attributes.Borough == "" {
		o.Attributes.Borough = d.Attributes.Borough
	}
	if o.Attributes.Noise == "" {
		o.Attributes.Noise = d.Attributes.Noise
	}
	if o.Attributes.FareZone == "" {
		o.Attributes.FareZone = d.Attributes.FareZone
	}
	return o
}

// Resolver answers per-point feature questions against an immutable
// ReferenceContext. It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	ref  *spatial.ReferenceContext
	opts Options
}

// NewResolver binds a reference context. Unset options take their defaults.
func NewResolver(ref *spatial.ReferenceContext, opts Options) *Resolver {
	return &Resolver{ref: ref, opts: opts.withDefaults()}
}

// Options returns the effective options.
func (r *Resolver) Options() Options { return r.opts }

// Reference returns the bound reference context.
func (r *Resolver) Reference() *spatial.ReferenceContext { return r.ref }

// Borough returns the name of the borough containing c, or nil.
func (r *Resolver) Borough(c geo.Coordinate) any {
	return attribute(r.ref.Boroughs, c, r.opts.Attributes.Borough)
}

// NoiseClass returns the noise class of the hexagon containing c, or nil.
func (r *Resolver) NoiseClass(c geo.Coordinate) any {
	return attribute(r.ref.Noise, c, r.opts.Attributes.Noise)
}

// FareZone returns the fare zone containing c, or nil. Labels of the form
// "Zone 3" are reduced to their last token; any other label, including one
// without the word Zone, is returned unchanged.
func (r *Resolver) FareZone(c geo.Coordinate) any {
	v := attribute(r.ref.FareZones, c, r.opts.Attributes.FareZone)
	label, ok := v.(string)
	if !ok || label == "" || !strings.Contains(label, "Zone") {
		return v
	}
	parts := strings.Split(label, " ")
	return parts[len(parts)-1]
}

// BearingToCenter returns the initial bearing, in radians, from the city
// center to c.
func (r *Resolver) BearingToCenter(c geo.Coordinate) float64 {
	return geo.Bearing(r.opts.Center, c)
}

// DistanceToCenter returns the geodesic distance in miles between c and the
// city center.
func (r *Resolver) DistanceToCenter(c geo.Coordinate) float64 {
	return geo.DistanceMiles(c, r.opts.Center)
}

// NearestStations returns up to K stations within the configured radius,
// nearest first.
func (r *Resolver) NearestStations(c geo.Coordinate) []spatial.NearestStation {
	return r.ref.Stations.Nearest(c, r.opts.K, r.opts.MaxStationDistanceMeters)
}

// Resolve computes every point feature of c.
func (r *Resolver) Resolve(c geo.Coordinate) PointFeatures {
	return PointFeatures{
		DistanceToCenter: r.DistanceToCenter(c),
		AngleFromCenter:  r.BearingToCenter(c),
		Zone:             r.FareZone(c),
		Borough:          r.Borough(c),
		NoiseClass:       r.NoiseClass(c),
		Stations:         r.NearestStations(c),
	}
}

// Features resolves c and assembles its FeatureRecord.
func (r *Resolver) Features(c geo.Coordinate) FeatureRecord {
	return Assemble(r.Resolve(c), r.opts.K)
}

// Enrich returns a new row holding the input fields, the coerced deposit and
// the feature record of the row's coordinates.
func (r *Resolver) Enrich(row Row) (Row, error) {
	return enrich(row, r.Features)
}

func attribute(l spatial.SpatialLookup, c geo.Coordinate, key string) any {
	f, ok := l.Lookup(c)
	if !ok {
		return nil
	}
	return f.Properties[key]
}
