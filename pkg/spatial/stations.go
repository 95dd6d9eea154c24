package spatial

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/rubiojr/rentgeo/pkg/geo"
)

// stationTolerance is the half-side, in metres, of the box each station
// occupies in the tree. Tree distances are therefore exact to within a
// millimetre; reported distances are recomputed from the projected points.
const stationTolerance = 1e-3

// StationProperties names the attribute columns of the station layer.
type StationProperties struct {
	Name string `yaml:"name"`
	TFL  string `yaml:"tfl"`
	Rail string `yaml:"rail"`
}

// DefaultStationProperties matches the rail_tfl dataset.
func DefaultStationProperties() StationProperties {
	return StationProperties{Name: "CommonName", TFL: "TFL", Rail: "RAIL"}
}

func (p StationProperties) withDefaults() StationProperties {
	d := DefaultStationProperties()
	if p.Name == "" {
		p.Name = d.Name
	}
	if p.TFL == "" {
		p.TFL = d.TFL
	}
	if p.Rail == "" {
		p.Rail = d.Rail
	}
	return p
}

// Station is a station with its planar position in the index projection.
type Station struct {
	Name     string
	TFL      bool
	Rail     bool
	Position geo.Coordinate
	X, Y     float64
}

// NearestStation is one entry of a nearest-stations result.
type NearestStation struct {
	DistanceMiles float64 `json:"distance_miles"`
	Name          string  `json:"name"`
	TFL           bool    `json:"TFL"`
	Rail          bool    `json:"RAIL"`
}

// StationIndex answers k-nearest-station queries. Stations are projected to
// the UTM zone covering the centre of the dataset so Euclidean distance
// approximates ground distance.
type StationIndex struct {
	proj     *geo.TransverseMercator
	stations []Station
	tree     *rtreego.Rtree
}

type stationEntry struct {
	index int
	rect  rtreego.Rect
}

func (e *stationEntry) Bounds() rtreego.Rect { return e.rect }

// NewStationIndex projects a point layer and bulk loads it into an R-tree.
func NewStationIndex(l *Layer, props StationProperties) (*StationIndex, error) {
	if l.Len() == 0 {
		return nil, errors.New("station layer is empty")
	}
	props = props.withDefaults()

	center := l.Bound.Center()
	proj, err := geo.NewUTM(geo.UTMZoneFor(geo.Coordinate{Lat: center.Lat(), Lon: center.Lon()}))
	if err != nil {
		return nil, err
	}

	idx := &StationIndex{
		proj:     proj,
		stations: make([]Station, 0, l.Len()),
	}
	objs := make([]rtreego.Spatial, 0, l.Len())
	for i, f := range l.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			return nil, fmt.Errorf("feature %d is a %s, expected Point", f.Index, f.Geometry.GeoJSONType())
		}
		pos := geo.Coordinate{Lat: pt.Lat(), Lon: pt.Lon()}
		x, y := proj.Forward(pos)

		idx.stations = append(idx.stations, Station{
			Name:     f.Properties.MustString(props.Name, ""),
			TFL:      flag(f.Properties, props.TFL),
			Rail:     flag(f.Properties, props.Rail),
			Position: pos,
			X:        x,
			Y:        y,
		})
		objs = append(objs, &stationEntry{index: i, rect: rtreego.Point{x, y}.ToRect(stationTolerance)})
	}
	idx.tree = rtreego.NewTree(2, treeMinChildren, treeMaxChildren, objs...)

	return idx, nil
}

// Projection returns the planar projection used by the index.
func (s *StationIndex) Projection() *geo.TransverseMercator { return s.proj }

// Len returns the number of indexed stations.
func (s *StationIndex) Len() int { return len(s.stations) }

// Nearest returns up to k stations closest to c, nearest first, dropping any
// farther than maxDistanceMeters. Equal distances keep tree traversal order.
func (s *StationIndex) Nearest(c geo.Coordinate, k int, maxDistanceMeters float64) []NearestStation {
	if k <= 0 {
		return []NearestStation{}
	}

	x, y := s.proj.Forward(c)
	hits := s.tree.NearestNeighbors(k, rtreego.Point{x, y})

	type candidate struct {
		station  *Station
		distance float64
	}
	candidates := make([]candidate, 0, len(hits))
	for _, h := range hits {
		if h == nil {
			continue
		}
		st := &s.stations[h.(*stationEntry).index]
		candidates = append(candidates, candidate{station: st, distance: math.Hypot(st.X-x, st.Y-y)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	result := make([]NearestStation, 0, len(candidates))
	for _, cand := range candidates {
		if cand.distance > maxDistanceMeters {
			continue
		}
		result = append(result, NearestStation{
			DistanceMiles: cand.distance / geo.MetersPerMile,
			Name:          cand.station.Name,
			TFL:           cand.station.TFL,
			Rail:          cand.station.Rail,
		})
	}
	return result
}

// flag reads a boolean-like attribute. Numbers are true when non-zero.
func flag(props geojson.Properties, key string) bool {
	switch v := props[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "y", "t":
			return true
		}
	}
	return false
}
