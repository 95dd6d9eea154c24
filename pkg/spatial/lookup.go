package spatial

import (
	"fmt"
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/rubiojr/rentgeo/pkg/geo"
)

const (
	treeMinChildren = 4
	treeMaxChildren = 16
	// minRectSide keeps degenerate bounds acceptable to rtreego.
	minRectSide = 1e-9
)

// SpatialLookup answers point containment queries against a layer.
//
// Containment is planar point-in-polygon on lon/lat. When several features
// contain the point, including a point on an edge shared by two neighbours,
// the one with the lowest storage index wins. A point covered by no feature
// yields false, which callers treat as a coverage gap rather than an error.
//
// Points on a polygon boundary count as inside. A strict "within" predicate
// would leave them unmatched, so listings geocoded exactly onto a borough or
// zone edge resolve here where such a join reports a gap.
type SpatialLookup interface {
	Lookup(c geo.Coordinate) (Feature, bool)
	Len() int
}

// PolygonLayer implements SpatialLookup with an R-tree bounding box
// prefilter followed by exact containment tests.
type PolygonLayer struct {
	layer *Layer
	tree  *rtreego.Rtree
}

type boundEntry struct {
	index int
	rect  rtreego.Rect
}

func (e *boundEntry) Bounds() rtreego.Rect { return e.rect }

// NewPolygonLayer indexes a polygon layer.
func NewPolygonLayer(l *Layer) (*PolygonLayer, error) {
	objs := make([]rtreego.Spatial, 0, len(l.Features))
	for i, f := range l.Features {
		rect, err := boundRect(f.Geometry.Bound())
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", f.Index, err)
		}
		objs = append(objs, &boundEntry{index: i, rect: rect})
	}

	return &PolygonLayer{
		layer: l,
		tree:  rtreego.NewTree(2, treeMinChildren, treeMaxChildren, objs...),
	}, nil
}

// Layer returns the indexed layer.
func (p *PolygonLayer) Layer() *Layer { return p.layer }

// Len returns the number of polygons.
func (p *PolygonLayer) Len() int { return p.layer.Len() }

// Lookup returns the first feature, in storage order, containing c.
func (p *PolygonLayer) Lookup(c geo.Coordinate) (Feature, bool) {
	pt := orb.Point{c.Lon, c.Lat}
	if !p.layer.Bound.Contains(pt) {
		return Feature{}, false
	}

	hits := p.tree.SearchIntersect(rtreego.Point{c.Lon, c.Lat}.ToRect(minRectSide))
	candidates := make([]int, 0, len(hits))
	for _, h := range hits {
		candidates = append(candidates, h.(*boundEntry).index)
	}
	sort.Ints(candidates)

	for _, i := range candidates {
		f := p.layer.Features[i]
		if contains(f.Geometry, pt) {
			return f, true
		}
	}
	return Feature{}, false
}

func contains(g orb.Geometry, pt orb.Point) bool {
	switch g := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, pt)
	}
	return false
}

func boundRect(b orb.Bound) (rtreego.Rect, error) {
	lengths := []float64{
		math.Max(b.Max.X()-b.Min.X(), minRectSide),
		math.Max(b.Max.Y()-b.Min.Y(), minRectSide),
	}
	return rtreego.NewRect(rtreego.Point{b.Min.X(), b.Min.Y()}, lengths)
}
