package spatial

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DatasetFiles maps each dataset to its file name inside the data directory.
type DatasetFiles map[Kind]string

// DefaultFiles returns the standard file names of the reference datasets.
func DefaultFiles() DatasetFiles {
	return DatasetFiles{
		KindBoroughs:  "london_boroughs.geojson",
		KindNoise:     "noise.geojson",
		KindFareZones: "zone_fares.geojson",
		KindStations:  "rail_tfl.geojson",
	}
}

// LoadOptions configures how a ReferenceContext is built.
type LoadOptions struct {
	Files    DatasetFiles
	Stations StationProperties
}

// ReferenceContext holds the four indexed reference datasets. It is built
// once and never mutated, so it can be shared freely between goroutines. To
// reload data build a new context and swap the reference.
type ReferenceContext struct {
	Boroughs  *PolygonLayer
	Noise     *PolygonLayer
	FareZones *PolygonLayer
	Stations  *StationIndex

	builtAt time.Time
}

// Load reads every dataset from dir and builds a ReferenceContext. Any
// missing or invalid dataset fails the whole load with a *DataLoadError.
func Load(dir string, opts LoadOptions) (*ReferenceContext, error) {
	sources, err := ReadSources(dir, opts.Files)
	if err != nil {
		return nil, err
	}
	files := opts.Files.resolve()
	return build(sources, opts, func(k Kind) string { return filepath.Join(dir, files[k]) })
}

// ReadSources reads the raw dataset documents from dir.
func ReadSources(dir string, files DatasetFiles) (map[Kind][]byte, error) {
	files = files.resolve()
	sources := make(map[Kind][]byte, len(Kinds))
	for _, kind := range Kinds {
		path := filepath.Join(dir, files[kind])
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &DataLoadError{Kind: kind, Path: path, Err: err}
		}
		sources[kind] = data
	}
	return sources, nil
}

// resolve fills unset entries with the default file names.
func (f DatasetFiles) resolve() DatasetFiles {
	files := DefaultFiles()
	for kind, name := range f {
		if name != "" {
			files[kind] = name
		}
	}
	return files
}

// Build creates a ReferenceContext from raw GeoJSON documents, one per Kind.
func Build(sources map[Kind][]byte, opts LoadOptions) (*ReferenceContext, error) {
	return build(sources, opts, func(Kind) string { return "" })
}

func build(sources map[Kind][]byte, opts LoadOptions, pathOf func(Kind) string) (*ReferenceContext, error) {
	layers := make(map[Kind]*Layer, len(Kinds))
	for _, kind := range Kinds {
		data, ok := sources[kind]
		if !ok {
			return nil, &DataLoadError{Kind: kind, Path: pathOf(kind), Err: errors.New("dataset not provided")}
		}
		layer, err := DecodeLayer(kind, data)
		if err != nil {
			return nil, &DataLoadError{Kind: kind, Path: pathOf(kind), Err: err}
		}
		layers[kind] = layer
	}

	ref := &ReferenceContext{builtAt: time.Now()}

	var err error
	if ref.Boroughs, err = NewPolygonLayer(layers[KindBoroughs]); err != nil {
		return nil, &DataLoadError{Kind: KindBoroughs, Path: pathOf(KindBoroughs), Err: err}
	}
	if ref.Noise, err = NewPolygonLayer(layers[KindNoise]); err != nil {
		return nil, &DataLoadError{Kind: KindNoise, Path: pathOf(KindNoise), Err: err}
	}
	if ref.FareZones, err = NewPolygonLayer(layers[KindFareZones]); err != nil {
		return nil, &DataLoadError{Kind: KindFareZones, Path: pathOf(KindFareZones), Err: err}
	}
	if ref.Stations, err = NewStationIndex(layers[KindStations], opts.Stations); err != nil {
		return nil, &DataLoadError{Kind: KindStations, Path: pathOf(KindStations), Err: err}
	}

	return ref, nil
}

// BuiltAt returns when the context was constructed.
func (r *ReferenceContext) BuiltAt() time.Time { return r.builtAt }

// Summary returns the number of features per dataset.
func (r *ReferenceContext) Summary() map[Kind]int {
	return map[Kind]int{
		KindBoroughs:  r.Boroughs.Len(),
		KindNoise:     r.Noise.Len(),
		KindFareZones: r.FareZones.Len(),
		KindStations:  r.Stations.Len(),
	}
}

func (r *ReferenceContext) String() string {
	return fmt.Sprintf("boroughs=%d noise=%d fare_zones=%d stations=%d (%s)",
		r.Boroughs.Len(), r.Noise.Len(), r.FareZones.Len(), r.Stations.Len(), r.Stations.Projection())
}
