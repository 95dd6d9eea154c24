package features

import (
	"strconv"

	"github.com/rubiojr/rentgeo/pkg/spatial"
)

// Feature record keys.
const (
	KeyDistanceToCenter = "distance_to_center"
	KeyAngleFromCenter  = "angle_from_center"
	KeyZone             = "zone"
	KeyBorough          = "borough"
	KeyNoiseClass       = "NoiseClass"
	KeyDeposit          = "deposit"
)

// StationDistanceKey returns the distance key of the i-th nearest station (1-based).
func StationDistanceKey(i int) string { return "distance_to_station" + strconv.Itoa(i) }

// TFLKey returns the TFL flag key of the i-th nearest station (1-based).
func TFLKey(i int) string { return "TFL" + strconv.Itoa(i) }

// RailKey returns the RAIL flag key of the i-th nearest station (1-based).
func RailKey(i int) string { return "RAIL" + strconv.Itoa(i) }

// Keys returns the ordered key set of every FeatureRecord built for k
// stations. The set never depends on the input.
func Keys(k int) []string {
	keys := []string{KeyDistanceToCenter, KeyAngleFromCenter, KeyZone, KeyBorough, KeyNoiseClass}
	for i := 1; i <= k; i++ {
		keys = append(keys, StationDistanceKey(i), TFLKey(i), RailKey(i))
	}
	return keys
}

// FeatureRecord holds the derived geo-features of one property. Values are
// float64, string, bool or nil.
type FeatureRecord map[string]any

// Clone returns a shallow copy of the record.
func (r FeatureRecord) Clone() FeatureRecord {
	out := make(FeatureRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Values returns the record values in Keys(k) order.
func (r FeatureRecord) Values(k int) []any {
	keys := Keys(k)
	out := make([]any, len(keys))
	for i, key := range keys {
		out[i] = r[key]
	}
	return out
}

// PointFeatures is the raw resolution of one coordinate.
type PointFeatures struct {
	DistanceToCenter float64
	AngleFromCenter  float64
	Zone             any
	Borough          any
	NoiseClass       any
	Stations         []spatial.NearestStation
}

// Assemble converts resolved point features into the fixed-key record for k
// stations. Stations fill slots nearest first; slots past the end of the
// result get a nil distance and false flags; extra stations are dropped.
func Assemble(p PointFeatures, k int) FeatureRecord {
	rec := make(FeatureRecord, 5+3*k)
	rec[KeyDistanceToCenter] = Round6(p.DistanceToCenter)
	rec[KeyAngleFromCenter] = Round6(p.AngleFromCenter)
	rec[KeyZone] = p.Zone
	rec[KeyBorough] = p.Borough
	rec[KeyNoiseClass] = p.NoiseClass

	for i := 1; i <= k; i++ {
		if i <= len(p.Stations) {
			st := p.Stations[i-1]
			rec[StationDistanceKey(i)] = Round6(st.DistanceMiles)
			rec[TFLKey(i)] = st.TFL
			rec[RailKey(i)] = st.Rail
			continue
		}
		rec[StationDistanceKey(i)] = nil
		rec[TFLKey(i)] = false
		rec[RailKey(i)] = false
	}
	return rec
}

// Round6 rounds to 6 decimal places using the correctly rounded decimal
// representation of v.
func Round6(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 6, 64), 64)
	if err != nil {
		return v
	}
	return r
}
