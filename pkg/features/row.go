package features

import (
	"encoding/json"
	"reflect"

	"github.com/rubiojr/rentgeo/pkg/geo"
)

// Input field names.
const (
	FieldLatitude  = "latitude"
	FieldLongitude = "longitude"
)

// Row is one property listing. Fields other than latitude, longitude and
// deposit are passed through untouched.
type Row map[string]any

// Coordinate extracts and validates the row's latitude and longitude.
func (r Row) Coordinate() (geo.Coordinate, error) {
	lat, err := coordinateField(r, FieldLatitude)
	if err != nil {
		return geo.Coordinate{}, err
	}
	lon, err := coordinateField(r, FieldLongitude)
	if err != nil {
		return geo.Coordinate{}, err
	}

	c := geo.Coordinate{Lat: lat, Lon: lon}
	if err := c.Validate(); err != nil {
		return geo.Coordinate{}, &MalformedInputError{Field: "coordinate", Value: c, Reason: err.Error()}
	}
	return c, nil
}

func coordinateField(r Row, field string) (float64, error) {
	v, ok := r[field]
	if !ok || v == nil {
		return 0, &MalformedInputError{Field: field, Value: v, Reason: "missing"}
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, &MalformedInputError{Field: field, Value: v, Reason: "not numeric"}
	}
	return f, nil
}

// toFloat converts numeric values. Booleans and strings are not numbers.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case bool, string:
		return 0, false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// CoerceDeposit maps a raw deposit value to a boolean: true for boolean true
// and for any non-zero number, false for everything else (zero, strings,
// nil, false). NaN is non-zero and therefore true.
func CoerceDeposit(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	f, ok := toFloat(v)
	if !ok {
		return false
	}
	return f != 0
}

// Merge returns a new row with the fields of row, the coerced deposit and
// every key of rec. The input row is not modified.
func Merge(row Row, rec FeatureRecord) Row {
	out := make(Row, len(row)+len(rec)+1)
	for k, v := range row {
		out[k] = v
	}
	out[KeyDeposit] = CoerceDeposit(row[KeyDeposit])
	for k, v := range rec {
		out[k] = v
	}
	return out
}

func enrich(row Row, features func(geo.Coordinate) FeatureRecord) (Row, error) {
	c, err := row.Coordinate()
	if err != nil {
		return nil, err
	}
	return Merge(row, features(c)), nil
}
