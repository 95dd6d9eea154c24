package features

import (
	"fmt"
	"slices"
)

// ModelContract is the ordered list of feature names the price model
// consumes. Numerical features come first, then categorical ones.
type ModelContract struct {
	Numerical   []string `yaml:"numerical_features"`
	Categorical []string `yaml:"categorical_features"`
}

// DefaultContract returns the feature lists of the trained rent price model.
func DefaultContract() ModelContract {
	return ModelContract{
		Numerical: []string{
			"latitude", "longitude",
			KeyDistanceToCenter, KeyAngleFromCenter,
			StationDistanceKey(1), StationDistanceKey(2), StationDistanceKey(3),
		},
		Categorical: []string{
			"bedrooms", "bathrooms", KeyDeposit, KeyZone, KeyBorough, "propertyType",
			"furnishType", KeyNoiseClass, "letType", TFLKey(1), TFLKey(2), TFLKey(3),
			RailKey(1), RailKey(2), RailKey(3),
		},
	}
}

// DefaultPassthrough lists the raw input fields the model reads unchanged.
func DefaultPassthrough() []string {
	return []string{"latitude", "longitude", "propertyType", "letType", "furnishType", "bedrooms", "bathrooms"}
}

// Features returns the full ordered feature list.
func (m ModelContract) Features() []string {
	return append(slices.Clone(m.Numerical), m.Categorical...)
}

// Validate checks the contract against the records emitted for k stations.
// Every model feature must be an emitted key, the deposit flag or a
// pass-through input field, and every emitted key must be consumed.
func (m ModelContract) Validate(k int, passthrough []string) error {
	emitted := Keys(k)
	wanted := m.Features()

	var drift SchemaDriftError
	for _, f := range wanted {
		if !slices.Contains(emitted, f) && f != KeyDeposit && !slices.Contains(passthrough, f) {
			drift.Missing = append(drift.Missing, f)
		}
	}
	for _, key := range emitted {
		if !slices.Contains(wanted, key) {
			drift.Unused = append(drift.Unused, key)
		}
	}

	if len(drift.Missing) > 0 || len(drift.Unused) > 0 {
		return &drift
	}
	return nil
}

// Vector returns the row values in model feature order.
func (m ModelContract) Vector(row Row) ([]any, error) {
	features := m.Features()
	out := make([]any, len(features))
	for i, f := range features {
		v, ok := row[f]
		if !ok {
			return nil, fmt.Errorf("%w: row has no %q", ErrSchemaDrift, f)
		}
		out[i] = v
	}
	return out, nil
}
