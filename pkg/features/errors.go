package features

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedInput matches every *MalformedInputError.
	ErrMalformedInput = errors.New("malformed input row")
	// ErrSchemaDrift matches every *SchemaDriftError.
	ErrSchemaDrift = errors.New("model feature schema drift")
)

// MalformedInputError reports a row whose coordinates cannot be resolved.
type MalformedInputError struct {
	Field  string
	Value  any
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed %s %v: %s", e.Field, e.Value, e.Reason)
}

func (e *MalformedInputError) Is(target error) bool { return target == ErrMalformedInput }

// RowError ties a per-row failure to its position in a batch.
type RowError struct {
	Index int
	Err   error
}

func (e *RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Index, e.Err) }

func (e *RowError) Unwrap() error { return e.Err }

// SchemaDriftError reports a mismatch between the emitted feature keys and
// the feature names the model expects.
type SchemaDriftError struct {
	// Missing are model features nothing provides.
	Missing []string
	// Unused are emitted feature keys the model does not consume.
	Unused []string
}

func (e *SchemaDriftError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unused) > 0 {
		parts = append(parts, "unused "+strings.Join(e.Unused, ", "))
	}
	return "feature schema drift: " + strings.Join(parts, "; ")
}

func (e *SchemaDriftError) Is(target error) bool { return target == ErrSchemaDrift }
