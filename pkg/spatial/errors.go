package spatial

import (
	"errors"
	"fmt"
)

// ErrDataLoad matches every *DataLoadError with errors.Is.
var ErrDataLoad = errors.New("reference data load failed")

// DataLoadError reports a reference dataset that is missing, malformed or in
// an unsupported coordinate reference system. It is fatal at startup.
type DataLoadError struct {
	Kind Kind
	Path string
	Err  error
}

func (e *DataLoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("loading %s dataset from %s: %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("loading %s dataset: %v", e.Kind, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

func (e *DataLoadError) Is(target error) bool { return target == ErrDataLoad }
