package dataprocessing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingColumns is wrapped by DataLoadError when required columns are absent.
var ErrMissingColumns = errors.New("required columns missing")

// ErrNoYears is wrapped by DataLoadError when no row has a parseable publish_time.
var ErrNoYears = errors.New("no parseable publish_time values")

// DataLoadError reports a fatal failure to produce a cleaned table.
type DataLoadError struct {
	Path string
	Op   string
	Err  error
}

func (e *DataLoadError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Path != "" {
		fmt.Fprintf(&b, " %s", e.Path)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// IsDataLoadError reports whether err carries a DataLoadError.
func IsDataLoadError(err error) bool {
	var dle *DataLoadError
	return errors.As(err, &dle)
}

func missingColumnsError(cols []string) error {
	return &DataLoadError{
		Op:  "clean",
		Err: fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(cols, ", ")),
	}
}
