package dataset

import (
	"errors"
	"fmt"
)

// ErrNoHeader is returned when the input has no header row.
var ErrNoHeader = errors.New("no header row")

// LoadError indicates the input could not be read as a survey table.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("load %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("load: %v", e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
