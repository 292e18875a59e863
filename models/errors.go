package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFileNotFound is returned by the loader when an input file does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrNoSharedKey is returned when a join key is absent from one of the inputs.
	ErrNoSharedKey = errors.New("join key not present in both datasets")
)

// MissingColumnError reports columns a computation needs but the dataset lacks.
type MissingColumnError struct {
	Dataset string
	Columns []string
}

func (e *MissingColumnError) Error() string {
	if e.Dataset == "" {
		return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
	}
	return fmt.Sprintf("%s: missing required columns: %s", e.Dataset, strings.Join(e.Columns, ", "))
}

// IsMissingColumn reports whether err wraps a MissingColumnError.
func IsMissingColumn(err error) bool {
	var mc *MissingColumnError
	return errors.As(err, &mc)
}
