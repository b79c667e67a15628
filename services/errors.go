package services

import (
	"errors"
	"fmt"
)

var (
	errNoNumber = errors.New("no numeric content")
	errNegative = errors.New("negative value")
	errMissing  = errors.New("field missing")
	errNoDigits = errors.New("no digits")
)

// ParseError reports a required field that could not be converted to its
// typed form. Row is the zero-based position in the deduplicated input.
type ParseError struct {
	Row   int
	URL   string
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("parse %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("row %d (%s): parse %s %q: %v", e.Row, e.URL, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError reports a locality string with an unsupported segment count.
type SchemaError struct {
	Row      int
	URL      string
	Value    string
	Segments int
}

func (e *SchemaError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("unsupported locality %q: %d segments, want 3 or 4", e.Value, e.Segments)
	}
	return fmt.Sprintf("row %d (%s): unsupported locality %q: %d segments, want 3 or 4",
		e.Row, e.URL, e.Value, e.Segments)
}

// LookupFailure is a non-fatal geocoding or routing failure for one listing.
type LookupFailure struct {
	Stage   string // "geocode" or "route"
	Address string
	Err     error
}

func (e *LookupFailure) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Stage, e.Address, e.Err)
}

func (e *LookupFailure) Unwrap() error { return e.Err }

// withRow stamps the row position onto a field-level parse or schema error.
func withRow(err error, row int, url string) error {
	var pe *ParseError
	if errors.As(err, &pe) {
		pe.Row, pe.URL = row, url
		return pe
	}
	var se *SchemaError
	if errors.As(err, &se) {
		se.Row, se.URL = row, url
		return se
	}
	return err
}
