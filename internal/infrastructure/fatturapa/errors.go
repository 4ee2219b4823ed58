package fatturapa

import "fmt"

// ParseError is returned for malformed XML or values the tract forbids.
// The importer logs it and skips the file.
type ParseError struct {
	File string
	Err  error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("fatturapa: %v", e.Err)
	}
	return fmt.Sprintf("fatturapa: %s: %v", e.File, e.Err)
}

// Unwrap returns the underlying cause
func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnsupportedTypeError is returned for document types other than TD01/TD24.
// It is informational, not a failure: the importer skips the file.
type UnsupportedTypeError struct {
	TypeCode string
}

// Error implements the error interface
func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("fatturapa: unsupported document type %q", e.TypeCode)
}
