// Package sources extracts company records and profile text from the startup
// directory and from public network-profile pages.
package sources

import "fmt"

// ParseError reports that an expected element was missing from a page.
type ParseError struct {
	URL   string
	Field string
	Cause error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error for %s: field %s: %v", e.URL, e.Field, e.Cause)
	}
	return fmt.Sprintf("parse error for %s: field %s not found", e.URL, e.Field)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
