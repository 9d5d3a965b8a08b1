package reconstruct

import (
	"errors"
	"fmt"

	"github.com/bft-labs/ladcache/internal/domain"
)

// ConversionError reports a stored record that could not be rebuilt into a
// domain value. It matches domain.ErrConversion and its cause.
type ConversionError struct {
	Kind     domain.Kind
	EntityID string

	// Field names the raw field that failed, e.g. "lst" or "dn".
	Field string
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %s %q: %s: %v", e.Kind, e.EntityID, e.Field, e.Err)
}

func (e *ConversionError) Unwrap() []error {
	return []error{domain.ErrConversion, e.Err}
}

var errMissing = errors.New("missing")
