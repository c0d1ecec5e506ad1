package lifecycle

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced booking, offer or service
	// does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrForbidden is returned when the acting user is not a party to the
	// booking being operated on.
	ErrForbidden = errors.New("not a party to this booking")
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid or missing field: %s", e.Field)
}

// InvalidStateError reports an operation that is not legal for the current
// lifecycle state of a booking or offer.
type InvalidStateError struct {
	Expected string
	Actual   string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state: expected %s, got %s", e.Expected, e.Actual)
}
