package domain

import "errors"

var (
	// ErrInvalidInput is returned when a create request is missing its URL or carries a malformed code.
	ErrInvalidInput = errors.New("invalid input")
	// ErrCodeConflict is returned when the requested code is already live.
	ErrCodeConflict = errors.New("code already exists")
	// ErrGenerationExhausted is returned when every generated candidate collided.
	ErrGenerationExhausted = errors.New("code generation exhausted")
	// ErrNotFound is returned for codes that are not live.
	ErrNotFound = errors.New("not found")
)

// IsNotFound reports whether err is a not-found condition.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err indicates a uniqueness conflict.
func IsConflict(err error) bool { return errors.Is(err, ErrCodeConflict) }
