package services

import "errors"

var (
	// ErrDuplicateEmail is returned when registering an email that is taken.
	ErrDuplicateEmail = errors.New("email already exists")

	// ErrInvalidCredentials is returned when the password does not match.
	ErrInvalidCredentials = errors.New("password incorrect")

	// ErrForbidden is returned when the caller may not act on the target.
	ErrForbidden = errors.New("forbidden")

	// ErrMedia wraps failures reported by the media host.
	ErrMedia = errors.New("media host error")
)

// ValidationError carries field-keyed messages for a rejected payload.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

func newValidationError(fields map[string]string) error {
	return &ValidationError{Fields: fields}
}
