package errors

import "fmt"

// MountError is a chainable mount-time failure: every sentinel in this
// package implements it, and every WithMessage/WrapError call returns one
// that still unwraps to the original sentinel.
type MountError interface {
	error
	WithMessage(message string) MountError
	WrapError(err error) MountError
}

// -----------------------------------------------------------------------------

type annotatedMountError struct {
	message       string
	originalError error
}

// Error implements the `error` object interface. When called, it returns a string
// describing the error.
func (e annotatedMountError) Error() string {
	return e.message
}

func (e annotatedMountError) WithMessage(message string) MountError {
	return annotatedMountError{
		message:       fmt.Sprintf("%s: %s", e.message, message),
		originalError: e,
	}
}

func (e annotatedMountError) WrapError(err error) MountError {
	return annotatedMountError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: fmt.Errorf("%w: %w", e, err),
	}
}

func (e annotatedMountError) Unwrap() error {
	return e.originalError
}
