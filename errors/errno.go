// Package errors defines the chainable sentinel errors a mount can fail
// with. Runtime lookup failures are never represented this way -- they
// surface as plain (value, bool) absence, per the core's error handling
// design.
package errors

import (
	"fmt"
)

// FatError is a sentinel mount-time failure kind. Values of this type
// support errors.Is because WithMessage/WrapError retain the sentinel as
// the Unwrap() target.
type FatError string

const ErrOpenFailed = FatError("backing image unreachable")
const ErrCorruptBootSector = FatError("boot sector signature invalid on both primary and backup copies")
const ErrGeometryInconsistent = FatError("volume geometry is inconsistent with the image")
const ErrUnsupportedValue = FatError("BPB field has a value outside the values the FAT spec allows")

func (e FatError) Error() string {
	return string(e)
}

func (e FatError) WithMessage(message string) MountError {
	return annotatedMountError{
		message:       fmt.Sprintf("%s: %s", string(e), message),
		originalError: e,
	}
}

func (e FatError) WrapError(err error) MountError {
	return annotatedMountError{
		message:       fmt.Sprintf("%s: %s", string(e), err.Error()),
		originalError: fmt.Errorf("%w: %w", e, err),
	}
}
