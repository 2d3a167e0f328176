package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/relvacode/gofat/errors"
	"github.com/stretchr/testify/assert"
)

func TestFatErrorWithMessage(t *testing.T) {
	newErr := errors.ErrCorruptBootSector.WithMessage("sector 6 unreadable")
	assert.Equal(
		t,
		"boot sector signature invalid on both primary and backup copies: sector 6 unreadable",
		newErr.Error(),
	)
	assert.ErrorIs(t, newErr, errors.ErrCorruptBootSector)
}

func TestFatErrorWrap(t *testing.T) {
	originalErr := stderrors.New("short read")
	newErr := errors.ErrOpenFailed.WrapError(originalErr)

	assert.ErrorIs(t, newErr, originalErr)
}
