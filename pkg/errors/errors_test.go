package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	err := fmt.Errorf("resolve: %w", Clone(ErrValidation, "courseId is required"))

	appErr := FromError(err)

	assert.Equal(t, ErrValidation.Code, appErr.Code)
	assert.Equal(t, "courseId is required", appErr.Message)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(stdErrors.New("boom"))

	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.EqualError(t, appErr, "internal server error: boom")
}

func TestIsMatchesByCode(t *testing.T) {
	cause := stdErrors.New("panic: nil map")
	err := CloneWrap(ErrSessionsUnavailable, cause)

	assert.ErrorIs(t, err, ErrSessionsUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrUpstream)
}
