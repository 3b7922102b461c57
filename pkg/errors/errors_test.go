package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorWrapsUnknownErrors(t *testing.T) {
	err := FromError(fmt.Errorf("boom"))

	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.EqualError(t, err, "internal server error: boom")
}

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrConflict, "regeneration in progress"))

	err := FromError(wrapped)
	assert.Equal(t, "CONFLICT", err.Code)
	assert.Equal(t, "regeneration in progress", err.Message)
	assert.True(t, IsCode(wrapped, ErrConflict.Code))
	assert.False(t, IsCode(errors.New("plain"), ErrConflict.Code))
}

func TestCloneDoesNotMutateOriginal(t *testing.T) {
	clone := Clone(ErrNotFound, "timetable not generated yet")

	assert.Equal(t, "resource not found", ErrNotFound.Message)
	assert.Equal(t, "timetable not generated yet", clone.Message)
	assert.Nil(t, Clone(nil, "x"))
}
