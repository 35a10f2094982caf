package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOfWrappedError(t *testing.T) {
	base := InvalidState("submission already validated", nil).WithOperation("Validate")
	wrapped := fmt.Errorf("handler: %w", base)

	assert.Equal(t, ErrCodeInvalidState, CodeOf(wrapped))
	assert.True(t, Is(wrapped, ErrCodeInvalidState))
	assert.False(t, Is(wrapped, ErrCodeNotFound))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, "", CodeOf(stderrors.New("boom")))
	assert.Equal(t, "", CodeOf(nil))
}

func TestAppErrorMessage(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := DatabaseError("failed to load submission", cause)

	assert.Equal(t, "DATABASE_ERROR: failed to load submission (caused by: connection refused)", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.NotEmpty(t, err.File)
}
