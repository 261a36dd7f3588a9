package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Codes(t *testing.T) {
	err := NewError(CodeValidationFailed, "missing content")

	assert.Equal(t, CodeValidationFailed, CodeOf(err))
	assert.True(t, IsCode(err, CodeValidationFailed))
	assert.False(t, IsCode(err, CodeNotFound))
	assert.Contains(t, err.Error(), "validation_failed")
	assert.Contains(t, err.Error(), "missing content")
}

func TestError_Wrapping(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapError(CodeInternal, cause, "persist job")

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Contains(t, err.Error(), "persist job")
	assert.Contains(t, err.Error(), "disk full")

	// Code survives further wrapping with %w.
	outer := fmt.Errorf("submit: %w", err)
	assert.Equal(t, CodeInternal, CodeOf(outer))
}

func TestCodeOf_Unclassified(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestIsCode_Nil(t *testing.T) {
	assert.False(t, IsCode(nil, CodeInternal))
}

func TestErrorf(t *testing.T) {
	err := Errorf(CodeNotFound, "job not found: %s", "abc")
	assert.Equal(t, CodeNotFound, CodeOf(err))
	assert.Contains(t, err.Error(), "job not found: abc")
}
