package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_ErrorMessage(t *testing.T) {
	err := NewValidationError("pipeline.worker_count", ErrInvalidValue)
	assert.Contains(t, err.Error(), "pipeline.worker_count")
	assert.Contains(t, err.Error(), "invalid field value")
}

func TestValidationError_Unwrap(t *testing.T) {
	err := NewValidationError("scene.max_scenes_per_episode", ErrMissingRequiredField)
	assert.True(t, errors.Is(err, ErrMissingRequiredField))
}
