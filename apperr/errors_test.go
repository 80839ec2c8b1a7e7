package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_OrNil(t *testing.T) {
	v := &ValidationError{}
	assert.NoError(t, v.OrNil())

	v.Add("name", "too short")
	v.Add("email", "invalid")
	err := v.OrNil()
	assert.EqualError(t, err, "validation failed: name: too short; email: invalid")
	assert.True(t, IsValidation(fmt.Errorf("wrapped: %w", err)))
}

func TestDependencyError_Unwraps(t *testing.T) {
	root := errors.New("connection refused")
	err := Dependency("insert event", root)
	assert.ErrorIs(t, err, root)
	assert.False(t, IsNotFound(err))
	assert.True(t, IsNotFound(NotFound("contact", "x")))
}
