package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"pulseflow/internal/apperr"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"validation", apperr.Validationf("bad %s", "email"), apperr.Validation},
		{"not found", apperr.NotFoundf("user not found"), apperr.NotFound},
		{"forbidden", apperr.Forbiddenf("nope"), apperr.Forbidden},
		{"wrapped", fmt.Errorf("ctx: %w", apperr.NotFoundf("x")), apperr.NotFound},
		{"plain", errors.New("boom"), apperr.RemoteFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperr.KindOf(tt.err))
		})
	}
}

func TestIsMatchesKind(t *testing.T) {
	err := apperr.Validationf("email must be from @pulseflow.com domain")

	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.NotErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "email must be from @pulseflow.com domain", apperr.Message(err))
}

func TestRemoteKeepsClassifiedErrors(t *testing.T) {
	classified := apperr.NotFoundf("board not found")
	assert.Same(t, classified, apperr.Remote("load board", classified))

	cause := errors.New("connection refused")
	wrapped := apperr.Remote("load board", cause)
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, apperr.RemoteFailure, apperr.KindOf(wrapped))
	assert.Nil(t, apperr.Remote("noop", nil))
}
