package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_StatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"validation", Validation("bad input", nil), http.StatusBadRequest},
		{"invalid state", InvalidState("already approved"), http.StatusConflict},
		{"conflict", Conflict("email taken", nil), http.StatusConflict},
		{"not found", NotFound("application", nil), http.StatusNotFound},
		{"provisioning", Provisioning(stderrors.New("boom")), http.StatusInternalServerError},
		{"unauthorized", Unauthorized(nil), http.StatusUnauthorized},
		{"forbidden", Forbidden(nil), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}

func TestIs_WalksWrappedChain(t *testing.T) {
	inner := Conflict("email already registered", nil)
	outer := Provisioning(fmt.Errorf("create doctor account: %w", inner))
	wrapped := fmt.Errorf("approve: %w", outer)

	assert.True(t, Is(wrapped, ErrProvisioning))
	assert.True(t, Is(wrapped, ErrConflict))
	assert.False(t, Is(wrapped, ErrValidation))
	assert.False(t, Is(stderrors.New("plain"), ErrInternal))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrInvalidState, CodeOf(fmt.Errorf("x: %w", InvalidState("nope"))))
	assert.Equal(t, ErrInternal, CodeOf(stderrors.New("plain")))
}

func TestAppError_ErrorIncludesCause(t *testing.T) {
	err := Validation("invalid submission", stderrors.New("admin_email must be a valid email"))
	assert.Equal(t, "invalid submission: admin_email must be a valid email", err.Error())
	assert.Equal(t, "already approved", InvalidState("already approved").Error())
}
