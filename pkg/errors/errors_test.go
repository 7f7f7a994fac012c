package errors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/zatekoja/sheetfeedback/pkg/errors"
)

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "VALIDATION: rating required", apperrors.NewValidationError("rating required").Error())

	cause := errors.New("quota exceeded")
	err := apperrors.NewInternalError("failed to write feedback", cause)
	assert.Equal(t, "INTERNAL: failed to write feedback: quota exceeded", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestIsType_WrappedChain(t *testing.T) {
	base := apperrors.NewConflictError("feedback already submitted")
	wrapped := fmt.Errorf("submit: %w", base)

	assert.True(t, apperrors.IsType(wrapped, apperrors.ErrorTypeConflict))
	assert.False(t, apperrors.IsType(wrapped, apperrors.ErrorTypeValidation))
	assert.False(t, apperrors.IsType(errors.New("plain"), apperrors.ErrorTypeConflict))

	appErr, ok := apperrors.As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "feedback already submitted", appErr.Message)
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperrors.NewValidationError("rating required"), http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", apperrors.NewConflictError("dup")), http.StatusConflict},
		{apperrors.NewUnavailableError("store down", errors.New("dial")), http.StatusServiceUnavailable},
		{apperrors.NewExternalError("sheets", errors.New("403")), http.StatusBadGateway},
		{apperrors.NewInternalError("boom", nil), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, apperrors.StatusCode(tt.err), tt.err.Error())
	}
}
