package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := Upstreamf("mute failed: %d", 500)

	assert.True(t, Is(err, ErrUpstream))
	assert.False(t, Is(err, ErrValidation))

	wrapped := fmt.Errorf("dispatch: %w", err)
	assert.True(t, Is(wrapped, ErrUpstream))
}

func TestError_MessageIncludesCause(t *testing.T) {
	cause := New("connection refused")
	err := Wrap(cause, CodeUpstream, "transcribe failed")

	assert.Equal(t, "transcribe failed: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeValidation, http.StatusBadRequest},
		{CodeConflict, http.StatusConflict},
		{CodeStale, http.StatusConflict},
		{CodeBroken, http.StatusUnprocessableEntity},
		{CodeUpstream, http.StatusBadGateway},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestIsCanceled(t *testing.T) {
	assert.True(t, IsCanceled(context.Canceled))
	assert.True(t, IsCanceled(fmt.Errorf("post: %w", context.Canceled)))
	assert.True(t, IsCanceled(ErrCanceled))
	assert.False(t, IsCanceled(ErrUpstream))
	assert.False(t, IsCanceled(nil))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeValidation, CodeOf(fmt.Errorf("x: %w", Validation("bad"))))
	assert.Equal(t, CodeInternal, CodeOf(New("plain")))
}

func TestWithDetails_DoesNotMutateSentinel(t *testing.T) {
	err := ErrValidation.WithDetails(map[string]string{"start": "is required"})

	assert.NotNil(t, err.Details)
	assert.Nil(t, ErrValidation.Details)
}
