package errs

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeFromStatus(t *testing.T) {
	tests := []struct {
		status int
		code   Code
	}{
		{http.StatusBadRequest, CodeValidation},
		{http.StatusUnprocessableEntity, CodeValidation},
		{http.StatusUnauthorized, CodeUnauthorized},
		{http.StatusForbidden, CodeForbidden},
		{http.StatusNotFound, CodeNotFound},
		{http.StatusConflict, CodeConflict},
		{http.StatusTooManyRequests, CodeRateLimit},
		{http.StatusBadGateway, CodeDependency},
		{http.StatusInternalServerError, CodeInternal},
		{418, CodeInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, CodeFromStatus(tt.status), "status %d", tt.status)
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	assert.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
	assert.True(t, meta.Retryable)
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stdErrors.New("dial tcp: refused")
	err := Wrap(CodeDependency, cause, "")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeDependency, err.Code())
	assert.Equal(t, "DEPENDENCY_ERROR", err.Error())

	assert.Nil(t, Wrap(CodeInternal, nil, "x").Unwrap())
}

func TestAsThroughWrapping(t *testing.T) {
	base := FromResponse(http.StatusNotFound, "Запись не найдена")
	wrapped := fmt.Errorf("release: %w", base)

	got := As(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, CodeNotFound, got.Code())
	assert.Equal(t, http.StatusNotFound, got.Status())
	assert.True(t, Is(wrapped, CodeNotFound))
	assert.False(t, Is(wrapped, CodeConflict))
	assert.Nil(t, As(stdErrors.New("plain")))
	assert.Nil(t, As(nil))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "Неверный логин", UserMessage(FromResponse(http.StatusUnauthorized, "Неверный логин")))
	assert.Equal(t, "недостаточно прав", UserMessage(FromResponse(http.StatusForbidden, "")))
	assert.Equal(t, "boom", UserMessage(stdErrors.New("boom")))
}

func TestNilErrorAccessors(t *testing.T) {
	var e *Error
	assert.Equal(t, CodeInternal, e.Code())
	assert.Equal(t, "", e.Message())
	assert.Equal(t, 0, e.Status())
	assert.Equal(t, "", e.Error())
	assert.Nil(t, e.Details())
	assert.Nil(t, e.WithDetails(map[string]string{"a": "b"}))
}

func TestWithDetails(t *testing.T) {
	err := New(CodeValidation, "validation failed").WithDetails(map[string]string{"phone": "is required"})
	assert.Equal(t, "is required", err.Details()["phone"])
}
