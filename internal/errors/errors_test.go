package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIError_Error(t *testing.T) {
	err := NewAPIError("awr", 500, "internal error")
	assert.Contains(t, err.Error(), "awr")
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "internal error")
}

func TestAPIError_WithWrapped(t *testing.T) {
	inner := errors.New("connection refused")
	err := &APIError{Service: "awr", StatusCode: 502, Message: "fail", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestProviderError_FixedMessages(t *testing.T) {
	assert.Equal(t, "the API token is invalid",
		NewProviderError(ProviderCodeInvalidToken, "whatever the provider said").Error())
	assert.Equal(t, "the project you specified does not exist",
		NewProviderError(ProviderCodeProjectNotFound, "").Error())
}

func TestProviderError_Fallback(t *testing.T) {
	err := NewProviderError(42, "quota exceeded")
	assert.Equal(t, "quota exceeded (code 42)", err.Error())

	noMsg := NewProviderError(99, "")
	assert.Equal(t, "provider returned code 99", noMsg.Error())
}

func TestIsAuthFailure(t *testing.T) {
	assert.True(t, IsAuthFailure(NewProviderError(ProviderCodeInvalidToken, "")))
	assert.True(t, IsAuthFailure(NewAPIError("awr", 401, "unauthorized")))
	assert.True(t, IsAuthFailure(fmt.Errorf("wrapped: %w", ErrAuthFailure)))

	assert.False(t, IsAuthFailure(NewProviderError(ProviderCodeProjectNotFound, "")))
	assert.False(t, IsAuthFailure(NewAPIError("awr", 500, "boom")))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewAPIError("awr", 429, "rate limit")))
	assert.True(t, IsRetryable(NewAPIError("awr", 503, "unavailable")))
	assert.True(t, IsRetryable(ErrTimeout))
	assert.True(t, IsRetryable(ErrUnavailable))

	assert.False(t, IsRetryable(NewAPIError("awr", 401, "unauth")))
	assert.False(t, IsRetryable(NewAPIError("awr", 404, "not found")))
	assert.False(t, IsRetryable(ErrAuthFailure))
	assert.False(t, IsRetryable(NewProviderError(11, "")))
}
