// Package errors provides structured error types for RankView.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrTimeout     = errors.New("operation timed out")
	ErrAuthFailure = errors.New("authentication failed")
	ErrNotFound    = errors.New("resource not found")
	ErrBadResponse = errors.New("malformed provider response")
	ErrUnavailable = errors.New("service unavailable")
)

// Provider response codes with a fixed user-facing message.
const (
	ProviderCodeInvalidToken    = 11
	ProviderCodeProjectNotFound = 15
)

// APIError represents a transport-level failure talking to an external API.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s API error (status %d): %s: %v", e.Service, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// NewAPIError creates a new API error.
func NewAPIError(service string, statusCode int, message string) *APIError {
	return &APIError{Service: service, StatusCode: statusCode, Message: message}
}

// ProviderError represents a nonzero response code embedded in an otherwise
// well-formed provider JSON body.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	switch e.Code {
	case ProviderCodeInvalidToken:
		return "the API token is invalid"
	case ProviderCodeProjectNotFound:
		return "the project you specified does not exist"
	}
	if e.Message != "" {
		return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
	}
	return fmt.Sprintf("provider returned code %d", e.Code)
}

// NewProviderError creates a provider error from a response code and the
// provider-supplied message, if any.
func NewProviderError(code int, message string) *ProviderError {
	return &ProviderError{Code: code, Message: message}
}

// IsAuthFailure reports whether err is an authentication failure from either
// the transport (HTTP 401/403) or the provider's embedded code.
func IsAuthFailure(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Code == ProviderCodeInvalidToken
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
	}
	return errors.Is(err, ErrAuthFailure)
}

// IsRetryable returns true if the error is likely transient. The provider
// client itself never retries; the diagnostic probe uses this to label
// failures as transient or permanent.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		}
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable)
}
