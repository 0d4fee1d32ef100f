package authkit

import (
	"errors"
	"fmt"
	"net/http"
)

// Registry errors
var (
	ErrUnknownProvider    = errors.New("unknown provider")
	ErrProviderNotAllowed = errors.New("provider is not in the allow list")
	ErrDuplicateProvider  = errors.New("provider already registered")
)

// Flow errors
var (
	ErrInvalidSettings          = errors.New("missing required provider settings")
	ErrCsrfValidationFailed     = errors.New("csrf state validation failed")
	ErrMissingCallbackParameter = errors.New("missing required callback parameter")
	ErrCallbackDenied           = errors.New("authentication denied by user or provider")
	ErrStateReplayed            = errors.New("state token already used")
)

// AuthError wraps a failure during token exchange or identity fetch,
// carrying the upstream HTTP status for diagnostics. Transport-level
// failures (timeouts, malformed responses) carry StatusCode 500.
type AuthError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for provider %q (status %d): %v", e.Provider, e.StatusCode, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError builds an AuthError for the given provider. A non-positive
// status defaults to 500 so transport failures are never reported as success.
func NewAuthError(provider string, statusCode int, err error) *AuthError {
	if statusCode <= 0 {
		statusCode = http.StatusInternalServerError
	}
	return &AuthError{Provider: provider, StatusCode: statusCode, Err: err}
}
