package domain

import (
	"errors"
	"fmt"
)

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrMissingCookies      = errors.New("required cookies missing")
)

// AuthError means credentials are expired, missing, or unrefreshable. It
// always carries a hint telling the user how to re-authenticate.
type AuthError struct {
	Message string
	Hint    string
}

func (e *AuthError) Error() string {
	return e.Message
}

// NewAuthError builds an AuthError with the standard re-login hint unless a
// more specific one is given.
func NewAuthError(message, hint string) *AuthError {
	if hint == "" {
		hint = "Run 'nlm login' to re-authenticate."
	}
	return &AuthError{Message: message, Hint: hint}
}

// APIError is a transport, server, or unexpected-response failure.
type APIError struct {
	Message string
	Status  int
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	}
	return e.Message
}

// ValidationError is malformed caller input, detected before any network
// activity and never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
