package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AuthError is the error body returned by the HTTP boundary.
type AuthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Standard error codes
const (
	InvalidRequest         = "invalid_request"
	InvalidToken           = "invalid_token"
	InvalidCredentials     = "invalid_credentials"
	TooManyAttempts        = "too_many_attempts"
	AccessDenied           = "access_denied"
	ServerError            = "server_error"
	TemporarilyUnavailable = "temporarily_unavailable"
)

// Common error constructors
func NewInvalidRequest(description string) *AuthError {
	return &AuthError{
		Code:        InvalidRequest,
		Description: description,
	}
}

func NewInvalidToken() *AuthError {
	return &AuthError{
		Code:        InvalidToken,
		Description: "the token is invalid or expired",
	}
}

func NewInvalidCredentials() *AuthError {
	return &AuthError{
		Code:        InvalidCredentials,
		Description: "invalid email or password",
	}
}

// NewTooManyAttempts deliberately carries no lockout timing.
func NewTooManyAttempts() *AuthError {
	return &AuthError{
		Code:        TooManyAttempts,
		Description: "too many attempts, try again later",
	}
}

func NewAccessDenied() *AuthError {
	return &AuthError{
		Code:        AccessDenied,
		Description: "the token does not grant the required role",
	}
}

func NewTemporarilyUnavailable() *AuthError {
	return &AuthError{
		Code:        TemporarilyUnavailable,
		Description: "the service is temporarily unavailable, retry later",
	}
}

func NewServerError(description string) *AuthError {
	return &AuthError{
		Code:        ServerError,
		Description: description,
	}
}

// HTTPStatus maps a core error to the status code the boundary should answer with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case stderrors.Is(err, ErrDependencyUnavailable):
		return http.StatusServiceUnavailable
	case stderrors.Is(err, ErrTooManyAttempts):
		return http.StatusTooManyRequests
	case stderrors.Is(err, ErrInvalidToken), stderrors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Body returns the AuthError to serialize for err.
func Body(err error) *AuthError {
	switch HTTPStatus(err) {
	case http.StatusServiceUnavailable:
		return NewTemporarilyUnavailable()
	case http.StatusTooManyRequests:
		return NewTooManyAttempts()
	case http.StatusUnauthorized:
		if stderrors.Is(err, ErrInvalidCredentials) {
			return NewInvalidCredentials()
		}
		return NewInvalidToken()
	default:
		return NewServerError("internal error")
	}
}
