package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidToken covers bad signatures, expiry, wrong token type, malformed input and revocation.
	// Callers cannot tell these apart.
	ErrInvalidToken = stderrors.New("invalid token")

	// ErrDependencyUnavailable means a token or user store failed. It must not be treated as unauthenticated.
	ErrDependencyUnavailable = stderrors.New("dependency unavailable")

	// ErrMisconfiguration is returned at startup when signing keys or backends are missing.
	ErrMisconfiguration = stderrors.New("misconfiguration")

	ErrTooManyAttempts    = stderrors.New("too many login attempts")
	ErrInvalidCredentials = stderrors.New("invalid credentials")
	ErrNotFound           = stderrors.New("not found")
)

// LockoutError is returned by the login flow while an identifier is locked out.
type LockoutError struct {
	RetryAfter time.Duration
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrTooManyAttempts, e.RetryAfter)
}

// Is makes errors.Is(err, ErrTooManyAttempts) hold for lockouts.
func (e *LockoutError) Is(target error) bool {
	return target == ErrTooManyAttempts
}

// Unavailable wraps a collaborator failure so it matches both ErrDependencyUnavailable and the cause.
func Unavailable(op string, cause error) error {
	return fmt.Errorf("%s: %w", op, stderrors.Join(ErrDependencyUnavailable, cause))
}

// Misconfigured wraps a startup problem as ErrMisconfiguration.
func Misconfigured(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMisconfiguration, fmt.Sprintf(format, args...))
}
