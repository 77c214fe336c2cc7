package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	serrors "github.com/pilab-dev/shadow-auth/errors"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"invalid token", serrors.ErrInvalidToken, http.StatusUnauthorized},
		{"wrapped invalid token", fmt.Errorf("verify: %w", serrors.ErrInvalidToken), http.StatusUnauthorized},
		{"invalid credentials", serrors.ErrInvalidCredentials, http.StatusUnauthorized},
		{"dependency", serrors.Unavailable("store", stderrors.New("timeout")), http.StatusServiceUnavailable},
		{"lockout", &serrors.LockoutError{RetryAfter: time.Minute}, http.StatusTooManyRequests},
		{"other", stderrors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, serrors.HTTPStatus(tc.err))
		})
	}
}

func TestUnavailable_KeepsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := serrors.Unavailable("get refresh token", cause)

	assert.ErrorIs(t, err, serrors.ErrDependencyUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, serrors.ErrInvalidToken)
}

func TestLockoutError(t *testing.T) {
	var err error = &serrors.LockoutError{RetryAfter: 90 * time.Second}

	assert.ErrorIs(t, err, serrors.ErrTooManyAttempts)

	var lockout *serrors.LockoutError
	assert.True(t, stderrors.As(err, &lockout))
	assert.Equal(t, 90*time.Second, lockout.RetryAfter)
	assert.Equal(t, serrors.TooManyAttempts, serrors.Body(err).Code)
	assert.NotContains(t, serrors.Body(err).Description, "90")
}

func TestMisconfigured(t *testing.T) {
	err := serrors.Misconfigured("missing %s", "JWT_SECRET")
	assert.ErrorIs(t, err, serrors.ErrMisconfiguration)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}
