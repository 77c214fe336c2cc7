package echo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pilab-dev/shadow-auth/cache"
	"github.com/pilab-dev/shadow-auth/domain"
	serrors "github.com/pilab-dev/shadow-auth/errors"
	"github.com/pilab-dev/shadow-auth/internal/auth"
	"github.com/pilab-dev/shadow-auth/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type userStore struct {
	users map[string]*domain.User
	err   error
}

func (s *userStore) CreateUser(_ context.Context, user *domain.User) error {
	s.users[user.Email] = user
	return nil
}

func (s *userStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	user, ok := s.users[email]
	if !ok {
		return nil, serrors.ErrNotFound
	}
	return user, nil
}

func (s *userStore) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	for _, user := range s.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, serrors.ErrNotFound
}

type testServer struct {
	e      *echo.Echo
	users  *userStore
	tokens *services.TokenService
}

func newTestServer(t *testing.T, maxAttempts int) *testServer {
	t.Helper()

	hasher := auth.NewBcryptPasswordHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("correct-horse")
	require.NoError(t, err)

	tenant := "tenant-1"
	users := &userStore{users: map[string]*domain.User{
		"alice@example.com": {
			ID:           "user-123",
			Email:        "alice@example.com",
			PasswordHash: hash,
			Role:         domain.RoleMerchant,
			TenantID:     &tenant,
			Status:       domain.UserStatusActive,
		},
	}}

	refresh := cache.NewMemoryRefreshTokenStore()
	attempts := cache.NewMemoryAttemptStore(time.Minute)
	t.Cleanup(func() {
		_ = refresh.Close()
		_ = attempts.Close()
	})

	tokens, err := services.NewTokenService(services.TokenServiceConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
	}, services.WithRefreshTokenRepository(refresh))
	require.NoError(t, err)

	guard := services.NewLoginAttemptGuard(attempts, services.LoginGuardConfig{
		MaxAttempts:     maxAttempts,
		LockoutDuration: time.Minute,
	})

	e := echo.New()
	NewAuthAPI(tokens, services.NewLoginService(users, hasher, tokens, guard)).RegisterRoutes(e)

	return &testServer{e: e, users: users, tokens: tokens}
}

func (s *testServer) do(method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	return rec
}

func (s *testServer) login(t *testing.T) domain.TokenPair {
	t.Helper()

	rec := s.do(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"correct-horse"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var pair domain.TokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))

	return pair
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) serrors.AuthError {
	t.Helper()

	var body serrors.AuthError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return body
}

func TestLoginHandler_Success(t *testing.T) {
	s := newTestServer(t, 5)

	pair := s.login(t)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, 3600, pair.ExpiresIn)
}

func TestLoginHandler_BadRequests(t *testing.T) {
	s := newTestServer(t, 5)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"email":`},
		{"missing password", `{"email":"alice@example.com"}`},
		{"blank email", `{"email":"  ","password":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/auth/login", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, serrors.InvalidRequest, decodeError(t, rec).Code)
		})
	}
}

func TestLoginHandler_InvalidCredentials(t *testing.T) {
	s := newTestServer(t, 5)

	rec := s.do(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, serrors.InvalidCredentials, decodeError(t, rec).Code)

	rec = s.do(http.MethodPost, "/auth/login", `{"email":"bob@example.com","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, serrors.InvalidCredentials, decodeError(t, rec).Code)
}

func TestLoginHandler_Lockout(t *testing.T) {
	s := newTestServer(t, 2)
	body := `{"email":"alice@example.com","password":"wrong"}`

	rec := s.do(http.MethodPost, "/auth/login", body, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/auth/login", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, serrors.TooManyAttempts, decodeError(t, rec).Code)
	assert.Equal(t, "too many attempts, try again later", decodeError(t, rec).Description)

	retryAfter, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, retryAfter, 0)
	assert.LessOrEqual(t, retryAfter, 60)

	// the right password does not help while locked out
	rec = s.do(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"correct-horse"}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestLoginHandler_DependencyFailure(t *testing.T) {
	s := newTestServer(t, 5)
	s.users.err = assert.AnError

	rec := s.do(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"correct-horse"}`, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, serrors.TemporarilyUnavailable, decodeError(t, rec).Code)
}

func TestRefreshHandler(t *testing.T) {
	s := newTestServer(t, 5)
	pair := s.login(t)

	rec := s.do(http.MethodPost, "/auth/refresh", `{"refreshToken":"`+pair.RefreshToken+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var grant domain.AccessGrant
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grant))
	claims, err := s.tokens.Verify(context.Background(), grant.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.SubjectID)

	rec = s.do(http.MethodPost, "/auth/refresh", `{"refreshToken":"`+pair.AccessToken+`"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, serrors.InvalidToken, decodeError(t, rec).Code)

	rec = s.do(http.MethodPost, "/auth/refresh", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyHandler(t *testing.T) {
	s := newTestServer(t, 5)
	pair := s.login(t)

	tests := []struct {
		name   string
		body   string
		header map[string]string
		valid  bool
	}{
		{"authorization header", "", map[string]string{echo.HeaderAuthorization: "Bearer " + pair.AccessToken}, true},
		{"token in body", `{"token":"` + pair.AccessToken + `"}`, nil, true},
		{"refresh token", `{"token":"` + pair.RefreshToken + `"}`, nil, false},
		{"garbage", `{"token":"garbage"}`, nil, false},
		{"nothing", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/auth/verify", tt.body, tt.header)
			require.Equal(t, http.StatusOK, rec.Code)

			var result domain.VerificationResult
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
			assert.Equal(t, tt.valid, result.Valid)
			if tt.valid {
				assert.Equal(t, "user-123", result.SubjectID)
				assert.Equal(t, domain.RoleMerchant, result.Role)
				require.NotNil(t, result.TenantID)
				assert.Equal(t, "tenant-1", *result.TenantID)
			} else {
				assert.JSONEq(t, `{"valid":false}`, rec.Body.String())
			}
		})
	}
}

func TestMeHandler(t *testing.T) {
	s := newTestServer(t, 5)
	pair := s.login(t)

	rec := s.do(http.MethodGet, "/auth/me", "", map[string]string{echo.HeaderAuthorization: "Bearer " + pair.AccessToken})
	require.Equal(t, http.StatusOK, rec.Code)

	var claims domain.TokenClaims
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &claims))
	assert.Equal(t, "user-123", claims.SubjectID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, domain.TokenTypeAccess, claims.TokenType)

	rec = s.do(http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderWWWAuthenticate))

	rec = s.do(http.MethodGet, "/auth/me", "", map[string]string{echo.HeaderAuthorization: "Bearer " + pair.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutHandler(t *testing.T) {
	s := newTestServer(t, 5)
	pair := s.login(t)

	rec := s.do(http.MethodPost, "/auth/logout", "", map[string]string{echo.HeaderAuthorization: "Bearer " + pair.AccessToken})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodPost, "/auth/refresh", `{"refreshToken":"`+pair.RefreshToken+`"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/auth/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, RetryAfterSeconds(0))
	assert.Equal(t, 1, RetryAfterSeconds(300*time.Millisecond))
	assert.Equal(t, 2, RetryAfterSeconds(1500*time.Millisecond))
	assert.Equal(t, 900, RetryAfterSeconds(15*time.Minute))
}

func TestRevokeSubjectHandler(t *testing.T) {
	s := newTestServer(t, 5)
	pair := s.login(t)

	path := "/auth/subjects/user-123/revoke"

	// A merchant cannot revoke other subjects.
	rec := s.do(http.MethodPost, path, "", map[string]string{echo.HeaderAuthorization: "Bearer " + pair.AccessToken})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, serrors.AccessDenied, decodeError(t, rec).Code)

	admin, err := s.tokens.Issue(context.Background(), domain.IssueClaims{SubjectID: "admin-1", Role: domain.RoleAdmin})
	require.NoError(t, err)

	rec = s.do(http.MethodPost, path, "", map[string]string{echo.HeaderAuthorization: "Bearer " + admin.AccessToken})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodPost, "/auth/refresh", `{"refreshToken":"`+pair.RefreshToken+`"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
