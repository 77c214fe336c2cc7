//nolint:varnamelen
package echo

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pilab-dev/shadow-auth/domain"
	serrors "github.com/pilab-dev/shadow-auth/errors"
	"github.com/pilab-dev/shadow-auth/services"
	"github.com/rs/zerolog/log"
)

// TokenAuthority is the part of services.TokenService the HTTP boundary uses.
type TokenAuthority interface {
	Verify(ctx context.Context, accessToken string) (*domain.TokenClaims, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.AccessGrant, error)
	VerifyBearer(ctx context.Context, bearer string) domain.VerificationResult
}

// Authenticator is the part of services.LoginService the HTTP boundary uses.
type Authenticator interface {
	Login(ctx context.Context, req services.LoginRequest) (*domain.TokenPair, error)
	Logout(ctx context.Context, subjectID string) error
}

// AuthAPI struct to hold dependencies.
type AuthAPI struct {
	tokens TokenAuthority
	logins Authenticator
}

// NewAuthAPI initializes the auth API.
func NewAuthAPI(tokens TokenAuthority, logins Authenticator) *AuthAPI {
	return &AuthAPI{
		tokens: tokens,
		logins: logins,
	}
}

// RegisterRoutes registers the auth routes.
func (a *AuthAPI) RegisterRoutes(e *echo.Echo) {
	if e.Validator == nil {
		e.Validator = NewRequestValidator()
	}

	g := e.Group("/auth")

	g.POST("/login", a.LoginHandler)
	g.POST("/refresh", a.RefreshHandler)
	g.POST("/verify", a.VerifyHandler)

	protected := g.Group("", BearerAuth(a.tokens))
	protected.POST("/logout", a.LogoutHandler)
	protected.GET("/me", a.MeHandler)

	admin := protected.Group("/subjects", RequireRole(domain.RoleAdmin, domain.RoleSuperAdmin))
	admin.POST("/:id/revoke", a.RevokeSubjectHandler)
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,max=320"`
	Password string `json:"password" validate:"required,max=1024"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// VerifyRequest is the optional body of POST /auth/verify.
type VerifyRequest struct {
	Token string `json:"token"`
}

// LoginHandler authenticates email and password and answers with a token pair.
func (a *AuthAPI) LoginHandler(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, serrors.NewInvalidRequest("malformed request body"))
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, serrors.NewInvalidRequest(err.Error()))
	}

	pair, err := a.logins.Login(c.Request().Context(), services.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
		ClientIP: c.RealIP(),
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, pair)
}

// RefreshHandler exchanges a refresh token for a new access token.
func (a *AuthAPI) RefreshHandler(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, serrors.NewInvalidRequest("malformed request body"))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, serrors.NewInvalidRequest(err.Error()))
	}

	grant, err := a.tokens.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, grant)
}

// VerifyHandler is the verification boundary for other services. It always answers 200;
// the body says whether the token is valid.
func (a *AuthAPI) VerifyHandler(c echo.Context) error {
	token := c.Request().Header.Get(echo.HeaderAuthorization)
	if token == "" {
		var req VerifyRequest
		// An unreadable body is treated like a missing token.
		_ = c.Bind(&req)
		token = req.Token
	}

	return c.JSON(http.StatusOK, a.tokens.VerifyBearer(c.Request().Context(), token))
}

// LogoutHandler revokes every refresh token of the authenticated subject.
func (a *AuthAPI) LogoutHandler(c echo.Context) error {
	claims, ok := ClaimsFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, serrors.NewInvalidToken())
	}

	if err := a.logins.Logout(c.Request().Context(), claims.SubjectID); err != nil {
		return writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// RevokeSubjectHandler lets an administrator revoke every refresh token of another subject.
func (a *AuthAPI) RevokeSubjectHandler(c echo.Context) error {
	subjectID := strings.TrimSpace(c.Param("id"))
	if subjectID == "" {
		return c.JSON(http.StatusBadRequest, serrors.NewInvalidRequest("subject id is required"))
	}

	if err := a.logins.Logout(c.Request().Context(), subjectID); err != nil {
		return writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// MeHandler returns the verified claims of the caller.
func (a *AuthAPI) MeHandler(c echo.Context) error {
	claims, ok := ClaimsFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, serrors.NewInvalidToken())
	}

	return c.JSON(http.StatusOK, claims)
}

// writeError answers with the status and body mapped from err.
func writeError(c echo.Context, err error) error {
	var lockout *serrors.LockoutError
	if errors.As(err, &lockout) {
		c.Response().Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds(lockout.RetryAfter)))
	}

	status := serrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Int("status", status).Msg("request failed")
	}

	return c.JSON(status, serrors.Body(err))
}

// RetryAfterSeconds rounds d up to whole seconds, with a minimum of one.
func RetryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
