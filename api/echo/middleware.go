package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pilab-dev/shadow-auth/domain"
	serrors "github.com/pilab-dev/shadow-auth/errors"
	"github.com/pilab-dev/shadow-auth/services"
	"github.com/rs/zerolog/log"
)

const claimsKey = "auth_claims"

// BearerAuth verifies the bearer token of each request and stores its claims in the echo
// context and the request context. Requests without a valid access token get a 401.
func BearerAuth(tokens TokenAuthority) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token := services.ExtractBearerToken(header)
			if header == "" || token == "" {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="shadow-auth"`)
				return c.JSON(http.StatusUnauthorized, serrors.NewInvalidToken())
			}

			claims, err := tokens.Verify(c.Request().Context(), token)
			if err != nil {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="shadow-auth", error="invalid_token"`)
				return c.JSON(serrors.HTTPStatus(err), serrors.Body(err))
			}

			c.Set(claimsKey, claims)
			c.SetRequest(c.Request().WithContext(domain.ContextWithClaims(c.Request().Context(), claims)))

			return next(c)
		}
	}
}

// ClaimsFromContext returns the claims stored by BearerAuth.
func ClaimsFromContext(c echo.Context) (*domain.TokenClaims, bool) {
	claims, ok := c.Get(claimsKey).(*domain.TokenClaims)
	return claims, ok && claims != nil
}

// RequireRole rejects callers whose verified role is not one of roles. It must run after BearerAuth.
func RequireRole(roles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFromContext(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, serrors.NewInvalidToken())
			}

			for _, role := range roles {
				if claims.Role == role {
					return next(c)
				}
			}

			log.Warn().Str("subject_id", claims.SubjectID).Str("role", claims.Role.String()).
				Str("path", c.Path()).Msg("permission denied")

			return c.JSON(http.StatusForbidden, serrors.NewAccessDenied())
		}
	}
}
