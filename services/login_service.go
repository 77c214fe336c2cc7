package services

import (
	"context"
	"errors"
	"strings"

	"github.com/pilab-dev/shadow-auth/domain"
	serrors "github.com/pilab-dev/shadow-auth/errors"
	"github.com/pilab-dev/shadow-auth/internal/audit"
	"github.com/pilab-dev/shadow-auth/internal/metrics"
	"github.com/pilab-dev/shadow-auth/tracing"
	"github.com/rs/zerolog/log"
)

const auditService = "login-service"

// PasswordHasher hashes passwords and checks them against stored hashes.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify returns nil when password matches hashedPassword.
	Verify(hashedPassword, password string) error
}

// LoginRequest carries the credentials of a login attempt.
type LoginRequest struct {
	Email    string
	Password string
	ClientIP string
}

// LoginService is the login call site: it guards, authenticates and issues tokens.
type LoginService struct {
	users  domain.UserRepository
	hasher PasswordHasher
	tokens *TokenService
	guard  *LoginAttemptGuard
}

// NewLoginService creates a new LoginService instance
func NewLoginService(
	users domain.UserRepository,
	hasher PasswordHasher,
	tokens *TokenService,
	guard *LoginAttemptGuard,
) *LoginService {
	return &LoginService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		guard:  guard,
	}
}

// NormalizeIdentifier returns the rate-limiting key of an email address.
func NormalizeIdentifier(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login authenticates the request and issues a token pair.
func (s *LoginService) Login(ctx context.Context, req LoginRequest) (*domain.TokenPair, error) {
	ctx, span := tracing.Tracer.Start(ctx, "LoginService.Login")
	defer span.End()

	identifier := NormalizeIdentifier(req.Email)
	logger := log.With().Str("identifier", identifier).Str("client_ip", req.ClientIP).Logger()

	if !s.guard.RegisterAttempt(ctx, identifier) {
		metrics.LoginFailureTotal.Inc()
		logger.Warn().Msg("login rejected: too many attempts")
		audit.Log(auditService, audit.ActionLockout, identifier, req.ClientIP, false, serrors.ErrTooManyAttempts)
		return nil, &serrors.LockoutError{RetryAfter: s.guard.RemainingLockout(ctx, identifier)}
	}

	user, err := s.users.GetUserByEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, serrors.ErrNotFound) {
			metrics.LoginFailureTotal.Inc()
			logger.Info().Msg("login failed: unknown user")
			audit.Log(auditService, audit.ActionLogin, identifier, req.ClientIP, false, serrors.ErrInvalidCredentials)
			return nil, serrors.ErrInvalidCredentials
		}
		logger.Error().Err(err).Msg("login failed: user lookup")
		return nil, serrors.Unavailable("get user", err)
	}

	if user.Status != domain.UserStatusActive {
		metrics.LoginFailureTotal.Inc()
		logger.Info().Str("status", string(user.Status)).Msg("login failed: user not active")
		audit.Log(auditService, audit.ActionLogin, identifier, req.ClientIP, false, serrors.ErrInvalidCredentials)
		return nil, serrors.ErrInvalidCredentials
	}

	if err := s.hasher.Verify(user.PasswordHash, req.Password); err != nil {
		metrics.LoginFailureTotal.Inc()
		logger.Info().Msg("login failed: password mismatch")
		audit.Log(auditService, audit.ActionLogin, identifier, req.ClientIP, false, serrors.ErrInvalidCredentials)
		return nil, serrors.ErrInvalidCredentials
	}

	claims := user.IssueClaims()
	pair, err := s.tokens.Issue(ctx, claims)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Persist(ctx, pair, claims); err != nil {
		return nil, err
	}

	s.guard.Reset(ctx, identifier)
	metrics.LoginSuccessTotal.Inc()
	logger.Info().Str("subject_id", user.ID).Msg("login succeeded")
	audit.Log(auditService, audit.ActionLogin, user.ID, req.ClientIP, true, nil)

	return pair, nil
}

// Logout revokes every refresh token of the subject.
func (s *LoginService) Logout(ctx context.Context, subjectID string) error {
	err := s.tokens.RevokeAll(ctx, subjectID)
	audit.Log(auditService, audit.ActionLogout, subjectID, "", err == nil, err)

	return err
}
