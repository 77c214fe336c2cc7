package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pilab-dev/shadow-auth/cache"
	"github.com/pilab-dev/shadow-auth/domain"
	serrors "github.com/pilab-dev/shadow-auth/errors"
	"github.com/pilab-dev/shadow-auth/internal/metrics"
	"github.com/rs/zerolog/log"
)

const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
	DefaultIssuer     = "shadow-auth"
)

// TokenServiceConfig holds the signing material and lifetimes of a TokenService.
type TokenServiceConfig struct {
	AccessSecret string
	// RefreshSecret falls back to AccessSecret when empty.
	RefreshSecret string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenServiceOption configures optional collaborators of a TokenService.
type TokenServiceOption func(*TokenService)

// WithRefreshTokenRepository enables server-side refresh token records and revocation.
func WithRefreshTokenRepository(repo domain.RefreshTokenRepository) TokenServiceOption {
	return func(s *TokenService) {
		s.repo = repo
	}
}

// WithClock replaces time.Now for issuance and expiry checks.
func WithClock(now func() time.Time) TokenServiceOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// tokenClaims is the JWT payload of both token types. Refresh tokens leave the identity fields empty.
type tokenClaims struct {
	Email    string           `json:"email,omitempty"`
	Role     domain.Role      `json:"role,omitempty"`
	TenantID *string          `json:"tenantId,omitempty"`
	Type     domain.TokenType `json:"type"`
	jwt.RegisteredClaims
}

func (c *tokenClaims) toDomain() *domain.TokenClaims {
	claims := &domain.TokenClaims{
		SubjectID: c.Subject,
		Email:     c.Email,
		Role:      c.Role,
		TenantID:  c.TenantID,
		TokenID:   c.ID,
		TokenType: c.Type,
	}
	if c.IssuedAt != nil {
		claims.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		claims.ExpiresAt = c.ExpiresAt.Time
	}

	return claims
}

// TokenService issues, verifies and refreshes signed access/refresh token pairs.
// It is immutable after construction and safe for concurrent use.
type TokenService struct {
	signer     *TokenSigner
	repo       domain.RefreshTokenRepository
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg TokenServiceConfig, opts ...TokenServiceOption) (*TokenService, error) {
	if cfg.AccessSecret == "" {
		return nil, serrors.Misconfigured("access token secret is required")
	}
	if cfg.RefreshSecret == "" {
		log.Warn().Msg("refresh token secret not set, falling back to the access token secret")
		cfg.RefreshSecret = cfg.AccessSecret
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}

	signer := NewTokenSigner()
	if err := signer.AddKeySigner(AccessKeyID, cfg.AccessSecret); err != nil {
		return nil, serrors.Misconfigured("access key: %v", err)
	}
	if err := signer.AddKeySigner(RefreshKeyID, cfg.RefreshSecret); err != nil {
		return nil, serrors.Misconfigured("refresh key: %v", err)
	}

	s := &TokenService{
		signer:     signer,
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// RevocationEnforced reports whether refresh tokens are checked against a repository.
func (s *TokenService) RevocationEnforced() bool {
	return s.repo != nil
}

// AccessTTL returns the lifetime of issued access tokens.
func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

// Issue creates a new access/refresh pair sharing one token ID.
func (s *TokenService) Issue(ctx context.Context, claims domain.IssueClaims) (*domain.TokenPair, error) {
	now := s.now()
	tokenID := uuid.NewString()

	accessToken, err := s.signAccess(claims, tokenID, now)
	if err != nil {
		return nil, err
	}

	refresh := &tokenClaims{
		Type: domain.TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   claims.SubjectID,
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
	}
	refreshToken, err := s.signer.Sign(refresh, RefreshKeyID)
	if err != nil {
		return nil, serrors.Misconfigured("sign refresh token: %v", err)
	}

	metrics.TokensIssuedTotal.Inc()
	log.Debug().Str("subject_id", claims.SubjectID).Str("token_id", tokenID).Msg("token pair issued")

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.accessTTL.Seconds()),
	}, nil
}

func (s *TokenService) signAccess(claims domain.IssueClaims, tokenID string, now time.Time) (string, error) {
	access := &tokenClaims{
		Email:    claims.Email,
		Role:     claims.Role,
		TenantID: claims.TenantID,
		Type:     domain.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   claims.SubjectID,
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	token, err := s.signer.Sign(access, AccessKeyID)
	if err != nil {
		return "", serrors.Misconfigured("sign access token: %v", err)
	}

	return token, nil
}

// parse verifies signature, expiry, issuer and token type. Every failure collapses to ErrInvalidToken.
func (s *TokenService) parse(raw, keyID string, want domain.TokenType) (*tokenClaims, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, s.signer.Keyfunc(keyID),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		metrics.TokenVerifyFailuresTotal.WithLabelValues(string(want)).Inc()
		log.Debug().Err(err).Str("expected_type", string(want)).Msg("token rejected")
		return nil, serrors.ErrInvalidToken
	}
	if claims.Type != want || claims.Subject == "" || claims.ID == "" {
		metrics.TokenVerifyFailuresTotal.WithLabelValues(string(want)).Inc()
		log.Debug().Str("expected_type", string(want)).Str("type", string(claims.Type)).
			Msg("token rejected: wrong type or missing identifiers")
		return nil, serrors.ErrInvalidToken
	}

	return claims, nil
}

// Verify checks an access token and returns its claims.
func (s *TokenService) Verify(_ context.Context, accessToken string) (*domain.TokenClaims, error) {
	claims, err := s.parse(accessToken, AccessKeyID, domain.TokenTypeAccess)
	if err != nil {
		return nil, err
	}

	return claims.toDomain(), nil
}

// Refresh exchanges a valid refresh token for a new access token with the same subject and token ID.
// The refresh token itself is not rotated.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*domain.AccessGrant, error) {
	claims, err := s.parse(refreshToken, RefreshKeyID, domain.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	issue := domain.IssueClaims{SubjectID: claims.Subject}
	if s.repo != nil {
		record, err := s.repo.GetRefreshToken(ctx, claims.ID)
		switch {
		case errors.Is(err, serrors.ErrNotFound):
			log.Debug().Str("token_id", claims.ID).Msg("refresh token has no server-side record")
			return nil, serrors.ErrInvalidToken
		case err != nil:
			log.Error().Err(err).Str("token_id", claims.ID).Msg("failed to load refresh token record")
			return nil, serrors.Unavailable("load refresh token", err)
		}

		if !s.recordMatches(record, claims, refreshToken) {
			return nil, serrors.ErrInvalidToken
		}
		issue = record.Claims()
	}

	accessToken, err := s.signAccess(issue, claims.ID, s.now())
	if err != nil {
		return nil, err
	}

	metrics.TokensRefreshedTotal.Inc()

	return &domain.AccessGrant{
		AccessToken: accessToken,
		ExpiresIn:   int(s.accessTTL.Seconds()),
	}, nil
}

func (s *TokenService) recordMatches(record *domain.RefreshTokenRecord, claims *tokenClaims, raw string) bool {
	if record.IsRevoked {
		log.Debug().Str("token_id", claims.ID).Msg("refresh token revoked")
		return false
	}
	if record.SubjectID != claims.Subject {
		log.Warn().Str("token_id", claims.ID).Msg("refresh token subject does not match its record")
		return false
	}
	if subtle.ConstantTimeCompare([]byte(record.TokenHash), []byte(cache.HashToken(raw))) != 1 {
		log.Warn().Str("token_id", claims.ID).Msg("refresh token hash does not match its record")
		return false
	}

	return true
}

// Persist stores the server-side record of a freshly issued pair. It is a no-op without a repository.
func (s *TokenService) Persist(ctx context.Context, pair *domain.TokenPair, claims domain.IssueClaims) error {
	if s.repo == nil {
		return nil
	}

	parsed, err := s.parse(pair.RefreshToken, RefreshKeyID, domain.TokenTypeRefresh)
	if err != nil {
		return err
	}

	record := &domain.RefreshTokenRecord{
		TokenID:   parsed.ID,
		SubjectID: claims.SubjectID,
		Email:     claims.Email,
		Role:      claims.Role,
		TenantID:  claims.TenantID,
		TokenHash: cache.HashToken(pair.RefreshToken),
		ExpiresAt: parsed.ExpiresAt.Time,
		CreatedAt: s.now(),
	}
	if err := s.repo.StoreRefreshToken(ctx, record); err != nil {
		log.Error().Err(err).Str("token_id", record.TokenID).Msg("failed to store refresh token record")
		return serrors.Unavailable("store refresh token", err)
	}

	return nil
}

// RevokeAll revokes every refresh token of subjectID.
func (s *TokenService) RevokeAll(ctx context.Context, subjectID string) error {
	if s.repo == nil {
		log.Warn().Str("subject_id", subjectID).Msg("no refresh token repository configured, revocation is not enforced")
		return nil
	}

	n, err := s.repo.RevokeAllForSubject(ctx, subjectID)
	if err != nil {
		log.Error().Err(err).Str("subject_id", subjectID).Msg("failed to revoke refresh tokens")
		return serrors.Unavailable("revoke refresh tokens", err)
	}

	metrics.TokenRevocationsTotal.Add(float64(n))
	log.Info().Str("subject_id", subjectID).Int("revoked", n).Msg("refresh tokens revoked")

	return nil
}

// VerifyBearer verifies an Authorization header value or a bare token. It never fails;
// any problem yields an invalid result.
func (s *TokenService) VerifyBearer(ctx context.Context, bearer string) domain.VerificationResult {
	token := ExtractBearerToken(bearer)
	if token == "" {
		return domain.VerificationResult{Valid: false}
	}

	claims, err := s.Verify(ctx, token)
	if err != nil {
		return domain.VerificationResult{Valid: false}
	}

	return domain.VerificationResult{
		Valid:     true,
		SubjectID: claims.SubjectID,
		Role:      claims.Role,
		TenantID:  claims.TenantID,
	}
}

// ExtractBearerToken returns the token of a "Bearer <token>" header, or the input itself when it
// carries no scheme. Other schemes yield an empty string.
func ExtractBearerToken(header string) string {
	header = strings.TrimSpace(header)
	scheme, rest, found := strings.Cut(header, " ")
	if !found {
		return header
	}
	if !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(rest)
}
