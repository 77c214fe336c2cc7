package services

import (
	"context"
	"time"

	"github.com/pilab-dev/shadow-auth/cache"
	"github.com/pilab-dev/shadow-auth/domain"
	"github.com/pilab-dev/shadow-auth/internal/metrics"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMaxLoginAttempts = 5
	DefaultLockoutDuration  = 15 * time.Minute
)

// LoginGuardConfig holds the brute-force thresholds.
type LoginGuardConfig struct {
	MaxAttempts     int
	LockoutDuration time.Duration
}

// LoginGuardOption configures a LoginAttemptGuard.
type LoginGuardOption func(*LoginAttemptGuard)

// WithGuardClock replaces time.Now for window computations.
func WithGuardClock(now func() time.Time) LoginGuardOption {
	return func(g *LoginAttemptGuard) {
		if now != nil {
			g.now = now
		}
	}
}

// LoginAttemptGuard counts login attempts per identifier and locks an identifier out
// for a fixed window once MaxAttempts is reached. The window starts at the attempt that
// reached the limit and is not extended by rejected attempts.
type LoginAttemptGuard struct {
	store       cache.AttemptStore
	maxAttempts int
	lockout     time.Duration
	now         func() time.Time
}

// NewLoginAttemptGuard creates a new LoginAttemptGuard instance
func NewLoginAttemptGuard(store cache.AttemptStore, cfg LoginGuardConfig, opts ...LoginGuardOption) *LoginAttemptGuard {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxLoginAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = DefaultLockoutDuration
	}

	g := &LoginAttemptGuard{
		store:       store,
		maxAttempts: cfg.MaxAttempts,
		lockout:     cfg.LockoutDuration,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// MaxAttempts returns the configured attempt limit.
func (g *LoginAttemptGuard) MaxAttempts() int {
	return g.maxAttempts
}

// LockoutDuration returns the configured lockout window.
func (g *LoginAttemptGuard) LockoutDuration() time.Duration {
	return g.lockout
}

// RegisterAttempt records an attempt and reports whether the caller may proceed.
// A store failure denies the attempt.
func (g *LoginAttemptGuard) RegisterAttempt(ctx context.Context, identifier string) bool {
	now := g.now()
	allowed := false

	err := g.store.Update(ctx, identifier, g.lockout, func(current *domain.LoginAttemptRecord) (*domain.LoginAttemptRecord, bool) {
		if current == nil || now.Sub(current.LastAttemptAt) >= g.lockout {
			allowed = true
			return &domain.LoginAttemptRecord{Identifier: identifier, Count: 1, LastAttemptAt: now}, true
		}
		if current.Count >= g.maxAttempts {
			allowed = false
			return current, false
		}

		current.Count++
		current.LastAttemptAt = now
		allowed = current.Count < g.maxAttempts
		return current, true
	})
	if err != nil {
		log.Error().Err(err).Str("identifier", identifier).Msg("failed to register login attempt, denying")
		return false
	}

	if !allowed {
		metrics.LoginLockoutsTotal.Inc()
		log.Warn().Str("identifier", identifier).Msg("login attempt rejected, identifier locked out")
	}

	return allowed
}

// Reset clears the attempt record of identifier, typically after a successful login.
func (g *LoginAttemptGuard) Reset(ctx context.Context, identifier string) {
	if err := g.store.Delete(ctx, identifier); err != nil {
		log.Error().Err(err).Str("identifier", identifier).Msg("failed to reset login attempts")
	}
}

// RemainingLockout returns how long identifier stays locked out, or 0 when it is not locked.
// A store failure reports the full lockout duration.
func (g *LoginAttemptGuard) RemainingLockout(ctx context.Context, identifier string) time.Duration {
	record, err := g.store.Get(ctx, identifier)
	if err != nil {
		log.Error().Err(err).Str("identifier", identifier).Msg("failed to read login attempts")
		return g.lockout
	}
	if record == nil || record.Count < g.maxAttempts {
		return 0
	}

	elapsed := g.now().Sub(record.LastAttemptAt)
	if elapsed >= g.lockout {
		return 0
	}

	return g.lockout - elapsed
}
