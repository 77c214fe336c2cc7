package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// The collectors exist from package init so services can count before (or without) registration.
var (
	TokensIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_tokens_issued_total",
		Help: "Total number of token pairs issued.",
	})
	TokensRefreshedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_tokens_refreshed_total",
		Help: "Total number of access tokens minted from a refresh token.",
	})
	TokenVerifyFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_token_verify_failures_total",
		Help: "Total number of rejected tokens, by token type.",
	}, []string{"type"})
	TokenRevocationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_token_revocations_total",
		Help: "Total number of refresh tokens revoked.",
	})
	LoginSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_logins_success_total",
		Help: "Total number of successful logins.",
	})
	LoginFailureTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_logins_failure_total",
		Help: "Total number of failed logins.",
	})
	LoginLockoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_login_lockouts_total",
		Help: "Total number of login attempts rejected by the lockout guard.",
	})
)

// InitCustomMetrics registers the custom Prometheus metrics.
// It should be called once at application startup.
func InitCustomMetrics(reg prometheus.Registerer) {
	if reg == nil {
		log.Error().Msg("Prometheus registry is nil, cannot register custom metrics.")
		return
	}

	collectors := map[string]prometheus.Collector{
		"TokensIssuedTotal":        TokensIssuedTotal,
		"TokensRefreshedTotal":     TokensRefreshedTotal,
		"TokenVerifyFailuresTotal": TokenVerifyFailuresTotal,
		"TokenRevocationsTotal":    TokenRevocationsTotal,
		"LoginSuccessTotal":        LoginSuccessTotal,
		"LoginFailureTotal":        LoginFailureTotal,
		"LoginLockoutsTotal":       LoginLockoutsTotal,
	}
	for name, c := range collectors {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Msgf("Failed to register %s metric", name)
		}
	}
	log.Info().Msg("Custom Prometheus metrics registered.")
}
