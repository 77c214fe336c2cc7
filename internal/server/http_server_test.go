package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pilab-dev/shadow-auth/config"
	"github.com/pilab-dev/shadow-auth/internal/metrics"
	"github.com/pilab-dev/shadow-auth/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{HTTPPort: "0", OtelServiceName: "test"}
}

func TestNewRouter_Healthz(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewZerologAdapter(&buf, zerolog.DebugLevel, false)

	router := NewRouter(testConfig(), logger, nil, Options{
		HealthChecks: map[string]HealthCheck{
			"memory": func(context.Context) error { return nil },
		},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])

	assert.Contains(t, buf.String(), `"path":"/healthz"`)
	assert.Contains(t, buf.String(), `"status":200`)
}

func TestNewRouter_HealthzDegraded(t *testing.T) {
	logger := log.NewZerologAdapter(&bytes.Buffer{}, zerolog.DebugLevel, false)

	router := NewRouter(testConfig(), logger, nil, Options{
		HealthChecks: map[string]HealthCheck{
			"redis": func(context.Context) error { return errors.New("connection refused") },
		},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestNewRouter_Metrics(t *testing.T) {
	logger := log.NewZerologAdapter(&bytes.Buffer{}, zerolog.DebugLevel, false)
	reg := prometheus.NewRegistry()
	metrics.InitCustomMetrics(reg)

	router := NewRouter(testConfig(), logger, nil, Options{Gatherer: reg})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "auth_tokens_issued_total"))
}

func TestNewRouter_NotFoundIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewZerologAdapter(&buf, zerolog.DebugLevel, false)

	router := NewRouter(testConfig(), logger, nil, Options{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, buf.String(), `"status":404`)
}

func TestNewHTTPServer(t *testing.T) {
	logger := log.NewZerologAdapter(&bytes.Buffer{}, zerolog.DebugLevel, false)

	srv := NewHTTPServer(&config.Config{HTTPPort: "9999"}, logger, nil, Options{})
	assert.Equal(t, ":9999", srv.Addr)
	assert.NotNil(t, srv.Handler)
}
