package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	serrors "github.com/pilab-dev/shadow-auth/errors"
	"github.com/spf13/viper"
)

// Backend names accepted by ATTEMPT_STORE and TOKEN_STORE.
const (
	BackendMemory  = "memory"
	BackendRedis   = "redis"
	BackendMongoDB = "mongodb"
	BackendNone    = "none"
)

// Config holds all configuration for the auth server.
// Tags use mapstructure for Viper unmarshalling; the keys double as environment variable names.
type Config struct {
	JWTSecret        string `mapstructure:"JWT_SECRET"`
	JWTRefreshSecret string `mapstructure:"JWT_REFRESH_SECRET"`
	TokenIssuer      string `mapstructure:"TOKEN_ISSUER"`

	MaxLoginAttempts int `mapstructure:"MAX_LOGIN_ATTEMPTS"`
	// LockoutTime is "<int><s|m|h|d>", see LockoutDuration.
	LockoutTime string `mapstructure:"LOCKOUT_TIME"`

	HTTPPort        string `mapstructure:"HTTP_PORT"`
	LogLevel        string `mapstructure:"LOG_LEVEL"`
	LogPretty       bool   `mapstructure:"LOG_PRETTY"`
	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	AttemptStore  string `mapstructure:"ATTEMPT_STORE"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RedisPrefix   string `mapstructure:"REDIS_PREFIX"`

	TokenStore  string `mapstructure:"TOKEN_STORE"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`

	CleanupInterval time.Duration `mapstructure:"CLEANUP_INTERVAL"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_REFRESH_SECRET", "")
	v.SetDefault("TOKEN_ISSUER", "shadow-auth")
	v.SetDefault("MAX_LOGIN_ATTEMPTS", 5)
	v.SetDefault("LOCKOUT_TIME", "15m")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("OTEL_SERVICE_NAME", "shadow-auth")
	v.SetDefault("ATTEMPT_STORE", BackendMemory)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_PREFIX", "shadow-auth")
	v.SetDefault("TOKEN_STORE", BackendMemory)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB_NAME", "shadow_auth")
	v.SetDefault("CLEANUP_INTERVAL", "1m")
}

// LoadConfig reads configuration from an optional authcore.yaml, environment variables, and defaults.
// Extra search paths are tried before the built-in ones.
func LoadConfig(configPaths ...string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("authcore")
	v.SetConfigType("yaml")
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath("/etc/shadow-auth/")
	v.AddConfigPath("$HOME/.shadow-auth")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}

// Validate reports missing secrets and unknown backends as errors.ErrMisconfiguration.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return serrors.Misconfigured("JWT_SECRET is required")
	}

	switch c.AttemptStore {
	case BackendMemory, BackendRedis:
	default:
		return serrors.Misconfigured("unknown ATTEMPT_STORE %q", c.AttemptStore)
	}

	switch c.TokenStore {
	case BackendMemory, BackendMongoDB, BackendNone:
	default:
		return serrors.Misconfigured("unknown TOKEN_STORE %q", c.TokenStore)
	}

	return nil
}

// LockoutDuration returns the parsed LOCKOUT_TIME, falling back to 15 minutes.
func (c *Config) LockoutDuration() time.Duration {
	return ParseLockoutDuration(c.LockoutTime)
}
