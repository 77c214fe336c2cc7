package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pilab-dev/shadow-auth/config"
	"github.com/pilab-dev/shadow-auth/services"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const AppName = "authctl"

type rootOptions struct {
	configDir     string
	secret        string
	refreshSecret string
	issuer        string
	verbose       bool
}

// NewRootCmd builds the authctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           AppName,
		Short:         "authctl issues and inspects shadow-auth tokens offline",
		Long:          `A command-line tool that signs, verifies and refreshes tokens with the same keys and rules as the shadow-auth server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.WarnLevel
			if opts.verbose {
				level = zerolog.DebugLevel
			}
			zlog.Logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(level).With().Timestamp().Logger()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "directory containing authcore.yaml")
	rootCmd.PersistentFlags().StringVar(&opts.secret, "secret", "", "access token secret (overrides JWT_SECRET)")
	rootCmd.PersistentFlags().StringVar(&opts.refreshSecret, "refresh-secret", "", "refresh token secret (overrides JWT_REFRESH_SECRET)")
	rootCmd.PersistentFlags().StringVar(&opts.issuer, "issuer", "", "token issuer (overrides TOKEN_ISSUER)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log rejection reasons")

	rootCmd.AddCommand(
		newIssueCmd(opts),
		newVerifyCmd(opts),
		newRefreshCmd(opts),
		newParseLockoutCmd(),
	)

	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// tokenService builds a TokenService from configuration and flag overrides.
func (o *rootOptions) tokenService() (*services.TokenService, error) {
	var dirs []string
	if o.configDir != "" {
		dirs = append(dirs, o.configDir)
	}

	cfg, err := config.LoadConfig(dirs...)
	if err != nil {
		return nil, err
	}
	if o.secret != "" {
		cfg.JWTSecret = o.secret
	}
	if o.refreshSecret != "" {
		cfg.JWTRefreshSecret = o.refreshSecret
	}
	if o.issuer != "" {
		cfg.TokenIssuer = o.issuer
	}

	return services.NewTokenService(services.TokenServiceConfig{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		Issuer:        cfg.TokenIssuer,
	})
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
