package cmd

import (
	"fmt"

	"github.com/pilab-dev/shadow-auth/domain"
	"github.com/spf13/cobra"
)

func newIssueCmd(opts *rootOptions) *cobra.Command {
	var (
		claims domain.IssueClaims
		role   string
		tenant string
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue an access/refresh token pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			claims.Role = domain.Role(role)
			if !claims.Role.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}
			if tenant != "" {
				claims.TenantID = &tenant
			}

			svc, err := opts.tokenService()
			if err != nil {
				return err
			}

			pair, err := svc.Issue(cmd.Context(), claims)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), pair)
		},
	}

	cmd.Flags().StringVar(&claims.SubjectID, "subject", "", "subject ID (required)")
	cmd.Flags().StringVar(&claims.Email, "email", "", "email claim")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleCustomer), "role claim")
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant ID; omit for platform-level principals")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token>",
		Short: "Verify an access token and print the verification result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.tokenService()
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), svc.VerifyBearer(cmd.Context(), args[0]))
		},
	}
}

func newRefreshCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <refresh-token>",
		Short: "Exchange a refresh token for a new access token",
		Long:  "Exchange a refresh token for a new access token. Revocation is not checked offline.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.tokenService()
			if err != nil {
				return err
			}

			grant, err := svc.Refresh(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), grant)
		},
	}
}
