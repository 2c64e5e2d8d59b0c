// Command tokengen issues and inspects service tokens for chat front-ends.
//
//	tokengen issue --subject web-widget --scope conversations
//	tokengen inspect <token>
//
// The signing secret and TTL come from JWT_SECRET and JWT_TTL, the same
// variables the BFA reads.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/evcharge/ev-support-bfa-go/internal/config"
	"github.com/evcharge/ev-support-bfa-go/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tokengen",
		Short:         "Issue and inspect BFA service tokens",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newIssueCmd(), newInspectCmd())
	return root
}

func tokenService(ttl time.Duration) *service.TokenService {
	_ = config.LoadDotEnv(".env")
	cfg := config.Load()
	if ttl <= 0 {
		ttl = cfg.JWTTTL
	}
	return service.NewTokenService(cfg.JWTSecret, ttl, zap.NewNop())
}

func newIssueCmd() *cobra.Command {
	var (
		subject string
		scope   string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a new service token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := tokenService(ttl).Issue(subject, scope)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "front-end or channel name (required)")
	cmd.Flags().StringVar(&scope, "scope", "conversations", "token scope")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default JWT_TTL)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <token>",
		Short: "Validate a token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			claims, err := tokenService(0).Validate(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "subject: %s\n", claims.Subject)
			fmt.Fprintf(out, "scope:   %s\n", claims.Scope)
			if claims.ExpiresAt != nil {
				fmt.Fprintf(out, "expires: %s\n", claims.ExpiresAt.Time.Format(time.RFC3339))
			}
			return nil
		},
	}
}
