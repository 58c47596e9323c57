package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/auth"
)

// tokenCmd mints a short-lived bearer token from a local signing key. It is
// meant for development and incident access where the session service is
// not at hand.
func tokenCmd() *cobra.Command {
	var (
		userID string
		roles  []string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator bearer token (needs JWT_SECRET or JWT_PRIVATE_KEY)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := uuid.New()
			if userID != "" {
				parsed, err := uuid.Parse(userID)
				if err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
				id = parsed
			}
			svc, err := auth.NewJWTService(auth.JWTConfig{
				Secret:        os.Getenv("JWT_SECRET"),
				PrivateKeyPEM: os.Getenv("JWT_PRIVATE_KEY"),
				Issuer:        envOr("JWT_ISSUER", "sportsmaker"),
				Expiration:    ttl,
			})
			if err != nil {
				return err
			}
			token, err := svc.GenerateToken(id, roles)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (default: random)")
	cmd.Flags().StringSliceVar(&roles, "role", []string{auth.RoleOperator}, "roles to grant")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
