package cli

import (
	"fmt"

	"quiz-battle-service/internal/auth"
	"quiz-battle-service/internal/config"
	"github.com/spf13/cobra"
)

// NewTokenCmd mints an access token, handy for local testing against the WebSocket API.
func NewTokenCmd(configPath *string) *cobra.Command {
	var userID, name string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			issuer, err := newIssuer(cfg)
			if err != nil {
				return err
			}
			token, err := issuer.Issue(auth.Identity{UserID: userID, Name: name})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (required)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newIssuer(cfg config.Config) (*auth.Issuer, error) {
	if cfg.Auth.Secret == "" {
		return nil, fmt.Errorf("auth secret not configured (set auth.secret or JWT_SECRET)")
	}
	return auth.NewIssuer(cfg.Auth.Secret, config.Duration(cfg.Auth.TTL, auth.DefaultTokenTTL)), nil
}
