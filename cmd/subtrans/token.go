package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/sentence-sub-translator/internal/auth"
	"github.com/MimeLyc/sentence-sub-translator/internal/service"
)

func tokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:     "token <user-id>",
		Short:   "Issue a bearer token for a user",
		Example: `  subtrans token alice --ttl 720h`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}
			jwtService, err := auth.NewJWTService(cfg.Auth.JWTSecret, ttl)
			if err != nil {
				return service.WrapError(err, service.ErrConfig, "JWT_SECRET is required to issue tokens")
			}
			token, err := jwtService.GenerateToken(args[0])
			if err != nil {
				return service.WrapError(err, service.ErrValidation, "failed to issue token")
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default JWT_TTL)")
	return cmd
}
