package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/sentence-sub-translator/internal/config"
	"github.com/MimeLyc/sentence-sub-translator/internal/persistence"
	"github.com/MimeLyc/sentence-sub-translator/internal/quota"
	"github.com/MimeLyc/sentence-sub-translator/internal/service"
)

func planCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage user subscriptions",
	}
	cmd.AddCommand(planSetCmd())
	cmd.AddCommand(planShowCmd())
	return cmd
}

func planSetCmd() *cobra.Command {
	var (
		planType string
		limit    int64
		inactive bool
	)
	cmd := &cobra.Command{
		Use:     "set <user-id>",
		Short:   "Create or update a user's subscription",
		Example: `  subtrans plan set alice --type basic --limit 100000`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return service.NewError(service.ErrValidation, "limit must not be negative")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			plan := quota.Plan{Type: planType, Limit: limit, Active: !inactive}
			if err := store.SetPlan(cmd.Context(), args[0], plan); err != nil {
				return service.WrapError(err, service.ErrStorage, "failed to save plan")
			}
			return printUsage(cmd.Context(), cmd.OutOrStdout(), store, args[0])
		},
	}
	cmd.Flags().StringVar(&planType, "type", "basic", "subscription type")
	cmd.Flags().Int64Var(&limit, "limit", 0, "characters allowed in total")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "mark the subscription inactive")
	_ = cmd.MarkFlagRequired("limit")
	return cmd
}

func planShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id>",
		Short: "Print a user's usage counters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			return printUsage(cmd.Context(), cmd.OutOrStdout(), store, args[0])
		},
	}
}

func openStore(cfg *config.Config) (*persistence.SQLiteStore, error) {
	store, err := persistence.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		return nil, service.WrapError(err, service.ErrStorage, "failed to open database")
	}
	return store, nil
}

func printUsage(ctx context.Context, w io.Writer, store quota.Store, userID string) error {
	usage, err := store.Usage(ctx, userID)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "user=%s plan=%s active=%t used=%d reserved=%d limit=%d remaining=%d\n",
		usage.UserID, usage.PlanType, usage.Active, usage.Used, usage.Reserved, usage.Limit, usage.Remaining())
	return nil
}
