package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/sentence-sub-translator/internal/service"
)

func cleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Roll back reservations older than RESERVATION_TTL once",
		Args:  cobra.NoArgs,
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

			m := service.NewMaintenance(store, nil, cfg.Maintenance.CleanupCron, cfg.Maintenance.ReservationTTL)
			released, err := m.ReleaseStale(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "released %d reservations\n", released)
			return nil
		},
	}
}
