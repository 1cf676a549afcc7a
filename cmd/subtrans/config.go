package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/sentence-sub-translator/internal/config"
	"github.com/MimeLyc/sentence-sub-translator/internal/service"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or persist the runtime settings",
		Long: `Runtime settings (engine, provider keys, cleanup schedule, default
target language) live in SETTINGS_FILE and override the environment.`,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective runtime settings with keys redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(cfg.RuntimeSettings().Redacted(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "save",
		Short: "Write the effective runtime settings to SETTINGS_FILE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path := config.RuntimeSettingsFilePath()
			if err := config.WriteRuntimeSettingsFile(path, cfg.RuntimeSettings()); err != nil {
				return service.WrapError(err, service.ErrConfig, "failed to save settings").
					WithContext("path", path)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", path)
			return nil
		},
	})
	return cmd
}
