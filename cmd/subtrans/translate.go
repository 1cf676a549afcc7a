package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/sentence-sub-translator/internal/service"
	"github.com/MimeLyc/sentence-sub-translator/internal/subtitle"
)

func translateCmd() *cobra.Command {
	var (
		userID string
		target string
		output string
	)
	cmd := &cobra.Command{
		Use:   "translate <file.srt>",
		Short: "Translate one SRT file, charging the user's quota",
		Example: `  subtrans translate movie.srt --user alice --to de
  subtrans translate movie.srt --user alice --to fr -o /tmp/movie.fr.srt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if target == "" {
				target = cfg.Translate.DefaultTargetLanguage
			}

			content, err := os.ReadFile(args[0])
			if err != nil {
				return service.WrapError(err, service.ErrValidation, "failed to read input file")
			}

			tr, err := service.NewTranslator(cfg)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			pipeline, err := service.NewPipeline(tr, store, store, service.WithConcurrency(cfg.Translate.Concurrency))
			if err != nil {
				return err
			}
			result, err := pipeline.Translate(cmd.Context(), service.TranslationRequest{
				UserID:         userID,
				FileName:       filepath.Base(args[0]),
				TargetLanguage: target,
				Content:        content,
			})
			if err != nil {
				return err
			}

			if output == "" {
				output = filepath.Join(filepath.Dir(args[0]), result.FileName)
			}
			if err := subtitle.NewWriter().Write(output, result.TranslatedFile); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d cues, %d characters, %s -> %s)\n",
				output, result.Metadata.CueCount, result.Metadata.CharCount,
				result.Metadata.SourceLanguage, result.Metadata.TargetLanguage)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user charged for the translation")
	cmd.Flags().StringVar(&target, "to", "", "target language (default DEFAULT_TARGET_LANGUAGE)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default <stem>.<lang>.srt next to the input)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
