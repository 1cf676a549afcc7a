package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/sentence-sub-translator/internal/config"
	"github.com/MimeLyc/sentence-sub-translator/internal/service"
	"github.com/MimeLyc/sentence-sub-translator/pkg/log"
)

// Injected at build time via ldflags.
var version = "dev"

const (
	ExitOK          = 0
	ExitGeneral     = 1
	ExitUsage       = 2
	ExitConfig      = 3
	ExitValidation  = 4
	ExitQuota       = 5
	ExitTranslation = 6
	ExitInterrupt   = 130
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		service.NewDefaultErrorHandler().Handle(err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "subtrans",
		Short:         "Sentence-aware SRT subtitle translation with per-user quotas",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(translateCmd())
	root.AddCommand(planCmd())
	root.AddCommand(tokenCmd())
	root.AddCommand(cleanupCmd())
	root.AddCommand(configCmd())
	return root
}

// loadConfig reads the environment, applies the runtime settings file when one
// exists and sets the log level.
func loadConfig() (*config.Config, error) {
	var opts []config.Option
	settings, err := config.LoadRuntimeSettingsFile(config.RuntimeSettingsFilePath())
	switch {
	case err == nil:
		opts = append(opts, config.WithRuntimeSettings(settings))
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, service.WrapError(err, service.ErrConfig, "failed to load settings file")
	}

	cfg, err := config.NewFromEnv(opts...)
	if err != nil {
		return nil, service.WrapError(err, service.ErrConfig, "failed to load configuration")
	}
	level := log.ParseLevel(cfg.System.LogLevel)
	if cfg.System.LogFile == "" {
		log.InitLogger(level)
		return cfg, nil
	}
	// the file stays open for the life of the process
	if _, err := log.InitFileLogger(cfg.System.LogFile, level); err != nil {
		return nil, service.WrapError(err, service.ErrConfig, "failed to open log file")
	}
	return cfg, nil
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupt
	case isCobraUsageError(err):
		return ExitUsage
	case service.IsErrorType(err, service.ErrConfig):
		return ExitConfig
	case service.IsErrorType(err, service.ErrValidation),
		service.IsErrorType(err, service.ErrMalformedInput):
		return ExitValidation
	case service.IsErrorType(err, service.ErrQuotaExceeded):
		return ExitQuota
	case service.IsErrorType(err, service.ErrTranslation):
		return ExitTranslation
	default:
		return ExitGeneral
	}
}

// cobra does not expose typed usage errors.
var cobraUsageErrorPatterns = []string{
	"required flag",
	"unknown flag",
	"unknown shorthand",
	"flag needs an argument",
	"invalid argument",
	"unknown command",
	"accepts ",
	"requires at least",
	"requires at most",
}

func isCobraUsageError(err error) bool {
	msg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
