package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/sentence-sub-translator/internal/auth"
	"github.com/MimeLyc/sentence-sub-translator/internal/config"
	"github.com/MimeLyc/sentence-sub-translator/internal/httpapi"
	"github.com/MimeLyc/sentence-sub-translator/internal/jobs"
	"github.com/MimeLyc/sentence-sub-translator/internal/service"
	"github.com/MimeLyc/sentence-sub-translator/pkg/log"
)

const shutdownTimeout = 10 * time.Second

type scheduler interface {
	Schedule(ctx context.Context) error
}

type cronEngine interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the job workers and the reservation cleanup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				config.WithHTTPAddr(addr)(cfg)
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	jwtService, err := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return service.WrapError(err, service.ErrConfig, "JWT_SECRET is required to serve")
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

	queue := jobs.NewQueue(cfg.Jobs.Workers, store)
	queue.Start(pipeline.ExecuteJob)
	defer queue.Stop()

	cronRunner := cron.New()
	maintenance := service.NewMaintenance(store, cronRunner, cfg.Maintenance.CleanupCron, cfg.Maintenance.ReservationTTL)
	if _, err := maintenance.ReleaseStale(ctx); err != nil {
		log.Warn("Startup reservation cleanup failed: %v", err)
	}

	srv := httpapi.NewServer(pipeline, jwtService,
		httpapi.WithJobQueue(queue),
		httpapi.WithMaxUploadBytes(cfg.HTTP.MaxUploadBytes),
		httpapi.WithCORSOrigins(cfg.HTTP.CORSOrigins),
		httpapi.WithDefaultTargetLanguage(cfg.Translate.DefaultTargetLanguage),
		httpapi.WithUI(cfg.HTTP.UIStaticDir, cfg.HTTP.UIEnabled),
	)
	return runWithComponents(ctx, cfg.HTTP.Addr, maintenance, cronRunner, srv)
}

// runWithComponents schedules the cleanup, starts cron and serves HTTP until
// ctx is cancelled or the server fails.
func runWithComponents(ctx context.Context, addr string, sched scheduler, c cronEngine, srv httpServer) error {
	if err := sched.Schedule(ctx); err != nil {
		return err
	}
	c.Start()
	defer func() {
		// wait for a running cleanup
		<-c.Stop().Done()
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening on %s", addr)
		errCh <- srv.ListenAndServe(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
