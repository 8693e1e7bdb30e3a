package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"lgcms/internal/app"
	"lgcms/internal/config"
	"lgcms/internal/handlers"
	"lgcms/internal/jobs"
	"lgcms/internal/log"
	"lgcms/internal/server"
)

func newServeCommand(load func() (*config.AppConfig, error)) *cobra.Command {
	var memory, noScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if memory {
				cfg.Store.Backend = "memory"
				cfg.Cache.Backend = "memory"
				cfg.Security.Revocations = "memory"
			}
			return serve(cmd.Context(), cfg, !noScheduler)
		},
	}

	cmd.Flags().BoolVar(&memory, "memory", false, "keep complaints, users, cache and revocations in process memory")
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "do not enqueue periodic maintenance tasks from this process")
	return cmd
}

func serve(parent context.Context, cfg *config.AppConfig, withScheduler bool) error {
	logger := log.New(cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	handlerSet := handlers.NewHandlerSet(logger, cfg, a.HandlerDependencies())
	httpServer := server.NewHTTPServer(cfg, logger, a.Metrics, handlerSet)

	var scheduler *jobs.Scheduler
	if withScheduler && a.Redis != nil {
		scheduler = jobs.NewScheduler(a.Publisher, cfg.Jobs, logger)
		if err := scheduler.Start(); err != nil {
			logger.Error().Err(err).Msg("scheduler start failed")
			scheduler = nil
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	}

	shutdown(logger, httpServer, scheduler)
	return nil
}

func shutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	if scheduler != nil {
		scheduler.Stop(ctx)
	}

	logger.Info().Msg("server exited cleanly")
}
