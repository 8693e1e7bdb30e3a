package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lgcms/internal/app"
	"lgcms/internal/config"
	"lgcms/internal/log"
	"lgcms/internal/queue"
	"lgcms/internal/tasks"
)

func main() {
	var configFile, consumerName string

	cmd := &cobra.Command{
		Use:           "lgcms-worker",
		Short:         "Process complaint events and scheduled maintenance tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(configFile)
			if err != nil {
				return err
			}
			if consumerName != "" {
				cfg.Worker.Consumer = consumerName
			}
			return run(cfg)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file path")
	cmd.Flags().StringVar(&consumerName, "consumer", "", "consumer name within the group (default from config)")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig) error {
	logger := log.New(cfg.Environment, cfg.LogLevel).With().Str("process", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.Redis == nil {
		return errors.New("worker needs redis: set cache.backend or security.revocations to redis")
	}

	processor := tasks.NewProcessor(a.Cache, a.Dashboard, a.Authority, a.Analytics, logger)
	consumer := queue.NewConsumer(
		a.Redis,
		cfg.Worker.Stream,
		cfg.Worker.Group,
		cfg.Worker.Consumer,
		cfg.Worker.ClaimInterval,
		logger,
		processor,
	)

	logger.Info().Str("stream", cfg.Worker.Stream).Str("consumer", cfg.Worker.Consumer).Msg("worker started")
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consumer stopped: %w", err)
	}
	logger.Info().Msg("worker stopped")
	return nil
}
