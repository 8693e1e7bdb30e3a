package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"lgcms/internal/config"
	"lgcms/internal/events"
)

const enqueueTimeout = 5 * time.Second

// Scheduler enqueues periodic maintenance tasks for the worker.
type Scheduler struct {
	cron      *cron.Cron
	publisher events.Publisher
	cfg       config.JobsConfig
	log       zerolog.Logger
}

func NewScheduler(publisher events.Publisher, cfg config.JobsConfig, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		publisher: publisher,
		cfg:       cfg,
		log:       log.With().Str("component", "scheduler").Logger(),
	}
}

// Start registers every job with a non-empty spec and starts the cron loop.
func (s *Scheduler) Start() error {
	jobs := []struct {
		spec string
		task events.Type
	}{
		{s.cfg.PruneRevocations, events.TypeRevocationPrune},
		{s.cfg.RefreshAnalytics, events.TypeAnalyticsRefresh},
	}
	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		task := job.task
		if _, err := s.cron.AddFunc(job.spec, func() { s.enqueue(task) }); err != nil {
			return fmt.Errorf("schedule %s %q: %w", task, job.spec, err)
		}
		s.log.Info().Str("task", string(task)).Str("spec", job.spec).Msg("job scheduled")
	}

	s.cron.Start()
	return nil
}

// Stop waits for running jobs to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) enqueue(task events.Type) {
	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, events.Task{Type: task}); err != nil {
		s.log.Error().Err(err).Str("task", string(task)).Msg("enqueue failed")
	}
}
