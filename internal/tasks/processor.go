package tasks

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"lgcms/internal/aggregate"
	"lgcms/internal/events"
)

type (
	Invalidator interface {
		Invalidate(ctx context.Context, pattern string) (int, error)
	}
	DashboardWarmer interface {
		WarmGlobal(ctx context.Context) error
	}
	RevocationPruner interface {
		Prune(ctx context.Context) (int, error)
	}
	AnalyticsRefresher interface {
		Refresh(ctx context.Context) error
	}
)

type Processor struct {
	cache     Invalidator
	dashboard DashboardWarmer
	sessions  RevocationPruner
	analytics AnalyticsRefresher
	logger    zerolog.Logger
}

func NewProcessor(cache Invalidator, dashboard DashboardWarmer, sessions RevocationPruner, analytics AnalyticsRefresher, logger zerolog.Logger) *Processor {
	return &Processor{
		cache:     cache,
		dashboard: dashboard,
		sessions:  sessions,
		analytics: analytics,
		logger:    logger,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	task, err := events.Decode(msg.Values)
	if err != nil {
		// Undecodable messages would be redelivered forever.
		p.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping malformed task")
		return nil
	}

	switch task.Type {
	case events.TypeComplaintChanged:
		return p.handleComplaintChanged(ctx, task)
	case events.TypeRevocationPrune:
		return p.handlePrune(ctx)
	case events.TypeAnalyticsRefresh:
		return p.handleAnalyticsRefresh(ctx)
	default:
		p.logger.Warn().Str("type", string(task.Type)).Msg("unknown task type")
		return nil
	}
}

func (p *Processor) handleComplaintChanged(ctx context.Context, task events.Task) error {
	if _, err := p.cache.Invalidate(ctx, aggregate.AnalyticsPattern); err != nil {
		return fmt.Errorf("invalidate analytics: %w", err)
	}
	if err := p.dashboard.WarmGlobal(ctx); err != nil {
		return fmt.Errorf("warm dashboard: %w", err)
	}
	p.logger.Debug().
		Str("complaint_id", task.ComplaintID).
		Str("action", string(task.Action)).
		Msg("aggregates refreshed")
	return nil
}

func (p *Processor) handlePrune(ctx context.Context) error {
	removed, err := p.sessions.Prune(ctx)
	if err != nil {
		return fmt.Errorf("prune revocations: %w", err)
	}
	p.logger.Info().Int("removed", removed).Msg("expired revocations pruned")
	return nil
}

func (p *Processor) handleAnalyticsRefresh(ctx context.Context) error {
	if err := p.analytics.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh analytics: %w", err)
	}
	p.logger.Info().Msg("analytics model retrained")
	return nil
}
