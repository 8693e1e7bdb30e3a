// Package app assembles the stores and services selected by configuration.
// The API and the worker share it so both see the same backends.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"lgcms/internal/aggregate"
	"lgcms/internal/analytics"
	"lgcms/internal/cache"
	"lgcms/internal/config"
	"lgcms/internal/database"
	"lgcms/internal/events"
	"lgcms/internal/handlers"
	"lgcms/internal/metrics"
	"lgcms/internal/repository"
	"lgcms/internal/repository/memory"
	"lgcms/internal/revocation"
	"lgcms/internal/service"
	"lgcms/internal/session"
	"lgcms/internal/storage"
)

const bucketCheckTimeout = 3 * time.Second

type App struct {
	Config *config.AppConfig
	Log    zerolog.Logger

	DB      *pgxpool.Pool
	Redis   *redis.Client
	Objects *storage.ObjectStore

	Metrics    *metrics.Metrics
	Cache      aggregate.Cache
	Publisher  events.Publisher
	Authority  *session.Authority
	Auth       *service.AuthService
	Complaints *service.ComplaintService
	Dashboard  *service.DashboardService
	Evidence   *service.EvidenceService
	Analytics  *analytics.Service
}

// Build connects every backend the configuration asks for. On error the
// connections opened so far are closed.
func Build(ctx context.Context, cfg *config.AppConfig, log zerolog.Logger) (_ *App, err error) {
	a := &App{Config: cfg, Log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.New(reg)

	if cfg.Store.Backend == "postgres" || cfg.Security.Revocations == "postgres" {
		if a.DB, err = database.NewPostgresPool(ctx, cfg.Postgres); err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
	}
	if cfg.Cache.Backend == "redis" || cfg.Security.Revocations == "redis" {
		if a.Redis, err = cache.NewRedisClient(ctx, cfg.Redis); err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
	}

	if a.Objects, err = storage.NewObjectStore(cfg.Storage); err != nil {
		return nil, fmt.Errorf("object store: %w", err)
	}
	bctx, cancel := context.WithTimeout(ctx, bucketCheckTimeout)
	if err := a.Objects.EnsureBucket(bctx); err != nil {
		log.Warn().Err(err).Msg("ensure evidence bucket failed")
	}
	cancel()

	var (
		complaints service.ComplaintStore
		users      service.UserStore
	)
	switch cfg.Store.Backend {
	case "postgres":
		complaints = repository.NewComplaintRepository(a.DB, cfg.Store.OperationTimeout)
		users = repository.NewUserRepository(a.DB, cfg.Store.OperationTimeout)
	default:
		log.Warn().Msg("using in-memory complaint store, data is lost on restart")
		complaints = memory.NewComplaintStore()
		users = memory.NewUserStore()
	}

	var revocations revocation.Store
	switch cfg.Security.Revocations {
	case "postgres":
		revocations = repository.NewRevocationRepository(a.DB, cfg.Store.OperationTimeout)
	case "redis":
		revocations = revocation.NewRedisStore(a.Redis)
	default:
		revocations = revocation.NewMemoryStore()
	}

	switch cfg.Cache.Backend {
	case "redis":
		a.Cache = aggregate.NewRedisCache(a.Redis, cfg.Redis.KeyPrefix)
	default:
		a.Cache = aggregate.NewMemoryCache()
	}

	a.Publisher = events.NopPublisher{}
	if a.Redis != nil {
		a.Publisher = events.NewStreamPublisher(a.Redis, cfg.Worker.Stream)
	}

	a.Authority = session.NewAuthority(cfg.Security.SessionSecret, cfg.Security.SessionTTL, revocations, a.Metrics, log)
	a.Auth = service.NewAuthService(users, a.Authority, cfg, log)
	a.Complaints = service.NewComplaintService(complaints, users, a.Cache, a.Publisher, a.Metrics, cfg, log)
	a.Dashboard = service.NewDashboardService(complaints, users, a.Cache, a.Metrics, cfg, log)
	a.Evidence = service.NewEvidenceService(a.Objects, cfg)
	a.Analytics = analytics.NewService(analytics.NewClient(cfg.Analytics, log), a.Cache, cfg.Cache.AnalyticsTTL, a.Metrics, log)

	return a, nil
}

func (a *App) HandlerDependencies() handlers.Dependencies {
	deps := handlers.Dependencies{
		Authority:  a.Authority,
		Auth:       a.Auth,
		Complaints: a.Complaints,
		Dashboard:  a.Dashboard,
		Evidence:   a.Evidence,
		Analytics:  a.Analytics,
		Metrics:    a.Metrics,
	}
	if a.DB != nil {
		deps.Checks = append(deps.Checks, handlers.HealthCheck{Name: "database", Ping: a.DB.Ping})
	}
	if a.Redis != nil {
		deps.Checks = append(deps.Checks, handlers.HealthCheck{Name: "redis", Ping: func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		}})
	}
	if a.Objects != nil {
		deps.Checks = append(deps.Checks, handlers.HealthCheck{Name: "objects", Ping: a.Objects.Ping})
	}
	return deps
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			a.Log.Error().Err(err).Msg("redis close error")
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
