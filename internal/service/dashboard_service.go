package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"lgcms/internal/aggregate"
	"lgcms/internal/config"
	"lgcms/internal/metrics"
	"lgcms/internal/models"
)

const recomputeTimeout = 10 * time.Second

type DashboardService struct {
	complaints ComplaintStore
	users      UserStore
	cache      aggregate.Cache
	metrics    *metrics.Metrics
	cfg        *config.AppConfig
	log        zerolog.Logger
	group      singleflight.Group
	now        func() time.Time
}

func NewDashboardService(
	complaints ComplaintStore,
	users UserStore,
	cache aggregate.Cache,
	m *metrics.Metrics,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *DashboardService {
	return &DashboardService{
		complaints: complaints,
		users:      users,
		cache:      cache,
		metrics:    m,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

func (s *DashboardService) WithClock(now func() time.Time) *DashboardService {
	s.now = now
	return s
}

// Stats returns the dashboard for the viewer: admins see global numbers, staff
// their assigned queue and citizens their own complaints.
func (s *DashboardService) Stats(ctx context.Context, viewer models.Identity) (models.DashboardAggregate, error) {
	key, scope, filter := dashboardScope(viewer)

	var cached models.DashboardAggregate
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("dashboard cache read failed")
	}
	s.metrics.CacheLookup(hit)
	if hit {
		return cached, nil
	}

	// Concurrent misses on the same key share one recomputation. The flight
	// is keyed by cache generation so a request that arrives after a write
	// never joins a load started before it.
	gen := s.cache.Generation()
	v, err, _ := s.group.Do(fmt.Sprintf("%s@%d", key, gen), func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recomputeTimeout)
		defer cancel()
		return s.recompute(rctx, gen, key, scope, filter)
	})
	if err != nil {
		return models.DashboardAggregate{}, err
	}
	return v.(models.DashboardAggregate), nil
}

// WarmGlobal recomputes and caches the admin dashboard.
func (s *DashboardService) WarmGlobal(ctx context.Context) error {
	_, err := s.recompute(ctx, s.cache.Generation(), aggregate.DashboardGlobalKey(), "global", models.ComplaintFilter{})
	return err
}

// recompute loads and caches one dashboard. gen is the cache generation read
// before the load; if an invalidation happened since, the stored copy may
// predate that write and is dropped again.
func (s *DashboardService) recompute(ctx context.Context, gen uint64, key, scope string, filter models.ComplaintFilter) (models.DashboardAggregate, error) {
	items, err := s.complaints.List(ctx, filter)
	if err != nil {
		return models.DashboardAggregate{}, storeError("load dashboard complaints", err)
	}

	agg := aggregate.Compute(scope, items, s.now(), s.cfg.Cache.RecentActivity)
	if scope == "global" {
		counts, err := s.users.CountByRole(ctx)
		if err != nil {
			return models.DashboardAggregate{}, storeError("count users", err)
		}
		agg.CountsByRole = counts
	}

	if err := s.cache.Put(ctx, key, agg, s.cfg.Cache.DashboardTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("dashboard cache write failed")
		return agg, nil
	}
	if s.cache.Generation() != gen {
		if _, err := s.cache.Invalidate(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("dropping raced dashboard failed")
		}
	}
	return agg, nil
}

func dashboardScope(viewer models.Identity) (string, string, models.ComplaintFilter) {
	switch viewer.Role {
	case models.RoleAdmin:
		return aggregate.DashboardGlobalKey(), "global", models.ComplaintFilter{}
	case models.RoleStaff:
		return aggregate.DashboardStaffKey(viewer.ID), fmt.Sprintf("staff:%s", viewer.ID), models.ComplaintFilter{AssigneeID: viewer.ID}
	default:
		return aggregate.DashboardCitizenKey(viewer.ID), fmt.Sprintf("citizen:%s", viewer.ID), models.ComplaintFilter{SubmitterID: viewer.ID}
	}
}
