package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"lgcms/internal/aggregate"
	"lgcms/internal/apperr"
	"lgcms/internal/metrics"
)

// Backend is the subset of Client the service depends on.
type Backend interface {
	Chart(ctx context.Context, name string) (json.RawMessage, error)
	PredictResolution(ctx context.Context, input PredictInput) (Prediction, error)
	Retrain(ctx context.Context) error
}

// Service fronts the analytics backend with the aggregate cache. Chart payloads
// live under analytics:<chart> until the next complaint write clears them.
type Service struct {
	backend Backend
	cache   aggregate.Cache
	ttl     time.Duration
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewService(backend Backend, cache aggregate.Cache, ttl time.Duration, m *metrics.Metrics, log zerolog.Logger) *Service {
	return &Service{backend: backend, cache: cache, ttl: ttl, metrics: m, log: log}
}

func (s *Service) Chart(ctx context.Context, name string) (json.RawMessage, error) {
	if !KnownChart(name) {
		return nil, apperr.NotFound("unknown chart " + name)
	}

	key := aggregate.AnalyticsKey(name)
	var cached json.RawMessage
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("analytics cache read failed")
	}
	s.metrics.CacheLookup(hit)
	if hit {
		return cached, nil
	}

	payload, err := s.backend.Chart(ctx, name)
	if err != nil {
		return nil, translate(err)
	}
	if err := s.cache.Put(ctx, key, payload, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("analytics cache write failed")
	}
	return payload, nil
}

func (s *Service) Predict(ctx context.Context, input PredictInput) (Prediction, error) {
	if input.DescriptionLength <= 0 || input.EvidenceCount < 0 {
		return Prediction{}, apperr.Validation("description length must be positive and evidence count non-negative")
	}
	p, err := s.backend.PredictResolution(ctx, input)
	if err != nil {
		return Prediction{}, translate(err)
	}
	return p, nil
}

// Refresh retrains the model and drops every cached chart.
func (s *Service) Refresh(ctx context.Context) error {
	if err := s.backend.Retrain(ctx); err != nil {
		return translate(err)
	}
	if _, err := s.cache.Invalidate(ctx, aggregate.AnalyticsPattern); err != nil {
		s.log.Warn().Err(err).Msg("analytics cache invalidation failed")
	}
	return nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, ErrUnknownChart):
		return apperr.Wrap(apperr.KindNotFound, "unknown chart", err)
	case errors.Is(err, ErrRejected):
		return apperr.Wrap(apperr.KindValidation, "analytics request rejected", err)
	default:
		return apperr.Wrap(apperr.KindUpstream, "analytics service unavailable", err)
	}
}
