package analytics

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lgcms/internal/aggregate"
	"lgcms/internal/apperr"
)

type stubBackend struct {
	charts   int
	retrains int
	err      error
}

func (b *stubBackend) Chart(_ context.Context, name string) (json.RawMessage, error) {
	b.charts++
	if b.err != nil {
		return nil, b.err
	}
	return json.RawMessage(`{"chart":"` + name + `"}`), nil
}

func (b *stubBackend) PredictResolution(context.Context, PredictInput) (Prediction, error) {
	if b.err != nil {
		return Prediction{}, b.err
	}
	return Prediction{Days: 3}, nil
}

func (b *stubBackend) Retrain(context.Context) error {
	b.retrains++
	return b.err
}

func TestServiceCachesCharts(t *testing.T) {
	backend := &stubBackend{}
	cache := aggregate.NewMemoryCache()
	svc := NewService(backend, cache, time.Hour, nil, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		payload, err := svc.Chart(ctx, "complaint_trends")
		require.NoError(t, err)
		assert.JSONEq(t, `{"chart":"complaint_trends"}`, string(payload))
	}
	assert.Equal(t, 1, backend.charts)

	_, err := cache.Invalidate(ctx, aggregate.AnalyticsPattern)
	require.NoError(t, err)
	_, err = svc.Chart(ctx, "complaint_trends")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.charts)
}

func TestServiceRefreshClearsCharts(t *testing.T) {
	backend := &stubBackend{}
	svc := NewService(backend, aggregate.NewMemoryCache(), time.Hour, nil, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Chart(ctx, "user_role_distribution")
	require.NoError(t, err)
	require.NoError(t, svc.Refresh(ctx))
	_, err = svc.Chart(ctx, "user_role_distribution")
	require.NoError(t, err)

	assert.Equal(t, 1, backend.retrains)
	assert.Equal(t, 2, backend.charts)
}

func TestServiceErrors(t *testing.T) {
	svc := NewService(&stubBackend{err: ErrUnavailable}, aggregate.NewMemoryCache(), time.Hour, nil, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Chart(ctx, "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.Chart(ctx, "complaint_trends")
	assert.ErrorIs(t, err, apperr.ErrUpstream)
	assert.True(t, apperr.Retryable(err))

	_, err = svc.Predict(ctx, PredictInput{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
