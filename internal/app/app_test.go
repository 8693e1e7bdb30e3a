package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lgcms/internal/aggregate"
	"lgcms/internal/config"
	"lgcms/internal/events"
	"lgcms/internal/models"
	"lgcms/internal/service"
	"lgcms/internal/session"
)

func baseConfig() *config.AppConfig {
	return &config.AppConfig{
		Environment: "test",
		Security: config.SecurityConfig{
			SessionSecret: "app-test-secret",
			SessionTTL:    time.Hour,
			CookieName:    "token",
			Revocations:   "memory",
		},
		Cache:   config.CacheConfig{Backend: "memory", DashboardTTL: time.Minute},
		Store:   config.StoreConfig{Backend: "memory", OperationTimeout: time.Second, MaxMutateRetries: 3},
		Storage: config.StorageConfig{Endpoint: "127.0.0.1:1", AccessKey: "k", SecretKey: "s", BucketEvidence: "evidence", Region: "us-east-1"},
		Worker:  config.WorkerConfig{Stream: "lgcms:tasks"},
	}
}

func TestBuildInMemory(t *testing.T) {
	a, err := Build(context.Background(), baseConfig(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Nil(t, a.DB)
	assert.Nil(t, a.Redis)
	assert.IsType(t, events.NopPublisher{}, a.Publisher)
	assert.IsType(t, &aggregate.MemoryCache{}, a.Cache)

	deps := a.HandlerDependencies()
	require.Len(t, deps.Checks, 1)
	assert.Equal(t, "objects", deps.Checks[0].Name)
}

func TestBuildWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := baseConfig()
	cfg.Cache.Backend = "redis"
	cfg.Security.Revocations = "redis"
	cfg.Redis = config.RedisConfig{Addr: mr.Addr(), KeyPrefix: "lgcms:"}

	a, err := Build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	ctx := context.Background()

	token, err := a.Authority.Issue(models.Identity{ID: "u1", Role: models.RoleStaff})
	require.NoError(t, err)
	require.NoError(t, a.Authority.Revoke(ctx, token.Raw))

	res, err := a.Authority.Verify(ctx, token.Raw)
	require.NoError(t, err)
	assert.Equal(t, session.ReasonRevoked, res.Reason)

	_, err = a.Complaints.Submit(ctx, nil, serviceSubmit())
	require.NoError(t, err)
	assert.True(t, mr.Exists("lgcms:tasks"), "complaint events are published to the stream")
}

func serviceSubmit() service.SubmitInput {
	return service.SubmitInput{Category: "Sanitation", Description: "Uncollected garbage", Location: "Market Rd"}
}
