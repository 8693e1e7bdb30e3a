package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"lgcms/internal/aggregate"
	"lgcms/internal/config"
	"lgcms/internal/events"
	"lgcms/internal/models"
	"lgcms/internal/repository/memory"
	"lgcms/internal/security"
)

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Environment: "test",
		Security: config.SecurityConfig{
			SessionSecret: "service-test-secret",
			SessionTTL:    time.Hour,
			CookieName:    "token",
		},
		Cache:      config.CacheConfig{Backend: "memory", DashboardTTL: 5 * time.Minute, RecentActivity: 5},
		Store:      config.StoreConfig{Backend: "memory", OperationTimeout: time.Second, MaxMutateRetries: 3},
		Complaints: config.ComplaintConfig{DefaultPageSize: 20, MaxPageSize: 100},
		Storage:    config.StorageConfig{PresignExpiry: 15 * time.Minute},
	}
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu    sync.Mutex
	tasks []events.Task
}

func (p *recordingPublisher) Publish(_ context.Context, task events.Task) error {
	p.mu.Lock()
	p.tasks = append(p.tasks, task)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

// countingCache wraps a cache and counts invalidations, optionally failing them.
type countingCache struct {
	aggregate.Cache
	mu          sync.Mutex
	invalidated []string
	fail        error
}

func (c *countingCache) Invalidate(ctx context.Context, pattern string) (int, error) {
	c.mu.Lock()
	c.invalidated = append(c.invalidated, pattern)
	fail := c.fail
	c.mu.Unlock()
	if fail != nil {
		return 0, fail
	}
	return c.Cache.Invalidate(ctx, pattern)
}

func (c *countingCache) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.invalidated)
}

type fixture struct {
	cfg        *config.AppConfig
	clock      *clock
	complaints *memory.ComplaintStore
	users      *memory.UserStore
	cache      *countingCache
	events     *recordingPublisher
	svc        *ComplaintService
	dashboard  *DashboardService
}

var (
	citizen = models.Identity{ID: "u-citizen", Role: models.RoleCitizen, Name: "wanjiru"}
	other   = models.Identity{ID: "u-other", Role: models.RoleCitizen, Name: "otieno"}
	staff   = models.Identity{ID: "u-staff", Role: models.RoleStaff, Name: "sam"}
	admin   = models.Identity{ID: "u-admin", Role: models.RoleAdmin, Name: "root"}
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		cfg:        testConfig(),
		clock:      newClock(),
		complaints: memory.NewComplaintStore(),
		users:      memory.NewUserStore(),
		events:     &recordingPublisher{},
	}
	f.cache = &countingCache{Cache: aggregate.NewMemoryCache().WithClock(f.clock.Now)}

	for _, id := range []models.Identity{citizen, other, staff, admin} {
		require.NoError(t, f.users.Create(context.Background(), models.User{
			ID: id.ID, Username: id.Name, Email: id.Name + "@example.org", Role: id.Role,
		}))
	}

	f.svc = NewComplaintService(f.complaints, f.users, f.cache, f.events, nil, f.cfg, zerolog.Nop()).WithClock(f.clock.Now)
	f.dashboard = NewDashboardService(f.complaints, f.users, f.cache, nil, f.cfg, zerolog.Nop()).WithClock(f.clock.Now)
	return f
}

func (f *fixture) submit(t *testing.T, who *models.Identity) models.Complaint {
	t.Helper()
	c, err := f.svc.Submit(context.Background(), who, SubmitInput{
		Category:    "Roads",
		Description: "Pothole on Main St",
		Location:    "1.0,2.0",
	})
	require.NoError(t, err)
	return c
}

func ptr(s string) *string { return &s }

func hashFor(t *testing.T, password string) []byte {
	t.Helper()
	hash, err := security.HashPasswordWithParams(password, security.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16})
	require.NoError(t, err)
	return hash
}

var errBoom = errors.New("boom")
