// Package aggregate caches derived dashboard and analytics views and computes
// dashboard statistics from complaint records.
package aggregate

import (
	"context"
	"time"
)

// Key patterns shared by the writers that invalidate and the readers that fill.
const (
	DashboardPrefix = "dashboard:"
	AnalyticsPrefix = "analytics:"

	DashboardPattern = DashboardPrefix + "*"
	AnalyticsPattern = AnalyticsPrefix + "*"
)

// Cache stores JSON encoded values with a TTL. Patterns use glob syntax where
// '*' matches any run of characters.
type Cache interface {
	// Get decodes the cached value into dst and reports whether it was present.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Put(ctx context.Context, key string, value any, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) (int, error)
	// Generation advances on every Invalidate call, before any key is removed.
	// A filler that reads it before loading and again after Put knows whether
	// an invalidation raced its load.
	Generation() uint64
}

func DashboardGlobalKey() string { return DashboardPrefix + "global" }

func DashboardStaffKey(userID string) string { return DashboardPrefix + "staff:" + userID }

func DashboardCitizenKey(userID string) string { return DashboardPrefix + "citizen:" + userID }

func AnalyticsKey(chart string) string { return AnalyticsPrefix + chart }
