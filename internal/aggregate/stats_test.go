package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lgcms/internal/models"
)

var base = time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)

func complaint(id string, status models.ComplaintStatus, created time.Time, resolvedAfter time.Duration) models.Complaint {
	c := models.Complaint{ID: id, Category: "Roads", Status: status, CreatedAt: created, UpdatedAt: created}
	if status == models.StatusResolved {
		r := created.Add(resolvedAfter)
		c.ResolvedAt = &r
	}
	return c
}

func TestAverageResolutionWithNoResolved(t *testing.T) {
	items := []models.Complaint{
		complaint("a", models.StatusPending, base, 0),
		complaint("b", models.StatusRejected, base, 0),
	}
	assert.Equal(t, time.Duration(0), AverageResolution(items))
	assert.Equal(t, time.Duration(0), AverageResolution(nil))
}

func TestAverageResolutionOnlyCountsResolved(t *testing.T) {
	items := []models.Complaint{
		complaint("a", models.StatusResolved, base, 24*time.Hour),
		complaint("b", models.StatusResolved, base, 72*time.Hour),
		complaint("c", models.StatusInProgress, base, 0),
	}
	assert.Equal(t, 48*time.Hour, AverageResolution(items))
}

func TestComputeDashboard(t *testing.T) {
	items := []models.Complaint{
		complaint("a", models.StatusPending, base, 0),
		complaint("b", models.StatusInProgress, base.Add(time.Hour), 0),
		complaint("c", models.StatusResolved, base.Add(2*time.Hour), 36*time.Hour),
		complaint("d", models.StatusRejected, base.Add(3*time.Hour), 0),
	}

	agg := Compute("global", items, base.Add(48*time.Hour), 2)

	assert.Equal(t, 4, agg.Total)
	assert.Equal(t, 2, agg.Active)
	assert.Equal(t, 1, agg.Resolved)
	assert.Equal(t, 1, agg.CountsByStatus[models.StatusRejected])
	assert.Equal(t, 25.0, agg.CompletionRate)
	assert.Equal(t, 36*time.Hour, agg.AverageResolution)
	assert.Equal(t, 1.5, agg.AverageResolutionDays)
	if assert.Len(t, agg.RecentActivity, 2) {
		assert.Equal(t, "d", agg.RecentActivity[0].ComplaintID)
		assert.Equal(t, "c", agg.RecentActivity[1].ComplaintID)
	}
}

func TestComputeEmpty(t *testing.T) {
	agg := Compute("citizen", nil, base, 5)

	assert.Zero(t, agg.Total)
	assert.Zero(t, agg.CompletionRate)
	assert.Zero(t, agg.AverageResolution)
	assert.Empty(t, agg.RecentActivity)
	assert.Contains(t, agg.CountsByStatus, models.StatusPending)
}
