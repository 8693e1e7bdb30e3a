package aggregate

import (
	"math"
	"sort"
	"time"

	"lgcms/internal/models"
)

// Compute derives dashboard statistics from a set of complaints. It is pure so
// both the API and the worker can warm the cache with the same numbers.
func Compute(scope string, complaints []models.Complaint, now time.Time, recentN int) models.DashboardAggregate {
	agg := models.DashboardAggregate{
		Scope:          scope,
		Total:          len(complaints),
		CountsByStatus: make(map[models.ComplaintStatus]int, len(models.ComplaintStatuses)),
		RecentActivity: []models.ActivityItem{},
		GeneratedAt:    now,
	}
	for _, s := range models.ComplaintStatuses {
		agg.CountsByStatus[s] = 0
	}

	for _, c := range complaints {
		agg.CountsByStatus[c.Status]++
		if c.Status.Active() {
			agg.Active++
		}
	}
	agg.Resolved = agg.CountsByStatus[models.StatusResolved]
	if agg.Total > 0 {
		agg.CompletionRate = round2(float64(agg.Resolved) / float64(agg.Total) * 100)
	}

	agg.AverageResolution = AverageResolution(complaints)
	agg.AverageResolutionDays = round2(agg.AverageResolution.Hours() / 24)
	agg.RecentActivity = Recent(complaints, recentN)
	return agg
}

// AverageResolution is the mean of resolved-at minus created-at over resolved
// complaints. With no resolved complaints it is exactly zero.
func AverageResolution(complaints []models.Complaint) time.Duration {
	var (
		sum   time.Duration
		count int64
	)
	for _, c := range complaints {
		if c.Status != models.StatusResolved || c.ResolvedAt == nil {
			continue
		}
		sum += c.ResolvedAt.Sub(c.CreatedAt)
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / time.Duration(count)
}

// Recent returns the n most recently created complaints, newest first.
func Recent(complaints []models.Complaint, n int) []models.ActivityItem {
	sorted := make([]models.Complaint, len(complaints))
	copy(sorted, complaints)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].ID > sorted[j].ID
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}

	items := make([]models.ActivityItem, 0, len(sorted))
	for _, c := range sorted {
		items = append(items, models.ActivityItem{
			ComplaintID: c.ID,
			Category:    c.Category,
			Status:      c.Status,
			UpdatedAt:   c.UpdatedAt,
		})
	}
	return items
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
