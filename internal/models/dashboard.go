package models

import "time"

type ActivityItem struct {
	ComplaintID string          `json:"complaintId"`
	Category    string          `json:"category"`
	Status      ComplaintStatus `json:"status"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// DashboardAggregate is a derived view. It can always be rebuilt from the
// complaint store, so losing it only costs a recomputation.
type DashboardAggregate struct {
	Scope                 string                  `json:"scope"`
	Total                 int                     `json:"total"`
	CountsByStatus        map[ComplaintStatus]int `json:"countsByStatus"`
	CountsByRole          map[Role]int            `json:"countsByRole,omitempty"`
	Active                int                     `json:"active"`
	Resolved              int                     `json:"resolved"`
	CompletionRate        float64                 `json:"completionRate"`
	AverageResolution     time.Duration           `json:"averageResolution"`
	AverageResolutionDays float64                 `json:"averageResolutionDays"`
	RecentActivity        []ActivityItem          `json:"recentActivity"`
	GeneratedAt           time.Time               `json:"generatedAt"`
}
