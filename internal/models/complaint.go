package models

import (
	"strconv"
	"strings"
	"time"
)

type ComplaintStatus string

const (
	StatusPending    ComplaintStatus = "Pending"
	StatusInProgress ComplaintStatus = "In Progress"
	StatusResolved   ComplaintStatus = "Resolved"
	StatusRejected   ComplaintStatus = "Rejected"
)

var ComplaintStatuses = []ComplaintStatus{StatusPending, StatusInProgress, StatusResolved, StatusRejected}

func ParseComplaintStatus(raw string) (ComplaintStatus, bool) {
	for _, s := range ComplaintStatuses {
		if string(s) == raw {
			return s, true
		}
	}
	// legacy records carry a lowercase pending
	if raw == "pending" {
		return StatusPending, true
	}
	return "", false
}

// Active reports whether the complaint still needs work.
func (s ComplaintStatus) Active() bool {
	return s == StatusPending || s == StatusInProgress
}

type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

const DefaultPriority = PriorityMedium

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

func ParsePriority(raw string) (Priority, bool) {
	for _, p := range Priorities {
		if string(p) == raw {
			return p, true
		}
	}
	return "", false
}

// KnownCategories lists the categories offered by the citizen portal.
var KnownCategories = []string{
	"Roads", "Water", "Sanitation", "Health", "Education", "Security", "Other",
	"Public Safety", "Electricity Outage", "Waste Management", "Traffic Management",
	"Housing", "Environment", "Drainage Issues", "Public Transport", "Community Development",
}

func IsKnownCategory(category string) bool {
	for _, c := range KnownCategories {
		if c == category {
			return true
		}
	}
	return false
}

type Location struct {
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// ParseLocation keeps the free text as the address and, when the text is a
// "lat,lng" pair, fills in the coordinates as well.
func ParseLocation(text string) Location {
	text = strings.TrimSpace(text)
	loc := Location{Address: text}

	parts := strings.Split(text, ",")
	if len(parts) != 2 {
		return loc
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || lat < -90 || lat > 90 {
		return loc
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || lng < -180 || lng > 180 {
		return loc
	}
	loc.Latitude = &lat
	loc.Longitude = &lng
	return loc
}

func (l Location) Empty() bool {
	return l.Address == "" && l.Latitude == nil
}

type Response struct {
	ID        string    `json:"id"`
	Responder string    `json:"responder"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type Complaint struct {
	ID          string
	SubmitterID *string
	Category    string
	Description string
	Status      ComplaintStatus
	Priority    Priority
	AssigneeID  *string
	Location    Location
	Evidence    []string
	Responses   []Response
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ResolvedAt  *time.Time
	// Version is bumped on every persisted write and guards concurrent saves.
	Version int64
}

// Clone returns a deep copy so callers can stage changes without touching the
// loaded record.
func (c Complaint) Clone() Complaint {
	out := c
	out.SubmitterID = cloneString(c.SubmitterID)
	out.AssigneeID = cloneString(c.AssigneeID)
	if c.ResolvedAt != nil {
		t := *c.ResolvedAt
		out.ResolvedAt = &t
	}
	if c.Location.Latitude != nil {
		v := *c.Location.Latitude
		out.Location.Latitude = &v
	}
	if c.Location.Longitude != nil {
		v := *c.Location.Longitude
		out.Location.Longitude = &v
	}
	if c.Evidence != nil {
		out.Evidence = append([]string(nil), c.Evidence...)
	}
	if c.Responses != nil {
		out.Responses = append([]Response(nil), c.Responses...)
	}
	return out
}

func (c Complaint) SubmittedBy(userID string) bool {
	return c.SubmitterID != nil && *c.SubmitterID == userID
}

func (c Complaint) AssignedTo(userID string) bool {
	return c.AssigneeID != nil && *c.AssigneeID == userID
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// ComplaintFilter narrows complaint queries. Zero values match everything.
type ComplaintFilter struct {
	SubmitterID string
	AssigneeID  string
	Status      ComplaintStatus
	Priority    Priority
	Category    string
	Search      string
}
