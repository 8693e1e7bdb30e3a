package service

import (
	"strings"
	"time"

	"lgcms/internal/ids"
	"lgcms/internal/models"
)

// Changes is a partial update. Nil fields are left alone; an Assignee pointing
// at an empty string unassigns the complaint.
type Changes struct {
	Status       *string
	Priority     *string
	Assignee     *string
	ResponseText *string
}

type validatedChanges struct {
	status   *models.ComplaintStatus
	priority *models.Priority
	assignee *string
	response string
}

// applyChanges stages changes onto a copy of c. It reports whether anything
// differs from c; when nothing does, c is returned untouched.
func applyChanges(c models.Complaint, ch validatedChanges, responder string, now time.Time) (models.Complaint, bool) {
	next := c.Clone()
	changed := false

	if ch.status != nil && *ch.status != next.Status {
		next.Status = *ch.status
		switch {
		case next.Status == models.StatusResolved && next.ResolvedAt == nil:
			resolved := now
			next.ResolvedAt = &resolved
		case next.Status != models.StatusResolved && next.ResolvedAt != nil:
			next.ResolvedAt = nil
		}
		changed = true
	}

	if ch.priority != nil && *ch.priority != next.Priority {
		next.Priority = *ch.priority
		changed = true
	}

	if ch.assignee != nil {
		switch {
		case *ch.assignee == "" && next.AssigneeID != nil:
			next.AssigneeID = nil
			changed = true
		case *ch.assignee != "" && !next.AssignedTo(*ch.assignee):
			id := *ch.assignee
			next.AssigneeID = &id
			changed = true
		}
	}

	if ch.response != "" {
		next.Responses = append(next.Responses, models.Response{
			ID:        ids.New(),
			Responder: responder,
			Text:      ch.response,
			Timestamp: now,
		})
		changed = true
	}

	if !changed {
		return c, false
	}
	next.UpdatedAt = now
	return next, true
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
