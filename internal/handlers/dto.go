package handlers

import (
	"time"

	"lgcms/internal/models"
)

type userResponse struct {
	ID           string      `json:"id"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	FullName     string      `json:"fullName,omitempty"`
	Role         models.Role `json:"role"`
	DepartmentID *string     `json:"departmentId,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FullName:     u.FullName,
		Role:         u.Role,
		DepartmentID: u.DepartmentID,
		CreatedAt:    u.CreatedAt,
	}
}

type complaintResponse struct {
	ID          string                 `json:"id"`
	SubmittedBy *string                `json:"submittedBy"`
	Anonymous   bool                   `json:"anonymous"`
	Category    string                 `json:"category"`
	Description string                 `json:"description"`
	Status      models.ComplaintStatus `json:"status"`
	Priority    models.Priority        `json:"priority"`
	AssignedTo  *string                `json:"assignedTo"`
	Location    models.Location        `json:"location"`
	Evidence    []string               `json:"evidence"`
	Responses   []models.Response      `json:"responses"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
	ResolvedAt  *time.Time             `json:"resolvedAt"`
	Version     int64                  `json:"version"`
}

func newComplaintResponse(c models.Complaint) complaintResponse {
	evidence := c.Evidence
	if evidence == nil {
		evidence = []string{}
	}
	responses := c.Responses
	if responses == nil {
		responses = []models.Response{}
	}
	return complaintResponse{
		ID:          c.ID,
		SubmittedBy: c.SubmitterID,
		Anonymous:   c.SubmitterID == nil,
		Category:    c.Category,
		Description: c.Description,
		Status:      c.Status,
		Priority:    c.Priority,
		AssignedTo:  c.AssigneeID,
		Location:    c.Location,
		Evidence:    evidence,
		Responses:   responses,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		ResolvedAt:  c.ResolvedAt,
		Version:     c.Version,
	}
}

type complaintListResponse struct {
	Items    []complaintResponse `json:"items"`
	Total    int                 `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"pageSize"`
}
