package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"lgcms/internal/response"
	"lgcms/internal/service"
)

type submitComplaintRequest struct {
	Category    string   `json:"category" binding:"required,max=100"`
	Description string   `json:"description" binding:"required,max=5000"`
	Location    string   `json:"location" binding:"required,max=500"`
	Priority    string   `json:"priority" binding:"omitempty,complaint_priority"`
	Evidence    []string `json:"evidence" binding:"max=10,dive,max=1024"`
}

func (h HandlerSet) SubmitComplaint(c *gin.Context) {
	var req submitComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, bindError(err))
		return
	}

	complaint, err := h.complaints.Submit(c.Request.Context(), optionalIdentity(c), service.SubmitInput{
		Category:    req.Category,
		Description: req.Description,
		Location:    req.Location,
		Priority:    req.Priority,
		Evidence:    req.Evidence,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, http.StatusCreated, newComplaintResponse(complaint))
}

type listComplaintsQuery struct {
	Status   string `form:"status" binding:"omitempty,complaint_status"`
	Priority string `form:"priority" binding:"omitempty,complaint_priority"`
	Category string `form:"category"`
	Search   string `form:"q"`
	Assigned bool   `form:"assigned"`
	Page     int    `form:"page" binding:"gte=0"`
	PageSize int    `form:"pageSize" binding:"gte=0"`
}

func (h HandlerSet) ListComplaints(c *gin.Context) {
	var q listComplaintsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Fail(c, bindError(err))
		return
	}

	page, err := h.complaints.List(c.Request.Context(), identity(c), service.ListInput{
		Status:       q.Status,
		Priority:     q.Priority,
		Category:     q.Category,
		Search:       q.Search,
		AssignedOnly: q.Assigned,
		Page:         q.Page,
		PageSize:     q.PageSize,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}

	items := make([]complaintResponse, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, newComplaintResponse(item))
	}
	response.OK(c, http.StatusOK, complaintListResponse{
		Items:    items,
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	})
}

func (h HandlerSet) GetComplaint(c *gin.Context) {
	complaint, err := h.complaints.Get(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, newComplaintResponse(complaint))
}

// mutateComplaintRequest is a partial update. An empty assignedTo unassigns.
// nullableString tells an absent JSON field apart from an explicit null.
type nullableString struct {
	Set   bool
	Value string
}

func (n *nullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = ""
		return nil
	}
	return json.Unmarshal(data, &n.Value)
}

// ptr returns nil when the field was absent and the value otherwise, with
// null read as the empty string.
func (n nullableString) ptr() *string {
	if !n.Set {
		return nil
	}
	v := n.Value
	return &v
}

type mutateComplaintRequest struct {
	Status       *string        `json:"status" binding:"omitempty,complaint_status"`
	Priority     *string        `json:"priority" binding:"omitempty,complaint_priority"`
	AssignedTo   nullableString `json:"assignedTo" binding:"omitempty,max=64"`
	ResponseText *string        `json:"responseText" binding:"omitempty,max=5000"`
}

func (h HandlerSet) MutateComplaint(c *gin.Context) {
	var req mutateComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, bindError(err))
		return
	}

	complaint, err := h.complaints.Mutate(c.Request.Context(), identity(c), c.Param("id"), service.Changes{
		Status:       req.Status,
		Priority:     req.Priority,
		Assignee:     req.AssignedTo.ptr(),
		ResponseText: req.ResponseText,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, newComplaintResponse(complaint))
}

func (h HandlerSet) RemoveComplaint(c *gin.Context) {
	if err := h.complaints.Remove(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		response.Fail(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Complaint removed")
}
