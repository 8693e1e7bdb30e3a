package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lgcms/internal/analytics"
	"lgcms/internal/response"
	"lgcms/internal/service"
)

type createStaffRequest struct {
	Username     string `json:"username" binding:"required,min=3,max=50"`
	Email        string `json:"email" binding:"required,email"`
	FullName     string `json:"fullName" binding:"max=120"`
	Password     string `json:"password" binding:"required,min=8"`
	Role         string `json:"role" binding:"required,oneof=staff admin"`
	DepartmentID string `json:"departmentId"`
}

func (h HandlerSet) CreateStaff(c *gin.Context) {
	var req createStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, bindError(err))
		return
	}

	user, err := h.auth.CreateStaff(c.Request.Context(), identity(c), service.CreateStaffInput{
		Username:     req.Username,
		Email:        req.Email,
		FullName:     req.FullName,
		Password:     req.Password,
		Role:         req.Role,
		DepartmentID: req.DepartmentID,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, http.StatusCreated, gin.H{"user": newUserResponse(user)})
}

func (h HandlerSet) AnalyticsChart(c *gin.Context) {
	payload, err := h.analytics.Chart(c.Request.Context(), c.Param("chart"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, payload)
}

type predictRequest struct {
	DescriptionLength int `json:"complaint_description_length" binding:"required,gt=0"`
	EvidenceCount     int `json:"num_evidence_files" binding:"gte=0"`
}

func (h HandlerSet) PredictResolution(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, bindError(err))
		return
	}

	prediction, err := h.analytics.Predict(c.Request.Context(), analytics.PredictInput{
		DescriptionLength: req.DescriptionLength,
		EvidenceCount:     req.EvidenceCount,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, prediction)
}
