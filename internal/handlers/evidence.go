package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lgcms/internal/response"
)

type evidenceUploadRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

func (h HandlerSet) CreateEvidenceUpload(c *gin.Context) {
	var req evidenceUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, bindError(err))
		return
	}

	upload, err := h.evidence.CreateUpload(c.Request.Context(), optionalIdentity(c), req.ContentType)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, http.StatusCreated, upload)
}
