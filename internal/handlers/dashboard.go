package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lgcms/internal/response"
)

func (h HandlerSet) DashboardStats(c *gin.Context) {
	stats, err := h.dashboard.Stats(c.Request.Context(), identity(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, stats)
}
