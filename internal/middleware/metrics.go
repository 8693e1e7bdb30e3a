package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"lgcms/internal/metrics"
)

func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.RequestStarted()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestFinished(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
