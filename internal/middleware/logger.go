package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"lgcms/internal/response"
)

// Logger writes one line per request. Client errors log at warn with the
// failure kind; server errors log at error with the wrapped cause.
func Logger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		switch {
		case status >= 500:
			event = log.Error().Str("error", c.Errors.String())
		case status >= 400:
			event = log.Warn()
		}
		if kind := response.KindFrom(c); kind != "" {
			event = event.Str("kind", string(kind))
		}

		withRequest(event, c).
			Str("method", c.Request.Method).
			Str("client_ip", c.ClientIP()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}

// withRequest adds the request id, matched route, caller and complaint under
// work to event.
func withRequest(event *zerolog.Event, c *gin.Context) *zerolog.Event {
	event = event.Str("request_id", RequestIDFrom(c)).Str("route", c.FullPath())

	if identity, ok := CurrentIdentity(c); ok {
		event = event.Str("user_id", identity.ID).Str("role", string(identity.Role))
	} else {
		event = event.Bool("anonymous", true)
	}
	if id := c.Param("id"); id != "" {
		event = event.Str("complaint_id", id)
	}
	return event
}
