package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"lgcms/internal/response"
)

var errPanic = errors.New("panic")

// Recovery turns a handler panic into a 500 envelope. A panic after the
// response was written only gets logged.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			withRequest(log.Error(), c).
				Interface("panic", r).
				Bool("response_written", c.Writer.Written()).
				Msg("handler panicked")
			if !c.Writer.Written() {
				response.Fail(c, errPanic)
				return
			}
			c.Abort()
		}()
		c.Next()
	}
}
