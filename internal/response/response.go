// Package response writes the JSON envelope every endpoint answers with.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lgcms/internal/apperr"
)

const kindKey = "lgcms.error_kind"

type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Kind    apperr.Kind `json:"kind,omitempty"`
	Data    any         `json:"data,omitempty"`
}

func OK(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

func Message(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{Success: true, Message: message})
}

// Fail aborts the request with the error's kind and caller-safe message.
func Fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := Status(kind)
	c.Set(kindKey, kind)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	if apperr.Retryable(err) {
		c.Header("Retry-After", "1")
	}
	c.AbortWithStatusJSON(status, Envelope{Success: false, Kind: kind, Message: apperr.MessageOf(err)})
}

// KindFrom returns the kind of the failure Fail wrote, or "" when the
// request did not fail.
func KindFrom(c *gin.Context) apperr.Kind {
	kind, _ := c.Get(kindKey)
	k, _ := kind.(apperr.Kind)
	return k
}

func Status(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindInvalidAssignment:
		return http.StatusBadRequest
	case apperr.KindUnauthorized, apperr.KindMalformedToken, apperr.KindExpiredToken, apperr.KindRevokedToken:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	case apperr.KindStoreUnavailable, apperr.KindUpstream:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
