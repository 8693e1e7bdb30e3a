package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"lgcms/internal/apperr"
	"lgcms/internal/models"
	"lgcms/internal/response"
	"lgcms/internal/session"
)

const (
	identityKey = "current_identity"
	tokenKey    = "session_token"
)

var errNoToken = apperr.New(apperr.KindUnauthorized, "Not authorized to access this route")

// Verifier is satisfied by *session.Authority.
type Verifier interface {
	Verify(ctx context.Context, raw string) (session.Result, error)
}

// RequireSession rejects the request unless it carries a valid, unrevoked
// session token in the Authorization header or the session cookie.
func RequireSession(verifier Verifier, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractToken(c, cookieName)
		if raw == "" {
			response.Fail(c, errNoToken)
			return
		}

		result, err := verifier.Verify(c.Request.Context(), raw)
		if err != nil {
			response.Fail(c, err)
			return
		}
		if !result.Valid() {
			response.Fail(c, result.Err())
			return
		}

		c.Set(identityKey, result.Identity)
		c.Set(tokenKey, raw)
		c.Next()
	}
}

// OptionalSession attaches the identity when a valid token is present and
// otherwise lets the request through as anonymous.
func OptionalSession(verifier Verifier, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := extractToken(c, cookieName); raw != "" {
			result, err := verifier.Verify(c.Request.Context(), raw)
			if err == nil && result.Valid() {
				c.Set(identityKey, result.Identity)
				c.Set(tokenKey, raw)
			}
		}
		c.Next()
	}
}

func CurrentIdentity(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return models.Identity{}, false
	}
	identity, ok := v.(models.Identity)
	return identity, ok
}

// SessionToken returns the raw token that authenticated the request.
func SessionToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}

func extractToken(c *gin.Context, cookieName string) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if cookieName == "" {
		return ""
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}
