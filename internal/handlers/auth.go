package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"lgcms/internal/apperr"
	"lgcms/internal/middleware"
	"lgcms/internal/models"
	"lgcms/internal/response"
	"lgcms/internal/service"
)

type registerRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"fullName" binding:"max=120"`
	Password string `json:"password" binding:"required,min=8"`
}

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      userResponse `json:"user"`
}

func (h HandlerSet) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, bindError(err))
		return
	}

	result, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}

	h.sendAuthResponse(c, http.StatusCreated, result)
}

// loginRequest accepts the account's email or username in any of the three
// fields older clients send.
type loginRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password" binding:"required"`
}

func (r loginRequest) identifier() string {
	for _, v := range []string{r.Identifier, r.Email, r.Username} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func (h HandlerSet) Login(c *gin.Context) {
	h.login(c, nil)
}

// StaffLogin only admits staff and admin accounts.
func (h HandlerSet) StaffLogin(c *gin.Context) {
	h.login(c, []models.Role{models.RoleStaff, models.RoleAdmin})
}

func (h HandlerSet) login(c *gin.Context, roles []models.Role) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, bindError(err))
		return
	}
	identifier := req.identifier()
	if identifier == "" {
		response.Fail(c, apperr.Validation("email or username is required"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Identifier: identifier,
		Password:   req.Password,
		Roles:      roles,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}

	h.sendAuthResponse(c, http.StatusOK, result)
}

func (h HandlerSet) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), middleware.SessionToken(c)); err != nil {
		response.Fail(c, err)
		return
	}

	h.setSessionCookie(c, "", -1)
	response.Message(c, http.StatusOK, "Logged out successfully")
}

func (h HandlerSet) Me(c *gin.Context) {
	user, err := h.auth.Me(c.Request.Context(), identity(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"user": newUserResponse(user)})
}

func (h HandlerSet) sendAuthResponse(c *gin.Context, status int, result service.AuthResult) {
	maxAge := int(time.Until(result.Token.ExpiresAt).Seconds())
	h.setSessionCookie(c, result.Token.Raw, maxAge)

	response.OK(c, status, authResponse{
		Token:     result.Token.Raw,
		ExpiresAt: result.Token.ExpiresAt,
		User:      newUserResponse(result.User),
	})
}

func (h HandlerSet) setSessionCookie(c *gin.Context, value string, maxAge int) {
	if h.cfg.Security.CookieName == "" {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.Security.CookieName, value, maxAge, "/", "", h.cfg.Security.CookieSecure, true)
}
