package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"lgcms/internal/analytics"
	"lgcms/internal/config"
	"lgcms/internal/metrics"
	"lgcms/internal/middleware"
	"lgcms/internal/models"
	"lgcms/internal/service"
	"lgcms/internal/session"
)

// HealthCheck is one dependency probed by /healthz.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type Dependencies struct {
	Authority  *session.Authority
	Auth       *service.AuthService
	Complaints *service.ComplaintService
	Dashboard  *service.DashboardService
	Evidence   *service.EvidenceService
	Analytics  *analytics.Service
	Metrics    *metrics.Metrics
	Checks     []HealthCheck
}

type HandlerSet struct {
	log          zerolog.Logger
	cfg          *config.AppConfig
	authority    *session.Authority
	auth         *service.AuthService
	complaints   *service.ComplaintService
	dashboard    *service.DashboardService
	evidence     *service.EvidenceService
	analytics    *analytics.Service
	metrics      *metrics.Metrics
	checks       []HealthCheck
	loginLimiter *middleware.IPRateLimiter
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, deps Dependencies) HandlerSet {
	registerValidators()

	return HandlerSet{
		log:          log,
		cfg:          cfg,
		authority:    deps.Authority,
		auth:         deps.Auth,
		complaints:   deps.Complaints,
		dashboard:    deps.Dashboard,
		evidence:     deps.Evidence,
		analytics:    deps.Analytics,
		metrics:      deps.Metrics,
		checks:       deps.Checks,
		loginLimiter: middleware.NewIPRateLimiter(cfg.Security.LoginRateLimit, cfg.Security.LoginBurst),
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	cookie := h.cfg.Security.CookieName
	requireSession := middleware.RequireSession(h.authority, cookie)
	optionalSession := middleware.OptionalSession(h.authority, cookie)
	staffOnly := middleware.RequireRoles(models.RoleStaff, models.RoleAdmin)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	limitLogin := middleware.RateLimit(h.loginLimiter)

	router.GET("/healthz", h.Health)
	router.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", limitLogin, h.RegisterUser)
		auth.POST("/login", limitLogin, h.Login)
		auth.POST("/logout", requireSession, h.Logout)
		auth.GET("/me", requireSession, h.Me)

		v1.POST("/staff/login", limitLogin, h.StaffLogin)
	}

	complaints := v1.Group("/complaints")
	complaints.POST("", optionalSession, h.SubmitComplaint)
	complaints.GET("", requireSession, h.ListComplaints)
	complaints.GET("/:id", requireSession, h.GetComplaint)
	complaints.PATCH("/:id", requireSession, staffOnly, h.MutateComplaint)
	complaints.DELETE("/:id", requireSession, adminOnly, h.RemoveComplaint)

	v1.GET("/dashboard/stats", requireSession, h.DashboardStats)
	v1.POST("/evidence/uploads", optionalSession, h.CreateEvidenceUpload)

	admin := v1.Group("/admin")
	admin.Use(requireSession)
	admin.POST("/staff", adminOnly, h.CreateStaff)
	admin.GET("/analytics/:chart", staffOnly, h.AnalyticsChart)
	admin.POST("/analytics/predict", staffOnly, h.PredictResolution)
}

// identity returns the caller attached by RequireSession. Routes using it
// always run behind that middleware.
func identity(c *gin.Context) models.Identity {
	id, _ := middleware.CurrentIdentity(c)
	return id
}

// optionalIdentity is nil for anonymous callers.
func optionalIdentity(c *gin.Context) *models.Identity {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return nil
	}
	return &id
}
