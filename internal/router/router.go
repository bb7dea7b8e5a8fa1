package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-onboarding/internal/handler/admin"
	"github.com/jwalitptl/clinic-onboarding/internal/handler/application"
	authhandler "github.com/jwalitptl/clinic-onboarding/internal/handler/auth"
	"github.com/jwalitptl/clinic-onboarding/internal/handler/health"
	"github.com/jwalitptl/clinic-onboarding/internal/handler/prometheus"
	"github.com/jwalitptl/clinic-onboarding/internal/middleware"
	"github.com/jwalitptl/clinic-onboarding/internal/model"
	"github.com/jwalitptl/clinic-onboarding/pkg/logger"
	"github.com/jwalitptl/clinic-onboarding/pkg/metrics"
)

type RouterConfig struct {
	Mode           string
	RequestTimeout time.Duration
	MaxBodySize    int64
	CORS           middleware.CORSConfig
	// RateLimit guards the public submission and login routes; nil disables it.
	RateLimit   *middleware.RateLimiterConfig
	MetricsPath string
}

type Handlers struct {
	Application *application.Handler
	Admin       *admin.Handler
	Auth        *authhandler.Handler
	Health      *health.Handler
	// Metrics is optional.
	Metrics *prometheus.Handler
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
	limiter  *middleware.RateLimiter
	config   RouterConfig
}

func NewRouter(
	config RouterConfig,
	handlers Handlers,
	auth *middleware.AuthMiddleware,
	log *logger.Logger,
	m *metrics.Metrics,
) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = middleware.DefaultMaxBodySize
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(log, m),
		middleware.Recovery(log),
		middleware.SecurityHeaders(),
		middleware.CORS(config.CORS),
		middleware.ErrorHandler(log),
		middleware.Timeout(config.RequestTimeout),
	)

	r := &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
		config:   config,
	}
	if config.RateLimit != nil {
		r.limiter = middleware.NewRateLimiter(*config.RateLimit)
	}

	r.setup()
	return r
}

func (r *Router) setup() {
	r.handlers.Health.RegisterRoutes(&r.engine.RouterGroup)
	if r.handlers.Metrics != nil && r.config.MetricsPath != "" {
		r.handlers.Metrics.RegisterRoutes(r.engine, r.config.MetricsPath)
	}

	api := r.engine.Group("/api/v1")
	api.Use(middleware.SizeLimit(r.config.MaxBodySize))

	// Public routes
	r.handlers.Application.RegisterRoutes(api, r.throttle()...)
	r.handlers.Auth.RegisterRoutes(api, r.throttle()...)

	// Platform administrator routes
	adminGroup := api.Group("/admin")
	adminGroup.Use(
		r.auth.Authenticate(),
		r.auth.RequireRole(model.AccountRolePlatformAdmin),
	)
	r.handlers.Admin.RegisterRoutes(adminGroup)
}

func (r *Router) throttle() []gin.HandlerFunc {
	if r.limiter == nil {
		return nil
	}
	return []gin.HandlerFunc{r.limiter.RateLimit()}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
