package router

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/caremesh/credentialing-api/internal/handler"
	"github.com/caremesh/credentialing-api/internal/middleware"
	"github.com/caremesh/credentialing-api/internal/model"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine        *gin.Engine
	auth          *middleware.AuthMiddleware
	authH         Handler
	physicianH    Handler
	credentialH   Handler
	workflowH     Handler
	documentH     Handler
	notificationH Handler
	analyticsH    Handler
	auditH        Handler
	h             *handler.Handler
}

type Config struct {
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int
	CORS             middleware.CORSConfig
	Timeout          middleware.TimeoutConfig
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	authH Handler,
	physicianH Handler,
	credentialH Handler,
	workflowH Handler,
	documentH Handler,
	notificationH Handler,
	analyticsH Handler,
	auditH Handler,
	h *handler.Handler,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	r := &Router{
		engine:        engine,
		auth:          auth,
		authH:         authH,
		physicianH:    physicianH,
		credentialH:   credentialH,
		workflowH:     workflowH,
		documentH:     documentH,
		notificationH: notificationH,
		analyticsH:    analyticsH,
		auditH:        auditH,
		h:             h,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.ErrorHandler(),
		middleware.Timeout(config.Timeout),
		middleware.CORS(config.CORS),
	)

	if config.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  rate.Limit(config.RateLimitRPS),
			Burst: config.RateLimitBurst,
		})
		engine.Use(limiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	r.setupHealthCheck(api)
	r.authH.RegisterRoutes(api)

	protected := api.Group("")
	protected.Use(
		r.auth.Authenticate(),
		r.auth.RestrictViewers(),
	)
	r.setupProtectedRoutes(protected)
}

func (r *Router) setupHealthCheck(rg *gin.RouterGroup) {
	health := rg.Group("/health")
	{
		health.GET("/live", r.h.LivenessCheck)
		health.GET("/ready", r.h.ReadinessCheck)
		health.GET("/metrics", r.h.MetricsHandler)
	}
}

func (r *Router) setupProtectedRoutes(rg *gin.RouterGroup) {
	r.physicianH.RegisterRoutes(rg)
	r.credentialH.RegisterRoutes(rg)
	r.workflowH.RegisterRoutes(rg)
	r.documentH.RegisterRoutes(rg)
	r.notificationH.RegisterRoutes(rg)

	// Aggregates are open to any authenticated role; raw export is not.
	analytics := rg.Group("")
	analytics.Use(r.exportGuard())
	r.analyticsH.RegisterRoutes(analytics)

	auditGroup := rg.Group("")
	auditGroup.Use(r.auth.RequireRole(model.UserRoleCoordinator))
	r.auditH.RegisterRoutes(auditGroup)
}

func (r *Router) exportGuard() gin.HandlerFunc {
	requireCoordinator := r.auth.RequireRole(model.UserRoleCoordinator)
	return func(c *gin.Context) {
		if c.FullPath() == "/api/v1/analytics/export" {
			requireCoordinator(c)
			return
		}
		c.Next()
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
