package api

import (
	"net/http"

	"fitquest/api/competition"
	"fitquest/api/gamification"
	"fitquest/api/health"
	"fitquest/api/identity"
	"fitquest/api/middleware"
	"fitquest/config"
	domainidentity "fitquest/domain/identity"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Controllers 路由依赖的控制器
type Controllers struct {
	Health       *health.Controller
	Identity     *identity.Controller
	Gamification *gamification.Controller
	Competition  *competition.Controller
}

// Router Route configuration
type Router struct {
	engine      *gin.Engine
	config      *config.Config
	controllers Controllers
	verifier    domainidentity.TokenVerifier
	gatherer    prometheus.Gatherer
}

// NewRouter gatherer 为 nil 时不暴露 /metrics
func NewRouter(
	cfg *config.Config,
	controllers Controllers,
	verifier domainidentity.TokenVerifier,
	gatherer prometheus.Gatherer,
) *Router {
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// 顺序有意义：先有请求 ID，再恢复 panic 和记录日志
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(middleware.RecoveryMiddleware())
	if cfg.Tracing.Enabled {
		engine.Use(otelgin.Middleware(cfg.App.Name))
	}
	engine.Use(middleware.LoggingMiddleware())
	engine.Use(middleware.CORSMiddleware(&cfg.CORS))
	engine.Use(middleware.RateLimitMiddleware(&cfg.Server.RateLimit))

	return &Router{
		engine:      engine,
		config:      cfg,
		controllers: controllers,
		verifier:    verifier,
		gatherer:    gatherer,
	}
}

// SetupRoutes 健康检查公开，业务路由需要认证
func (r *Router) SetupRoutes() {
	apiGroup := r.engine.Group("/api/v1")
	r.controllers.Health.RegisterRoutes(apiGroup)

	authed := apiGroup.Group("")
	authed.Use(middleware.AuthMiddleware(r.verifier))
	{
		r.controllers.Identity.RegisterRoutes(authed)
		r.controllers.Gamification.RegisterRoutes(authed)
		r.controllers.Competition.RegisterRoutes(authed)
	}

	if r.gatherer != nil && r.config.Metrics.Enabled {
		r.engine.GET(r.config.Metrics.Path, gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))
	}

	r.engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    r.config.App.Name,
			"version": r.config.App.Version,
			"env":     r.config.App.Env,
			"health":  "/api/v1/health",
		})
	})
}

// GetEngine Get Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
