package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/wellness-api/internal/handler"
	"github.com/jwalitptl/wellness-api/internal/handler/prometheus"
	"github.com/jwalitptl/wellness-api/internal/middleware"
	"github.com/jwalitptl/wellness-api/internal/model"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
	"github.com/jwalitptl/wellness-api/pkg/httputil"
	"github.com/jwalitptl/wellness-api/pkg/validator"
)

// Handlers are the route groups served by the API.
type Handlers struct {
	Health   handler.Router
	Patient  handler.Router
	Visit    handler.Router
	Template handler.Router
	User     handler.Router
	Practice handler.Router
	Audit    handler.Router
	Metrics  *prometheus.Handler
}

type RouterConfig struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	CORSConfig       middleware.CORSConfig
	RequestTimeout   time.Duration
	SizeLimit        middleware.SizeLimitConfig
	ReleaseMode      bool
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, config RouterConfig) *Router {
	if config.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	validator.RegisterGin()

	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	r := &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		handlers.Metrics.Middleware(),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(config.CORSConfig),
		middleware.SizeLimit(config.SizeLimit),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
	)

	if config.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	engine.NoRoute(func(c *gin.Context) {
		httputil.RespondWithError(c, apperrors.NotFound("route", nil))
	})
	engine.NoMethod(func(c *gin.Context) {
		httputil.RespondWithError(c, apperrors.MethodNotAllowed())
	})

	return r
}

func (r *Router) Setup() {
	root := r.engine.Group("")
	r.handlers.Health.RegisterRoutes(root)
	root.GET("/metrics", r.handlers.Metrics.Handler())

	api := r.engine.Group("/api/v1")
	api.Use(r.auth.Authenticate())

	r.handlers.Patient.RegisterRoutes(api)
	r.handlers.Visit.RegisterRoutes(api)
	r.handlers.Template.RegisterRoutes(api)
	r.handlers.User.RegisterRoutes(api)
	r.handlers.Practice.RegisterRoutes(api)

	admin := api.Group("", middleware.RequireRole(model.RoleAdmin))
	r.handlers.Audit.RegisterRoutes(admin)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
