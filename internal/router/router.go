package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/gramsetu/chw-api/internal/handler"
	authHandler "github.com/gramsetu/chw-api/internal/handler/auth"
	patientHandler "github.com/gramsetu/chw-api/internal/handler/patient"
	syncHandler "github.com/gramsetu/chw-api/internal/handler/sync"
	workerHandler "github.com/gramsetu/chw-api/internal/handler/worker"
	"github.com/gramsetu/chw-api/internal/middleware"
	"github.com/gramsetu/chw-api/pkg/metrics"
)

type Config struct {
	RateLimit  rate.Limit
	RateBurst  int
	CORSConfig middleware.CORSConfig
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	authH    *authHandler.Handler
	workerH  *workerHandler.Handler
	patientH *patientHandler.Handler
	syncH    *syncHandler.Handler
	h        *handler.Handler
	metrics  *metrics.Metrics
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	authH *authHandler.Handler,
	workerH *workerHandler.Handler,
	patientH *patientHandler.Handler,
	syncH *syncHandler.Handler,
	h *handler.Handler,
	m *metrics.Metrics,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	r := &Router{
		engine:   engine,
		auth:     auth,
		authH:    authH,
		workerH:  workerH,
		patientH: patientH,
		syncH:    syncH,
		h:        h,
		metrics:  m,
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.CORS(config.CORSConfig),
		r.metricsMiddleware(),
	)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) Setup() {
	r.engine.GET("/health", r.h.HealthCheck)
	r.engine.GET("/metrics", r.h.MetricsHandler)

	api := r.engine.Group("/api")

	// Public routes
	r.authH.RegisterRoutes(api)

	// Everything else sits behind the credential gate
	protected := api.Group("")
	protected.Use(r.auth.RequireAuth())
	r.workerH.RegisterRoutes(protected)
	r.patientH.RegisterRoutes(protected)
	r.syncH.RegisterRoutes(protected)
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		r.metrics.RequestTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Inc()
		r.metrics.RequestDuration.WithLabelValues(
			c.Request.Method, path,
		).Observe(time.Since(start).Seconds())
	}
}
