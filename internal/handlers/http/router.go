package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/shift-devs/twitch-gamepad/internal/core/ports"
	"github.com/shift-devs/twitch-gamepad/internal/core/services"
	"github.com/shift-devs/twitch-gamepad/internal/infrastructure/middleware"
	"github.com/shift-devs/twitch-gamepad/internal/infrastructure/monitoring"
)

// RouterConfig carries the route-level knobs from the api config section.
type RouterConfig struct {
	Development    bool
	TracingEnabled bool
	RatePerMin     int
	RateBurst      int
}

// NewRouter assembles the gin engine: public health, metrics and token
// endpoints, and the authenticated command API.
func NewRouter(
	handler ports.HTTPHandler,
	events *EventsHub,
	health *monitoring.HealthChecker,
	tokens services.TokenService,
	logger *zap.SugaredLogger,
	cfg RouterConfig,
) *gin.Engine {
	if !cfg.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestLoggerMiddleware(logger),
		middleware.RecoveryMiddleware(logger),
		middleware.ErrorHandlerMiddleware(logger),
	)
	if cfg.TracingEnabled {
		engine.Use(middleware.TracingMiddleware())
	}

	engine.GET("/healthz", func(c *gin.Context) {
		status := health.CheckAll(c.Request.Context())
		code := http.StatusOK
		if status.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	engine.POST("/api/v1/auth/token", handler.Token)

	api := engine.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(tokens))
	{
		api.GET("/status", handler.Status)
		api.POST("/command", middleware.RateLimitMiddleware(cfg.RatePerMin, cfg.RateBurst), handler.Command)
		api.GET("/events", events.Handle)
	}

	return engine
}
