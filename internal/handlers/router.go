package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"spacefeed/internal/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterConfig - всё, что нужно для сборки HTTP-сервера
type RouterConfig struct {
	ISS    *ISSHandler
	OSDR   *OSDRHandler
	Space  *SpaceHandler
	System *SystemHandler

	AllowOrigins []string
	RateLimit    gin.HandlerFunc // nil - без ограничения
	Gatherer     prometheus.Gatherer
	Logger       *slog.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(cfg.Logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if cfg.RateLimit != nil {
		r.Use(cfg.RateLimit)
	}

	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(cfg.Gatherer)))
	}

	api := r.Group("/api/v1")

	api.GET("/health", cfg.System.Health)
	api.GET("/jobs", cfg.System.Jobs)
	api.GET("/system/stats", cfg.System.Stats)

	// МКС
	api.GET("/last", cfg.ISS.GetLast)
	api.GET("/fetch", cfg.ISS.ForceFetch)
	api.GET("/iss/trend", cfg.ISS.GetTrend)

	// OSDR
	api.GET("/osdr/sync", cfg.OSDR.Sync)
	api.GET("/osdr/list", cfg.OSDR.GetList)
	api.GET("/osdr/export", cfg.OSDR.Export)

	// Кэшируемые источники
	api.GET("/space/:src/latest", cfg.Space.GetLatest)
	api.GET("/space/refresh", cfg.Space.Refresh)
	api.GET("/space/summary", cfg.Space.GetSummary)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return r
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}
