package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spacefeed/internal/clients"
	"spacefeed/internal/config"
	"spacefeed/internal/handlers"
	"spacefeed/internal/logger"
	"spacefeed/internal/metrics"
	"spacefeed/internal/middleware"
	"spacefeed/internal/models"
	"spacefeed/internal/repository"
	"spacefeed/internal/service"
	"spacefeed/internal/worker"
	"spacefeed/pkg/database"
	"spacefeed/pkg/redis"

	"github.com/gin-gonic/gin"
	goredis "github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"
)

func main() {
	// Загрузка .env
	envErr := godotenv.Load()

	cfg := config.Load()
	log := logger.SetupDefault(os.Stdout, logger.ParseLevel(cfg.App.LogLevel))

	if envErr != nil {
		log.Info("no .env file found, using environment variables")
	}
	log.Info("spacefeed starting", "port", cfg.App.Port, "cache_backend", cfg.Cache.Backend)

	// Подключение к PostgreSQL
	db, err := database.Connect(database.Config{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		DBName:   cfg.DB.DBName,
		SSLMode:  cfg.DB.SSLMode,
		Debug:    cfg.App.Debug,
	})
	if err != nil {
		fatal(log, "failed to connect to database", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	if err := database.Migrate(db); err != nil {
		fatal(log, "failed to migrate database", err)
	}

	// Кэш последних значений
	var (
		redisClient *goredis.Client
		cache       repository.LatestCache
	)
	switch cfg.Cache.Backend {
	case config.CacheBackendPostgres:
		cache = repository.NewSpaceCacheRepository(db)
	default:
		redisClient, err = redis.Connect(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			fatal(log, "failed to connect to redis", err)
		}
		defer redisClient.Close()
		cache = repository.NewRedisLatestCache(redisClient)
	}

	// Метрики
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// Внешние API
	upstream := clients.NewUpstreamClient(clients.UpstreamConfig{
		Limiter: clients.NewOutboundLimiter(cfg.Fetch.UpstreamRateLimit),
		Metrics: collector,
	})

	sourceCfg := func(s models.Source) config.SourceConfig {
		sc, _ := cfg.Source(s)
		return sc
	}

	issClient := clients.NewISSClient(upstream, sourceCfg(models.SourceISS))
	nasaClient := clients.NewNASAClient(upstream, clients.NASAConfig{
		APIKey:          cfg.NASA.APIKey,
		OSDR:            sourceCfg(models.SourceOSDR),
		APOD:            sourceCfg(models.SourceAPOD),
		NEO:             sourceCfg(models.SourceNEO),
		FLR:             sourceCfg(models.SourceFLR),
		CME:             sourceCfg(models.SourceCME),
		NEOWindowDays:   cfg.Fetch.NEOWindowDays,
		DONKIWindowDays: cfg.Fetch.DONKIWindowDays,
	})
	spaceXClient := clients.NewSpaceXClient(upstream, sourceCfg(models.SourceSpaceX))

	ingest := service.NewIngestService(service.Deps{
		Cache:         cache,
		Catalog:       repository.NewCatalogRepository(db),
		Positions:     repository.NewPositionRepository(db),
		ISS:           issClient,
		NASA:          nasaClient,
		SpaceX:        spaceXClient,
		Metrics:       collector,
		Logger:        log,
		OSDRListLimit: cfg.Fetch.OSDRListLimit,
	})

	// Фоновые загрузки, по одной на источник
	scheduler := worker.NewScheduler(log)
	for _, fetcher := range ingest.Fetchers() {
		sc := sourceCfg(fetcher.Source())
		if err := scheduler.AddSource(fetcher, sc.Interval, sc.Timeout); err != nil {
			fatal(log, "failed to register source", err)
		}
		log.Info("source registered",
			"source", fetcher.Source(),
			"policy", fetcher.Source().Policy().String(),
			"interval", sc.Interval.String(),
		)
	}
	scheduler.Start()

	// HTTP
	if cfg.App.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	var rateLimit gin.HandlerFunc
	if !cfg.App.Debug {
		limit := rate.Limit(cfg.RateLimit.RequestsPerSecond)
		if cfg.RateLimit.Mode == config.RateLimitModeIP {
			rateLimit = middleware.IPRateLimitMiddleware(middleware.NewIPRateLimiter(limit, cfg.RateLimit.Burst), log)
		} else {
			rateLimit = middleware.RateLimitMiddleware(rate.NewLimiter(limit, cfg.RateLimit.Burst), log)
		}
		log.Info("rate limiting enabled",
			"mode", cfg.RateLimit.Mode,
			"rps", cfg.RateLimit.RequestsPerSecond,
			"burst", cfg.RateLimit.Burst,
		)
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		ISS:          handlers.NewISSHandler(ingest),
		OSDR:         handlers.NewOSDRHandler(ingest),
		Space:        handlers.NewSpaceHandler(ingest),
		System:       handlers.NewSystemHandler(db, redisClient, scheduler),
		AllowOrigins: []string{"http://localhost:3000", cfg.App.FrontendURL},
		RateLimit:    rateLimit,
		Gatherer:     registry,
		Logger:       log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(log, "server failed to start", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	scheduler.Stop()

	log.Info("server exited properly")
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
