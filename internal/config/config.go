package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"spacefeed/internal/models"
)

// SourceConfig - настройки опроса одного источника
type SourceConfig struct {
	URL        string
	Interval   time.Duration // 0 - источник отключён
	Timeout    time.Duration
	UsesAPIKey bool
}

type Config struct {
	App struct {
		Port        string
		Debug       bool
		FrontendURL string
		LogLevel    string
	}
	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		DBName   string
		SSLMode  string
	}
	Redis struct {
		Host     string
		Port     string
		Password string
		DB       int
	}
	Cache struct {
		Backend string // redis | postgres
	}
	NASA struct {
		APIKey string
	}
	Fetch struct {
		NEOWindowDays     int
		DONKIWindowDays   int
		UpstreamRateLimit time.Duration
		OSDRListLimit     int
	}
	Sources   map[models.Source]SourceConfig
	RateLimit struct {
		RequestsPerSecond int
		Burst             int
		Mode              string // global | ip
	}
}

const (
	CacheBackendRedis    = "redis"
	CacheBackendPostgres = "postgres"

	RateLimitModeGlobal = "global"
	RateLimitModeIP     = "ip"
)

func Load() *Config {
	cfg := &Config{}

	// App
	cfg.App.Port = getEnv("PORT", "8080")
	cfg.App.Debug = getEnvAsBool("DEBUG", false)
	cfg.App.FrontendURL = getEnv("FRONTEND_URL", "http://localhost:3000")
	cfg.App.LogLevel = getEnv("LOG_LEVEL", "info")

	// DB
	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.DBName = getEnv("DB_NAME", "spacefeed")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")

	// Redis
	cfg.Redis.Host = getEnv("REDIS_HOST", "localhost")
	cfg.Redis.Port = getEnv("REDIS_PORT", "6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", 0)

	cfg.Cache.Backend = strings.ToLower(getEnv("CACHE_BACKEND", CacheBackendRedis))
	if cfg.Cache.Backend != CacheBackendPostgres {
		cfg.Cache.Backend = CacheBackendRedis
	}

	// NASA
	cfg.NASA.APIKey = getEnv("NASA_API_KEY", "DEMO_KEY")

	// Fetch
	cfg.Fetch.NEOWindowDays = getEnvAsInt("NEO_WINDOW_DAYS", 2)
	cfg.Fetch.DONKIWindowDays = getEnvAsInt("DONKI_WINDOW_DAYS", 5)
	cfg.Fetch.UpstreamRateLimit = getEnvAsSeconds("UPSTREAM_RATE_LIMIT_SECONDS", time.Second)
	cfg.Fetch.OSDRListLimit = getEnvAsInt("OSDR_LIST_LIMIT", 20)

	// Источники
	donkiEvery := getEnvAsSeconds("DONKI_EVERY_SECONDS", time.Hour)
	cfg.Sources = map[models.Source]SourceConfig{
		models.SourceISS: {
			URL:      getEnv("ISS_API_URL", "https://api.wheretheiss.at/v1/satellites/25544"),
			Interval: getEnvAsSeconds("ISS_EVERY_SECONDS", 120*time.Second),
			Timeout:  20 * time.Second,
		},
		models.SourceOSDR: {
			URL:      getEnv("NASA_API_URL", "https://visualization.osdr.nasa.gov/biodata/api/v2/datasets/?format=json"),
			Interval: getEnvAsSeconds("FETCH_EVERY_SECONDS", 600*time.Second),
			Timeout:  45 * time.Second,
		},
		models.SourceAPOD: {
			URL:        getEnv("APOD_API_URL", "https://api.nasa.gov/planetary/apod"),
			Interval:   getEnvAsSeconds("APOD_EVERY_SECONDS", 12*time.Hour),
			Timeout:    30 * time.Second,
			UsesAPIKey: true,
		},
		models.SourceNEO: {
			URL:        getEnv("NEO_API_URL", "https://api.nasa.gov/neo/rest/v1/feed"),
			Interval:   getEnvAsSeconds("NEO_EVERY_SECONDS", 2*time.Hour),
			Timeout:    30 * time.Second,
			UsesAPIKey: true,
		},
		models.SourceFLR: {
			URL:        getEnv("DONKI_FLR_API_URL", "https://api.nasa.gov/DONKI/FLR"),
			Interval:   donkiEvery,
			Timeout:    30 * time.Second,
			UsesAPIKey: true,
		},
		models.SourceCME: {
			URL:        getEnv("DONKI_CME_API_URL", "https://api.nasa.gov/DONKI/CME"),
			Interval:   donkiEvery,
			Timeout:    30 * time.Second,
			UsesAPIKey: true,
		},
		models.SourceSpaceX: {
			URL:      getEnv("SPACEX_NEXT_API_URL", "https://api.spacexdata.com/v4/launches/next"),
			Interval: getEnvAsSeconds("SPACEX_EVERY_SECONDS", time.Hour),
			Timeout:  30 * time.Second,
		},
	}

	// Rate Limit
	cfg.RateLimit.RequestsPerSecond = getEnvAsInt("RATE_LIMIT_RPS", 10)
	cfg.RateLimit.Burst = getEnvAsInt("RATE_LIMIT_BURST", 20)
	cfg.RateLimit.Mode = strings.ToLower(getEnv("RATE_LIMIT_MODE", RateLimitModeGlobal))

	return cfg
}

// Source возвращает настройки источника; ok=false для неизвестного
func (c *Config) Source(s models.Source) (SourceConfig, bool) {
	sc, ok := c.Sources[s]
	return sc, ok
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsSeconds читает целое число секунд. Отрицательные значения игнорируются,
// 0 допустим и отключает источник.
func getEnvAsSeconds(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
