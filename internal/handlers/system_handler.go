package handlers

import (
	"net/http"
	"time"

	"spacefeed/internal/worker"
	"spacefeed/pkg/database"
	redisstats "spacefeed/pkg/redis"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// JobLister - источник состояния фоновых задач
type JobLister interface {
	IsRunning() bool
	Status() []worker.JobStatus
}

type SystemHandler struct {
	db    *gorm.DB
	redis *redis.Client // nil, если кэш в PostgreSQL
	jobs  JobLister
}

func NewSystemHandler(db *gorm.DB, redisClient *redis.Client, jobs JobLister) *SystemHandler {
	return &SystemHandler{
		db:    db,
		redis: redisClient,
		jobs:  jobs,
	}
}

func (h *SystemHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	services := gin.H{}
	healthy := true

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		services["database"] = "unavailable"
		healthy = false
	} else {
		services["database"] = "connected"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			services["redis"] = "unavailable"
			healthy = false
		} else {
			services["redis"] = "connected"
		}
	}

	status := http.StatusOK
	state := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}

	c.JSON(status, gin.H{
		"status":    state,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  services,
	})
}

// Jobs - состояние расписания по источникам
func (h *SystemHandler) Jobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running": h.jobs.IsRunning(),
		"jobs":    h.jobs.Status(),
	})
}

func (h *SystemHandler) Stats(c *gin.Context) {
	counts, err := database.TableCounts(h.db.WithContext(c.Request.Context()))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "store_unavailable",
			"message": err.Error(),
		})
		return
	}

	resp := gin.H{
		"database":          counts,
		"jobs":              h.jobs.Status(),
		"scheduler_running": h.jobs.IsRunning(),
	}

	if h.redis != nil {
		if stats, err := redisstats.GetStats(h.redis); err == nil {
			resp["redis"] = stats
		} else {
			resp["redis"] = gin.H{"error": err.Error()}
		}
	}

	c.JSON(http.StatusOK, resp)
}
