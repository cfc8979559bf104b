package handlers

import (
	"errors"
	"net/http"

	"spacefeed/internal/models"
	"spacefeed/internal/service"

	"github.com/gin-gonic/gin"
)

type ISSHandler struct {
	service service.IngestService
}

func NewISSHandler(service service.IngestService) *ISSHandler {
	return &ISSHandler{service: service}
}

// GetLast - последняя позиция МКС
func (h *ISSHandler) GetLast(c *gin.Context) {
	position, err := h.service.GetLatestPosition(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, position)
}

// GetTrend - тренд по двум последним позициям
func (h *ISSHandler) GetTrend(c *gin.Context) {
	trend, err := h.service.GetTrend(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, trend)
}

// ForceFetch запрашивает позицию вне расписания и возвращает последнюю запись
func (h *ISSHandler) ForceFetch(c *gin.Context) {
	ctx := c.Request.Context()

	outcome, err := h.service.TriggerFetch(ctx, models.SourceISS)
	if err != nil {
		respondError(c, err)
		return
	}

	position, err := h.service.GetLatestPosition(ctx)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"outcome":  outcome,
		"position": position,
	})
}
