package handlers

import (
	"errors"
	"net/http"

	"spacefeed/internal/models"

	"github.com/gin-gonic/gin"
)

// respondError переводит ошибки сервиса в HTTP-ответ.
// Отсутствие данных - не ошибка, отвечаем 200.
func respondError(c *gin.Context, err error) {
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"message": "no data"})
		return
	}
	if errors.Is(err, models.ErrUnknownSource) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "unknown source",
			"message": err.Error(),
		})
		return
	}

	status := http.StatusInternalServerError
	if kind, ok := models.KindOf(err); ok {
		switch kind {
		case models.KindStoreUnavailable:
			status = http.StatusServiceUnavailable
		case models.KindUpstreamUnavailable, models.KindUpstreamRejected, models.KindMalformedResponse, models.KindPermissionDenied:
			status = http.StatusBadGateway
		}
	}

	body := gin.H{"message": err.Error()}
	if kind, ok := models.KindOf(err); ok {
		body["error"] = string(kind)
	} else {
		body["error"] = "internal error"
	}
	c.JSON(status, body)
}
