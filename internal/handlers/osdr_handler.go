package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"spacefeed/internal/models"
	"spacefeed/internal/service"
	"spacefeed/internal/utils"

	"github.com/gin-gonic/gin"
)

const (
	maxListLimit  = 500
	maxExportRows = 5000
)

type OSDRHandler struct {
	service service.IngestService
}

func NewOSDRHandler(service service.IngestService) *OSDRHandler {
	return &OSDRHandler{service: service}
}

func (h *OSDRHandler) GetList(c *gin.Context) {
	ctx := c.Request.Context()

	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit > maxListLimit {
		limit = maxListLimit
	}

	items, err := h.service.ListCatalog(ctx, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

// Sync запускает загрузку каталога вне расписания
func (h *OSDRHandler) Sync(c *gin.Context) {
	ctx := c.Request.Context()

	outcome, err := h.service.TriggerFetch(ctx, models.SourceOSDR)
	if err != nil {
		respondError(c, err)
		return
	}

	total, err := h.service.CountCatalog(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"outcome": outcome,
		"total":   total,
	})
}

// Export отдаёт каталог файлом CSV или XLSX
func (h *OSDRHandler) Export(c *gin.Context) {
	ctx := c.Request.Context()

	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "unsupported format",
			"message": "format must be csv or xlsx",
		})
		return
	}

	items, err := h.service.ListCatalog(ctx, maxExportRows)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("osdr_%s.%s", time.Now().UTC().Format("20060102_150405"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	switch format {
	case "xlsx":
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Status(http.StatusOK)
		err = utils.WriteCatalogXLSX(c.Writer, items)
	default:
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Status(http.StatusOK)
		err = utils.WriteCatalogCSV(c.Writer, items)
	}
	if err != nil {
		_ = c.Error(err)
	}
}
