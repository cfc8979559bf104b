package handlers

import (
	"net/http"
	"strings"

	"spacefeed/internal/models"
	"spacefeed/internal/service"

	"github.com/gin-gonic/gin"
)

type SpaceHandler struct {
	service service.IngestService
}

func NewSpaceHandler(service service.IngestService) *SpaceHandler {
	return &SpaceHandler{service: service}
}

// GetLatest - последний ответ источника из кэша
func (h *SpaceHandler) GetLatest(c *gin.Context) {
	source, err := models.ParseSource(strings.ToLower(c.Param("src")))
	if err != nil {
		respondError(c, err)
		return
	}

	doc, err := h.service.GetLatestCached(c.Request.Context(), source)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

type refreshResult struct {
	Source  string         `json:"source"`
	Outcome models.Outcome `json:"outcome,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Refresh обновляет перечисленные источники, по умолчанию все кэшируемые
func (h *SpaceHandler) Refresh(c *gin.Context) {
	ctx := c.Request.Context()

	var names []string
	for _, name := range strings.Split(c.Query("src"), ",") {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		for _, s := range models.CachedSources() {
			names = append(names, string(s))
		}
	}

	results := make([]refreshResult, 0, len(names))
	for _, name := range names {
		res := refreshResult{Source: name}

		source, err := models.ParseSource(name)
		if err != nil {
			res.Error = err.Error()
			results = append(results, res)
			continue
		}

		outcome, err := h.service.TriggerFetch(ctx, source)
		res.Outcome = outcome
		if err != nil {
			res.Error = err.Error()
		}
		results = append(results, res)
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// GetSummary - сводка по всем источникам
func (h *SpaceHandler) GetSummary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
