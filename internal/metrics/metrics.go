// Package metrics - метрики Prometheus для циклов загрузки
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"spacefeed/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder используется воркерами, сервисом и HTTP-клиентом
type Recorder interface {
	RecordCycle(source models.Source, outcome models.Outcome, duration time.Duration)
	RecordHTTPStatus(source models.Source, statusCode int)
	RecordItemsWritten(source models.Source, count int)
}

type Collector struct {
	cycles       *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	httpStatus   *prometheus.CounterVec
	itemsWritten *prometheus.CounterVec
}

// NewCollector регистрирует метрики в переданном реестре
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spacefeed_fetch_cycles_total",
			Help: "Fetch cycles by source and outcome",
		}, []string{"source", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "spacefeed_fetch_duration_seconds",
			Help:    "Fetch cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spacefeed_upstream_http_status_total",
			Help: "Upstream responses by source and status code",
		}, []string{"source", "status_code"}),
		itemsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spacefeed_items_written_total",
			Help: "Rows and documents written per source",
		}, []string{"source"}),
	}

	reg.MustRegister(
		c.cycles,
		c.duration,
		c.httpStatus,
		c.itemsWritten,
	)

	return c
}

func (c *Collector) RecordCycle(source models.Source, outcome models.Outcome, duration time.Duration) {
	c.cycles.WithLabelValues(string(source), string(outcome)).Inc()
	c.duration.WithLabelValues(string(source)).Observe(duration.Seconds())
}

func (c *Collector) RecordHTTPStatus(source models.Source, statusCode int) {
	c.httpStatus.WithLabelValues(string(source), strconv.Itoa(statusCode)).Inc()
}

func (c *Collector) RecordItemsWritten(source models.Source, count int) {
	if count <= 0 {
		return
	}
	c.itemsWritten.WithLabelValues(string(source)).Add(float64(count))
}

// Handler отдаёт метрики в формате Prometheus
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop ничего не записывает
type Nop struct{}

func (Nop) RecordCycle(models.Source, models.Outcome, time.Duration) {}
func (Nop) RecordHTTPStatus(models.Source, int)                        {}
func (Nop) RecordItemsWritten(models.Source, int)                      {}
