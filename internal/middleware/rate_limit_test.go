package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"spacefeed/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func newEngine(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw)
	r.GET("/api/v1/last", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func doGet(r http.Handler, path, remote string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remote
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitMiddleware_BlocksOverBurst(t *testing.T) {
	r := newEngine(RateLimitMiddleware(rate.NewLimiter(rate.Limit(0.001), 2), logger.Discard()))

	assert.Equal(t, http.StatusOK, doGet(r, "/api/v1/last", "10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, doGet(r, "/api/v1/last", "10.0.0.2:1000"))
	assert.Equal(t, http.StatusTooManyRequests, doGet(r, "/api/v1/last", "10.0.0.3:1000"))
}

func TestRateLimitMiddleware_HealthIsUnlimited(t *testing.T) {
	r := newEngine(RateLimitMiddleware(rate.NewLimiter(rate.Limit(0.001), 1), logger.Discard()))

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doGet(r, "/api/v1/health", "10.0.0.1:1000"))
	}
}

func TestIPRateLimitMiddleware_SeparatesClients(t *testing.T) {
	ipLimiter := NewIPRateLimiter(rate.Limit(0.001), 1)
	r := newEngine(IPRateLimitMiddleware(ipLimiter, logger.Discard()))

	assert.Equal(t, http.StatusOK, doGet(r, "/api/v1/last", "10.0.0.1:1000"))
	assert.Equal(t, http.StatusTooManyRequests, doGet(r, "/api/v1/last", "10.0.0.1:1001"))
	assert.Equal(t, http.StatusOK, doGet(r, "/api/v1/last", "10.0.0.2:1000"))
	assert.Equal(t, 2, ipLimiter.size())
}

func TestIPRateLimiter_GetLimiterReusesInstance(t *testing.T) {
	ipLimiter := NewIPRateLimiter(rate.Limit(1), 1)

	first := ipLimiter.GetLimiter("1.2.3.4")
	assert.Same(t, first, ipLimiter.GetLimiter("1.2.3.4"))
	assert.NotSame(t, first, ipLimiter.GetLimiter("4.3.2.1"))
}
