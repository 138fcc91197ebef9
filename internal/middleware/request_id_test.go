package middleware_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/middleware"
)

func loggedEngine(buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(middleware.RequestID(zerolog.New(buf)), middleware.Logger("/health"))
	engine.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/api/devices/:id", func(c *gin.Context) {
		c.String(http.StatusOK, middleware.RequestIDFrom(c))
	})
	return engine
}

func TestRequestIDEchoesOrMints(t *testing.T) {
	var buf bytes.Buffer
	engine := loggedEngine(&buf)

	req := httptest.NewRequest(http.MethodGet, "/api/devices/3", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "abc-123", rec.Body.String())

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/devices/3", nil))
	minted := rec.Header().Get("X-Request-Id")
	assert.Len(t, minted, 36)
	assert.Equal(t, minted, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/devices/3", nil)
	req.Header.Set("X-Request-Id", strings.Repeat("x", 200))
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Len(t, rec.Header().Get("X-Request-Id"), 36)
}

func TestLoggerTagsRouteAndSkipsQuietPaths(t *testing.T) {
	var buf bytes.Buffer
	engine := loggedEngine(&buf)

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Zero(t, buf.Len())

	req := httptest.NewRequest(http.MethodGet, "/api/devices/9", nil)
	req.Header.Set("X-Request-Id", "r-1")
	engine.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	require.NotEmpty(t, line)
	assert.Contains(t, line, `"route":"/api/devices/:id"`)
	assert.Contains(t, line, `"request_id":"r-1"`)
	assert.Contains(t, line, `"status":200`)
}
