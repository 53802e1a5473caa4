package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestRequestValidationSetsRequestID(t *testing.T) {
	e := echo.New()
	e.Use(RequestValidation())

	var seen string
	e.GET("/", func(c echo.Context) error {
		seen = RequestIDFromContext(c)
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
}

func TestRequestValidationRejectsOversizedPost(t *testing.T) {
	e := echo.New()
	e.Use(RequestValidation())
	e.POST("/", okHandler)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	req.ContentLength = 2 * 1024 * 1024
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRequestIDFromContextWithoutMiddleware(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	assert.Empty(t, RequestIDFromContext(c))
}

func TestRateLimitZeroDisablesLimiting(t *testing.T) {
	e := echo.New()
	e.Use(RateLimit(0))
	e.GET("/", okHandler)

	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitBlocksBursts(t *testing.T) {
	e := echo.New()
	e.Use(RateLimit(1))
	e.GET("/", okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Contains(t, codes[1:], http.StatusTooManyRequests)
}

func TestIsLongRunningRoute(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   bool
	}{
		{http.MethodPost, "/api/v1/scrape", true},
		{http.MethodPost, "/api/v1/products", true},
		{http.MethodPost, "/api/v1/products/check", true},
		{http.MethodPost, "/api/v1/scrape/async", false},
		{http.MethodGet, "/api/v1/products", false},
		{http.MethodPost, "/health", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, isLongRunningRoute(tt.method, tt.path), "%s %s", tt.method, tt.path)
	}
}

func TestSelectiveTimeoutShortRoute(t *testing.T) {
	e := echo.New()
	e.Use(SelectiveTimeoutConfig(20*time.Millisecond, time.Second))
	e.GET("/slow", func(c echo.Context) error {
		time.Sleep(200 * time.Millisecond)
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/slow", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSelectiveTimeoutLongRoute(t *testing.T) {
	e := echo.New()
	e.Use(SelectiveTimeoutConfig(20*time.Millisecond, time.Second))
	e.POST("/api/v1/products/check", func(c echo.Context) error {
		time.Sleep(100 * time.Millisecond)
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/check", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
