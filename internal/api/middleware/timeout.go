package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SelectiveTimeoutConfig applies shortTimeout to every route except the
// scrape-backed endpoints, which wait on live fetches and get longTimeout.
func SelectiveTimeoutConfig(shortTimeout, longTimeout time.Duration) echo.MiddlewareFunc {
	short := middleware.TimeoutWithConfig(middleware.TimeoutConfig{Timeout: shortTimeout})
	long := middleware.TimeoutWithConfig(middleware.TimeoutConfig{Timeout: longTimeout})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		shortNext := short(next)
		longNext := long(next)
		return func(c echo.Context) error {
			if isLongRunningRoute(c.Request().Method, c.Path()) {
				return longNext(c)
			}
			return shortNext(c)
		}
	}
}

// isLongRunningRoute matches routes that block on scraping remote pages.
// The async scrape route is excluded: it only enqueues.
func isLongRunningRoute(method, path string) bool {
	if method != http.MethodPost {
		return false
	}
	switch path {
	case "/api/v1/scrape", "/api/v1/products", "/api/v1/products/check":
		return true
	}
	return false
}
