package middleware

import (
	"github.com/labstack/echo/v4"
)

// HeaderVersion carries the server build version
const HeaderVersion = "X-Version-API-Version"

// VersionMiddleware adds the server version header to all responses
func VersionMiddleware(version string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set(HeaderVersion, version)
			return next(c)
		}
	}
}
