package middleware

import (
	"github.com/labstack/echo/v4"
)

// HeaderInstanceID identifies the process that served a response
const HeaderInstanceID = "X-Version-API-ID"

// APIIDMiddleware adds the instance ID header to all responses so cached
// answers can be traced back to the instance that produced them
func APIIDMiddleware(instanceID string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set(HeaderInstanceID, instanceID)
			return next(c)
		}
	}
}
