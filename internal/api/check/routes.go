package check

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers version check routes
func RegisterRoutes(g *echo.Group, handler *Handler) {
	g.GET("/", handler.Latest)
	g.GET("/refresh", handler.Refresh)
	g.GET("/check/*", handler.Check)
	g.POST("/check/*", handler.Check)
}
