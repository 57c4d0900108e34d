package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/lyzr/chainquery/cmd/chainquery/container"
	"github.com/lyzr/chainquery/cmd/chainquery/handlers"
	"github.com/lyzr/chainquery/common/middleware"
)

// RegisterQueryRoutes registers the chain query routes on their original paths
func RegisterQueryRoutes(e *echo.Echo, c *container.Container) {
	// Create handler using services from container
	h := handlers.NewQueryHandler(c)

	queries := e.Group("")
	if c.RateLimiter != nil {
		queries.Use(middleware.GlobalRateLimitMiddleware(c.RateLimiter, c.RatePolicy))
		queries.Use(middleware.ClientRateLimitMiddleware(c.RateLimiter, c.RatePolicy))
	}
	{
		queries.GET("/getChainsList", h.GetChainsList) // GET /getChainsList?page=1&limit=10
		queries.GET("/getMediaList", h.GetMediaList)   // GET /getMediaList
		queries.GET("/getTopNodes", h.GetTopNodes)     // GET /getTopNodes
		queries.POST("/searchNodes", h.SearchNodes)    // POST /searchNodes?searchField=alice
	}
}

// RegisterHealthRoutes registers the health probe, outside rate limiting
func RegisterHealthRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewHealthHandler(c.Components)
	e.GET("/health", h.Health)
}
