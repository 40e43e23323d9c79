package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	// Set custom error handler for consistent JSON responses
	e.HTTPErrorHandler = JSONErrorHandler(h.log(), cfg.DevMode)

	e.Use(middleware.CORS())
	e.Use(SetNoCacheHeaders)

	// Public endpoints used by the mini app
	e.GET("/", h.Root)
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/capabilities", h.Capabilities)
	e.GET("/tokens/search", h.SearchTokens)
	e.GET("/tokens/popular", h.PopularTokens)
	e.GET("/tokens/curated", h.CuratedTokens)
	e.GET("/tokens/:fid", h.TokensByFID)
	e.POST("/trade", h.PostTrade, middleware.BodyLimit(TradeBodyLimit))
	e.GET("/trades/:fid", h.TradeHistory)

	// Operator endpoints take the optional API key
	var protected []echo.MiddlewareFunc
	if cfg.APIKey != "" {
		protected = append(protected, middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	// AI endpoints with rate limiting
	aigroup := e.Group("/ai", protected...)
	aigroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(0.2), // 1 request every 5 seconds
		Burst:     2,
		ExpiresIn: 2 * time.Minute,
	})))
	aigroup.POST("/ask", h.AIAsk)

	// Feature flags CRUD endpoints
	flagGroup := e.Group("/flags", protected...)
	flagGroup.GET("", h.FlagsList)
	flagGroup.POST("", h.FlagsUpsert)
	flagGroup.GET("/:key", h.FlagsGet)
	flagGroup.PUT("/:key", h.FlagsUpdate)
	flagGroup.DELETE("/:key", h.FlagsDelete)

	// Catch-all route for 404 responses
	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
