package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/theme-section-installer/internal/config"
	"github.com/iliyamo/theme-section-installer/internal/handler"    // handlers that call the lifecycle manager
	"github.com/iliyamo/theme-section-installer/internal/metrics"
	"github.com/iliyamo/theme-section-installer/internal/middleware" // session auth, shop resolution, rate limit, cache
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance: the health check and the Prometheus scrape
// endpoint.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	// Load balancers and monitoring hit /healthz; a failed database ping
	// answers 503.
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// SectionDeps carries what the /v1 group needs besides the handler.  A nil
// Redis client turns the rate limiter and the catalog cache into
// pass-through middleware.
type SectionDeps struct {
	Shopify   config.ShopifyConfig
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Redis     *redis.Client
	Shops     middleware.ShopResolver
}

// RegisterSections registers the catalog and lifecycle endpoints under /v1.
// Every route requires a valid Shopify session token and is rate limited
// per shop.  Routes that act on a store additionally resolve the shop
// record and its Admin API client.
func RegisterSections(e *echo.Echo, h *handler.SectionHandler, d SectionDeps) {
	g := e.Group(
		"/v1",
		middleware.SessionAuth(d.Shopify.APISecret, d.Shopify.APIKey),
		middleware.NewTokenBucket(d.RateLimit, d.Redis),
	)

	// The catalog is the same for every shop, so it is the one response
	// worth caching.  Invalidated by `sectionctl catalog sync`.
	g.GET("/sections", h.ListSections, middleware.NewRedisCache(d.Cache, d.Redis))

	shop := g.Group("", middleware.RequireShop(d.Shops))
	shop.GET("/installations", h.ListInstallations)
	shop.POST("/sections/install", h.Install)
	shop.POST("/sections/install-batch", h.InstallBatch)
	shop.POST("/sections/update", h.Update)
	shop.POST("/sections/update-all", h.UpdateAll)
	shop.POST("/sections/uninstall", h.Uninstall)
	shop.POST("/sections/cleanup", h.Cleanup)
	shop.POST("/pages", h.CreatePage)
}
