// Package api implements the v2 REST API: people, plots, trials,
// observations and images under /api/v2, with the response envelope shared
// by every endpoint.
package api

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"

	mw "github.com/regenpgc/trialbase/internal/api/middleware"
	"github.com/regenpgc/trialbase/internal/conf"
	"github.com/regenpgc/trialbase/internal/fieldtrial"
	"github.com/regenpgc/trialbase/internal/imaging"
	"github.com/regenpgc/trialbase/internal/logger"
	"github.com/regenpgc/trialbase/internal/observability"
)

// BasePath is the prefix of every v2 route.
const BasePath = "/api/v2"

// DefaultCacheTTL is used when the settings leave the plot cache TTL unset.
const DefaultCacheTTL = 30 * time.Second

// Controller manages the API routes and handlers
type Controller struct {
	Echo   *echo.Echo
	Group  *echo.Group
	Trials *fieldtrial.Service
	Images *imaging.Service

	settings  conf.WebServerSettings
	metrics   *observability.Metrics
	log       logger.Logger
	plotCache *cache.Cache // plot listings keyed by query
	startTime time.Time
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithMetrics enables the /metrics route and request instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithLogger sets the controller logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithSettings applies the web server settings: rate limit and cache TTL.
func WithSettings(s conf.WebServerSettings) Option {
	return func(c *Controller) { c.settings = s }
}

// New creates the controller and registers its routes on e. images may be
// nil, in which case the image routes are not registered.
func New(e *echo.Echo, trials *fieldtrial.Service, images *imaging.Service, opts ...Option) *Controller {
	c := &Controller{
		Echo:      e,
		Trials:    trials,
		Images:    images,
		log:       logger.Global().Module("api"),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}

	ttl := c.settings.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c.plotCache = cache.New(ttl, 2*ttl)

	e.HTTPErrorHandler = c.errorHandler

	c.Group = e.Group(BasePath)
	c.Group.Use(middleware.Recover())
	if c.metrics != nil {
		c.Group.Use(mw.NewMetrics(c.metrics.HTTP))
	}
	if c.settings.RateLimit > 0 {
		cfg := mw.RateLimitConfig{RequestsPerSecond: c.settings.RateLimit}
		if c.metrics != nil {
			cfg.OnLimited = c.metrics.HTTP.RecordRateLimited
		}
		c.Group.Use(mw.NewRateLimiter(cfg))
	}

	c.initRoutes()
	return c
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)
	if c.metrics != nil {
		c.Group.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}

	routeInitializers := []struct {
		name string
		fn   func()
	}{
		{"people routes", c.initPeopleRoutes},
		{"plot routes", c.initPlotRoutes},
		{"trial routes", c.initTrialRoutes},
		{"observation routes", c.initObservationRoutes},
		{"image routes", c.initImageRoutes},
	}
	for _, initializer := range routeInitializers {
		initializer.fn()
		c.log.Debug("initialized " + initializer.name)
	}
}

// Shutdown releases cached listings.
func (c *Controller) Shutdown() {
	// go-cache's janitor goroutine cannot be stopped; flushing drops the data.
	c.plotCache.Flush()
}
