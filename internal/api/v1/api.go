// Package api implements the JSON endpoints mounted under /api/v1.
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/contractwatch/internal/buildinfo"
	"github.com/tphakala/contractwatch/internal/errors"
	"github.com/tphakala/contractwatch/internal/logger"
	"github.com/tphakala/contractwatch/internal/observability"
	"github.com/tphakala/contractwatch/internal/pipeline"
)

// Prefix is where the controller mounts its routes
const Prefix = "/api/v1"

// Controller manages the API routes and handlers
type Controller struct {
	Group    *echo.Group
	pipeline *pipeline.Pipeline
	metrics  *observability.Metrics
	logger   logger.Logger
	started  time.Time
	now      func() time.Time
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithLogger sets the controller logger
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics exposes m under /metrics
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// New registers the v1 routes on e
func New(e *echo.Echo, p *pipeline.Pipeline, opts ...Option) (*Controller, error) {
	if p == nil {
		return nil, errors.Newf("api controller requires a pipeline").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}

	c := &Controller{
		Group:    e.Group(Prefix),
		pipeline: p,
		logger:   logger.NewDiscardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.started = c.now()

	c.initRoutes()
	return c, nil
}

func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	n := c.Group.Group("/notifications")
	n.GET("", c.GetNotifications)
	n.POST("", c.CreateNotification)
	n.DELETE("", c.ClearNotifications)
	n.GET("/unread/count", c.GetUnreadCount)
	n.PUT("/read-all", c.MarkAllNotificationsRead)
	n.GET("/:id", c.GetNotification)
	n.PUT("/:id/read", c.MarkNotificationRead)
	n.DELETE("/:id", c.DeleteNotification)

	c.Group.GET("/toasts", c.GetToasts)
	c.Group.DELETE("/toasts/:id", c.DismissToast)

	c.Group.GET("/contracts/expiring", c.GetExpiringContracts)
	c.Group.GET("/contracts/expiring/export", c.ExportExpiringContracts)
	c.Group.POST("/contracts/validate", c.ValidateContract)

	c.Group.POST("/expiration-check", c.RunExpirationCheck)
	c.Group.POST("/handoff", c.StageHandoff)
	c.Group.POST("/handoff/consume", c.ConsumeHandoff)

	if c.metrics != nil {
		c.Group.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}
}

// HealthCheck reports liveness together with the feed and marker state
func (c *Controller) HealthCheck(ctx echo.Context) error {
	uptime := c.now().Sub(c.started)
	resp := map[string]any{
		"status":         "healthy",
		"uptime":         uptime.Round(time.Second).String(),
		"uptime_seconds": uptime.Seconds(),
		"unread":         c.pipeline.Feed().UnreadCount(),
		"timestamp":      c.now().Format(time.RFC3339),
		"version":        buildinfo.Current().Version,
	}
	return ctx.JSON(http.StatusOK, resp)
}
