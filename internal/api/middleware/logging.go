// Package middleware provides the HTTP middleware of the contractwatch API.
package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/contractwatch/internal/logger"
)

// RequestObserver receives every completed request. path is the route
// template, e.g. /api/v1/notifications/:id, so label cardinality stays bounded.
type RequestObserver func(method, path string, status int, elapsed time.Duration)

// NewRequestLogger logs each request through log and reports it to observe
func NewRequestLogger(log logger.Logger, observe RequestObserver) echo.MiddlewareFunc {
	return NewRequestLoggerWithSkipper(log, observe, nil)
}

// NewRequestLoggerWithSkipper is NewRequestLogger with a custom skipper
func NewRequestLoggerWithSkipper(log logger.Logger, observe RequestObserver, skipper middleware.Skipper) echo.MiddlewareFunc {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper:      skipper,
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRoutePath: true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if observe != nil {
				path := v.RoutePath
				if path == "" {
					path = "unmatched"
				}
				observe(v.Method, path, v.Status, v.Latency)
			}

			fields := []logger.Field{
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.String("ip", v.RemoteIP),
				logger.Duration("latency", v.Latency),
			}
			if v.RequestID != "" {
				fields = append(fields, logger.String("request_id", v.RequestID))
			}

			switch {
			case v.Error != nil:
				fields = append(fields, logger.Error(v.Error))
				log.Warn("request", fields...)
			case v.Status >= 500:
				log.Warn("request", fields...)
			default:
				log.Debug("request", fields...)
			}
			return nil
		},
	})
}
