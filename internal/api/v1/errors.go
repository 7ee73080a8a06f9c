package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/contractwatch/internal/errors"
	"github.com/tphakala/contractwatch/internal/logger"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// statusFor maps an error category to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.IsCategory(err, errors.CategoryNotFound):
		return http.StatusNotFound
	case errors.IsCategory(err, errors.CategoryValidation):
		return http.StatusBadRequest
	case errors.IsCategory(err, errors.CategoryNetwork),
		errors.IsCategory(err, errors.CategoryTimeout),
		errors.IsCategory(err, errors.CategoryCancellation):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HandleError logs err and writes an ErrorResponse. A zero code derives the
// status from the error category.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	if code == 0 {
		code = statusFor(err)
	}

	resp := ErrorResponse{
		Message:       message,
		Code:          code,
		CorrelationID: ctx.Response().Header().Get(echo.HeaderXRequestID),
	}
	if err != nil {
		resp.Error = err.Error()
	} else {
		resp.Error = message
	}

	fields := []logger.Field{
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
	}
	if resp.CorrelationID != "" {
		fields = append(fields, logger.String("correlation_id", resp.CorrelationID))
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if code >= http.StatusInternalServerError {
		c.logger.Error("api error", fields...)
	} else {
		c.logger.Debug("api error", fields...)
	}

	return ctx.JSON(code, resp)
}
