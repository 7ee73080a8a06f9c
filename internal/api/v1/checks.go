package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/contractwatch/internal/notification"
)

// checkTimeout bounds a request-triggered scan
const checkTimeout = 30 * time.Second

// HandoffRequest is the optional body of POST /handoff. With a title the
// payload is stored as is; without a body the gated scan stages it.
type HandoffRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// RunExpirationCheck runs the gated scan. ?force=true bypasses the once per
// day gate; the marker is still written. A contract store failure answers
// 503 and leaves the marker untouched.
func (c *Controller) RunExpirationCheck(ctx echo.Context) error {
	force := false
	if v := ctx.QueryParam("force"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return c.HandleError(ctx, err, "force must be true or false", http.StatusBadRequest)
		}
		force = parsed
	}

	reqCtx, cancel := context.WithTimeout(ctx.Request().Context(), checkTimeout)
	defer cancel()

	out, err := c.pipeline.Run(reqCtx, force)
	if err != nil {
		return c.HandleError(ctx, err, "Expiration check failed", 0)
	}
	return ctx.JSON(http.StatusOK, out)
}

// StageHandoff is called on login. Without a body it runs the gated scan and
// stages a pending toast; with a body it stores the given payload.
func (c *Controller) StageHandoff(ctx echo.Context) error {
	var req HandoffRequest
	if ctx.Request().ContentLength != 0 {
		if err := ctx.Bind(&req); err != nil {
			return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
		}
	}

	if strings.TrimSpace(req.Title) != "" {
		if err := c.pipeline.SetHandoff(req.Title, req.Message, notification.ParseType(req.Type)); err != nil {
			return c.HandleError(ctx, err, "Failed to store handoff", 0)
		}
		return ctx.JSON(http.StatusCreated, map[string]any{"pending": true})
	}

	reqCtx, cancel := context.WithTimeout(ctx.Request().Context(), checkTimeout)
	defer cancel()

	out, err := c.pipeline.StageHandoff(reqCtx)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to stage handoff", 0)
	}
	return ctx.JSON(http.StatusOK, out)
}

// ConsumeHandoff is called on dashboard mount. It shows the pending toast
// and adds it to the feed. A handoff staged by today's scan also records
// today's check.
func (c *Controller) ConsumeHandoff(ctx echo.Context) error {
	out, err := c.pipeline.ConsumeHandoff()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to consume handoff", 0)
	}
	return ctx.JSON(http.StatusOK, out)
}
