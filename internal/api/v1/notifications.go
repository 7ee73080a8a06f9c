package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/contractwatch/internal/errors"
	"github.com/tphakala/contractwatch/internal/notification"
)

// DefaultPageSize applies when ?limit is absent
const DefaultPageSize = 50

// CreateNotificationRequest is the body of POST /notifications
type CreateNotificationRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// GetNotifications returns a page of the feed. Query parameters: unread=true,
// type (repeatable or comma separated), limit and offset.
func (c *Controller) GetNotifications(ctx echo.Context) error {
	filter := notification.Filter{Limit: DefaultPageSize}

	if unread := ctx.QueryParam("unread"); unread != "" {
		v, err := strconv.ParseBool(unread)
		if err != nil {
			return c.HandleError(ctx, err, "unread must be true or false", http.StatusBadRequest)
		}
		filter.UnreadOnly = v
	}

	for _, raw := range ctx.QueryParams()["type"] {
		for name := range strings.SplitSeq(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				filter.Types = append(filter.Types, notification.ParseType(name))
			}
		}
	}

	if limitParam := ctx.QueryParam("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil || limit < 0 {
			return c.HandleError(ctx, err, "limit must be a non-negative integer", http.StatusBadRequest)
		}
		filter.Limit = limit
	}

	if offsetParam := ctx.QueryParam("offset"); offsetParam != "" {
		offset, err := strconv.Atoi(offsetParam)
		if err != nil || offset < 0 {
			return c.HandleError(ctx, err, "offset must be a non-negative integer", http.StatusBadRequest)
		}
		filter.Offset = offset
	}

	page, total := c.pipeline.Feed().Query(filter)
	return ctx.JSON(http.StatusOK, map[string]any{
		"notifications": page,
		"count":         len(page),
		"total":         total,
		"unreadCount":   c.pipeline.Feed().UnreadCount(),
		"limit":         filter.Limit,
		"offset":        filter.Offset,
	})
}

// GetNotification returns a single notification by ID
func (c *Controller) GetNotification(ctx echo.Context) error {
	n, err := c.pipeline.Feed().Get(ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "Notification not found", 0)
	}
	return ctx.JSON(http.StatusOK, n)
}

// CreateNotification adds a notification to the feed
func (c *Controller) CreateNotification(ctx echo.Context) error {
	var req CreateNotificationRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.HandleError(ctx, nil, "title is required", http.StatusBadRequest)
	}

	n := c.pipeline.Feed().Add(req.Title, req.Message, notification.ParseType(req.Type))
	return ctx.JSON(http.StatusCreated, n)
}

// MarkNotificationRead marks a notification as read. Marking an already read
// notification succeeds with changed=false.
func (c *Controller) MarkNotificationRead(ctx echo.Context) error {
	id := ctx.Param("id")
	if _, err := c.pipeline.Feed().Get(id); err != nil {
		return c.HandleError(ctx, err, "Notification not found", 0)
	}

	changed := c.pipeline.Feed().MarkRead(id)
	return ctx.JSON(http.StatusOK, map[string]any{
		"message":     "Notification marked as read",
		"changed":     changed,
		"unreadCount": c.pipeline.Feed().UnreadCount(),
	})
}

// MarkAllNotificationsRead marks the whole feed as read
func (c *Controller) MarkAllNotificationsRead(ctx echo.Context) error {
	changed := c.pipeline.Feed().MarkAllRead()
	return ctx.JSON(http.StatusOK, map[string]any{
		"message":     "All notifications marked as read",
		"changed":     changed,
		"unreadCount": 0,
	})
}

// DeleteNotification removes a notification
func (c *Controller) DeleteNotification(ctx echo.Context) error {
	if !c.pipeline.Feed().Remove(ctx.Param("id")) {
		return c.HandleError(ctx, notification.ErrNotificationNotFound, "Notification not found", 0)
	}
	return ctx.JSON(http.StatusOK, map[string]string{
		"message": "Notification deleted",
	})
}

// ClearNotifications empties the feed
func (c *Controller) ClearNotifications(ctx echo.Context) error {
	changed := c.pipeline.Feed().Clear()
	return ctx.JSON(http.StatusOK, map[string]any{
		"message": "Notifications cleared",
		"changed": changed,
	})
}

// GetUnreadCount returns the count of unread notifications
func (c *Controller) GetUnreadCount(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"unreadCount": c.pipeline.Feed().UnreadCount(),
	})
}

// GetToasts lists the visible toasts with their stacking layout
func (c *Controller) GetToasts(ctx echo.Context) error {
	toasts := c.pipeline.Toasts().Active()
	if toasts == nil {
		toasts = []notification.ToastView{}
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"toasts": toasts,
		"count":  len(toasts),
	})
}

// DismissToast closes a toast before it expires
func (c *Controller) DismissToast(ctx echo.Context) error {
	if !c.pipeline.Toasts().Dismiss(ctx.Param("id")) {
		return c.HandleError(ctx, errors.New(notification.ErrToastNotFound).
			Component("api").
			Category(errors.CategoryNotFound).
			Context("toast_id", ctx.Param("id")).
			Build(), "Toast not found", 0)
	}
	return ctx.NoContent(http.StatusNoContent)
}
