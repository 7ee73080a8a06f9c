package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/contractwatch/internal/notification"
)

type listResponse struct {
	Notifications []notification.Notification `json:"notifications"`
	Count         int                         `json:"count"`
	Total         int                         `json:"total"`
	UnreadCount   int                         `json:"unreadCount"`
	Limit         int                         `json:"limit"`
	Offset        int                         `json:"offset"`
}

func mustCreate(t *testing.T, a *testAPI, title, typ string) notification.Notification {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/notifications",
		`{"title":"`+title+`","message":"body","type":"`+typ+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[notification.Notification](t, rec)
}

func TestNotifications_CreateAndList(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)

	first := mustCreate(t, a, "first", "info")
	second := mustCreate(t, a, "second", "warning")
	mustCreate(t, a, "third", "bogus")

	rec := a.do(t, http.MethodGet, "/api/v1/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[listResponse](t, rec)
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, DefaultPageSize, list.Limit)
	require.Len(t, list.Notifications, 3)
	assert.Equal(t, "third", list.Notifications[0].Title, "newest first")
	assert.Equal(t, notification.TypeInfo, list.Notifications[0].Type)

	rec = a.do(t, http.MethodGet, "/api/v1/notifications?limit=1&offset=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list = decode[listResponse](t, rec)
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, second.ID, list.Notifications[0].ID)
	assert.Equal(t, 3, list.Total)

	rec = a.do(t, http.MethodGet, "/api/v1/notifications?type=warning", "")
	list = decode[listResponse](t, rec)
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, second.ID, list.Notifications[0].ID)

	rec = a.do(t, http.MethodPut, "/api/v1/notifications/"+first.ID+"/read", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(t, http.MethodGet, "/api/v1/notifications?unread=true", "")
	list = decode[listResponse](t, rec)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, 2, list.UnreadCount)
}

func TestNotifications_BadQuery(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)

	for _, q := range []string{"limit=-1", "limit=ten", "offset=-3", "unread=maybe"} {
		rec := a.do(t, http.MethodGet, "/api/v1/notifications?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		assert.NotEmpty(t, decode[ErrorResponse](t, rec).Message, q)
	}
}

func TestNotifications_CreateValidation(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/api/v1/notifications", `{"title":"  "}`).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/api/v1/notifications", `{"title":`).Code)
}

func TestNotifications_ReadDeleteAndClear(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)
	n := mustCreate(t, a, "hello", "info")
	mustCreate(t, a, "other", "info")

	rec := a.do(t, http.MethodGet, "/api/v1/notifications/"+n.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", decode[notification.Notification](t, rec).Title)

	rec = a.do(t, http.MethodPut, "/api/v1/notifications/"+n.ID+"/read", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["changed"])

	rec = a.do(t, http.MethodPut, "/api/v1/notifications/"+n.ID+"/read", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["changed"], "idempotent")

	rec = a.do(t, http.MethodGet, "/api/v1/notifications/unread/count", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 1, decode[map[string]any](t, rec)["unreadCount"], 0)

	rec = a.do(t, http.MethodPut, "/api/v1/notifications/read-all", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, a.pipeline.Feed().UnreadCount())

	for _, path := range []string{"/api/v1/notifications/missing", "/api/v1/notifications/missing/read"} {
		method := http.MethodGet
		if len(path) > len("/api/v1/notifications/missing") {
			method = http.MethodPut
		}
		rec = a.do(t, method, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}

	rec = a.do(t, http.MethodDelete, "/api/v1/notifications/"+n.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(t, http.MethodDelete, "/api/v1/notifications/"+n.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodDelete, "/api/v1/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["changed"])
	assert.Zero(t, a.pipeline.Feed().Len())

	rec = a.do(t, http.MethodDelete, "/api/v1/notifications", "")
	assert.Equal(t, false, decode[map[string]any](t, rec)["changed"])
}

func TestToasts(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/api/v1/toasts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"toasts":[],"count":0}`, rec.Body.String())

	first := a.pipeline.Toasts().Show("one", "", notification.TypeInfo)
	a.pipeline.Toasts().Show("two", "", notification.TypeError)

	rec = a.do(t, http.MethodGet, "/api/v1/toasts", "")
	body := decode[struct {
		Toasts []notification.ToastView `json:"toasts"`
	}](t, rec)
	require.Len(t, body.Toasts, 2)
	assert.Equal(t, notification.ToastBaseZ+1, body.Toasts[0].ZIndex)
	assert.Equal(t, notification.ToastSpacing, body.Toasts[1].Offset)

	rec = a.do(t, http.MethodDelete, "/api/v1/toasts/"+first.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(t, http.MethodDelete, "/api/v1/toasts/"+first.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, a.pipeline.Toasts().Active(), 1)
}
