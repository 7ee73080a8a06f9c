package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/contractwatch/internal/contract"
	"github.com/tphakala/contractwatch/internal/contractstore"
	"github.com/tphakala/contractwatch/internal/errors"
	"github.com/tphakala/contractwatch/internal/notification"
	"github.com/tphakala/contractwatch/internal/observability"
	"github.com/tphakala/contractwatch/internal/pipeline"
	"github.com/tphakala/contractwatch/internal/state"
)

var now = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu        sync.Mutex
	contracts []contract.Contract
	err       error
	dir       *contractstore.WorkerDirectory
}

func (s *fakeSource) Snapshot(ctx context.Context) (*contractstore.Snapshot, error) {
	contracts, err := s.Contracts(ctx)
	if err != nil {
		return nil, err
	}
	return &contractstore.Snapshot{Contracts: contracts}, nil
}

func (s *fakeSource) Contracts(context.Context) ([]contract.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.contracts, nil
}

func (s *fakeSource) Directory() *contractstore.WorkerDirectory { return s.dir }

func (s *fakeSource) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func fixedTerm(id, workerID string, endsInDays int) contract.Contract {
	end := time.Date(2024, 3, 1+endsInDays, 0, 0, 0, 0, time.UTC)
	return contract.Contract{
		ID:        id,
		WorkerID:  workerID,
		Type:      contract.TypeFixedTerm,
		StartDate: time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   &end,
		Status:    contract.StatusActive,
	}
}

type testAPI struct {
	e        *echo.Echo
	pipeline *pipeline.Pipeline
	source   *fakeSource
	store    *state.MemoryStore
}

func newTestAPI(t *testing.T, opts ...Option) *testAPI {
	t.Helper()

	dir := contractstore.NewWorkerDirectory(0)
	dir.Put(contract.Worker{ID: "w1", Name: "Ana García"})
	source := &fakeSource{
		contracts: []contract.Contract{fixedTerm("c1", "w1", 5), fixedTerm("c2", "w2", 90)},
		dir:       dir,
	}
	store := state.NewMemoryStore()
	toasts := notification.NewToastManager(notification.WithToastDuration(time.Hour))
	t.Cleanup(toasts.Close)

	p, err := pipeline.New(pipeline.Deps{
		Source:   source,
		Feed:     notification.NewFeed(store),
		Toasts:   toasts,
		Store:    store,
		Now:      func() time.Time { return now },
		Location: time.UTC,
	})
	require.NoError(t, err)

	e := echo.New()
	_, err = New(e, p, append([]Option{WithClock(func() time.Time { return now })}, opts...)...)
	require.NoError(t, err)

	return &testAPI{e: e, pipeline: p, source: source, store: store}
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, http.NoBody)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNew_RequiresPipeline(t *testing.T) {
	t.Parallel()
	_, err := New(echo.New(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.InDelta(t, 0, body["unread"], 0)
	assert.NotEmpty(t, body["version"])
}

func TestMetricsRoute(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/api/v1/metrics", "").Code)

	m, err := observability.NewMetrics()
	require.NoError(t, err)
	a = newTestAPI(t, WithMetrics(m))
	m.Scan.RecordRun("notified")

	rec := a.do(t, http.MethodGet, "/api/v1/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `contractwatch_scan_runs_total{result="notified"} 1`)
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	build := func(c errors.ErrorCategory) error {
		return errors.Newf("x").Category(c).Build()
	}
	tests := []struct {
		err  error
		want int
	}{
		{build(errors.CategoryNotFound), http.StatusNotFound},
		{build(errors.CategoryValidation), http.StatusBadRequest},
		{build(errors.CategoryNetwork), http.StatusServiceUnavailable},
		{build(errors.CategoryTimeout), http.StatusServiceUnavailable},
		{build(errors.CategoryCancellation), http.StatusServiceUnavailable},
		{build(errors.CategoryDatabase), http.StatusInternalServerError},
		{errors.NewStd("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
