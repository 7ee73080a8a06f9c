package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/contractwatch/internal/contract"
	"github.com/tphakala/contractwatch/internal/contractstore"
	"github.com/tphakala/contractwatch/internal/errors"
	"github.com/tphakala/contractwatch/internal/notification"
	"github.com/tphakala/contractwatch/internal/observability/metrics"
	"github.com/tphakala/contractwatch/internal/state"
)

var day1 = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

type fakeSource struct {
	mu        sync.Mutex
	contracts []contract.Contract
	err       error
	calls     int
	dir       *contractstore.WorkerDirectory
}

func (s *fakeSource) Snapshot(context.Context) (*contractstore.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &contractstore.Snapshot{Contracts: s.contracts}, nil
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

func (s *fakeSource) snapshots() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// countingStore counts marker writes
type countingStore struct {
	*state.MemoryStore
	mu           sync.Mutex
	markerWrites int
}

func (c *countingStore) Set(key string, value []byte) error {
	if key == state.KeyLastCheck {
		c.mu.Lock()
		c.markerWrites++
		c.mu.Unlock()
	}
	return c.MemoryStore.Set(key, value)
}

func (c *countingStore) writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.markerWrites
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	p       *Pipeline
	source  *fakeSource
	store   *countingStore
	clock   *clock
	metrics *metrics.ScanMetrics
}

func endingIn(id, workerID string, from time.Time, days int) contract.Contract {
	start := time.Date(from.Year()-1, from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(from.Year(), from.Month(), from.Day()+days, 0, 0, 0, 0, time.UTC)
	return contract.Contract{
		ID:        id,
		WorkerID:  workerID,
		Type:      contract.TypeFixedTerm,
		StartDate: start,
		EndDate:   &end,
		Status:    contract.StatusActive,
	}
}

func newHarness(t *testing.T, contracts ...contract.Contract) *harness {
	t.Helper()

	dir := contractstore.NewWorkerDirectory(0)
	dir.Put(contract.Worker{ID: "w1", Name: "Ana García"})

	h := &harness{
		source: &fakeSource{contracts: contracts, dir: dir},
		store:  &countingStore{MemoryStore: state.NewMemoryStore()},
		clock:  &clock{now: day1},
	}
	m, err := metrics.NewScanMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	h.metrics = m

	toasts := notification.NewToastManager(notification.WithToastDuration(time.Hour))
	t.Cleanup(toasts.Close)

	h.p, err = New(Deps{
		Source:   h.source,
		Feed:     notification.NewFeed(h.store),
		Toasts:   toasts,
		Store:    h.store,
		Now:      h.clock.Now,
		Location: time.UTC,
		Metrics:  m,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) runs(result string) float64 {
	return testutil.ToFloat64(h.metrics.RunsTotal.WithLabelValues(result))
}

func mustMarker(t *testing.T, store state.Store) time.Time {
	t.Helper()
	day, found, err := state.ReadMarker(store)
	require.NoError(t, err)
	require.True(t, found, "marker should be written")
	return day
}

func TestNew_RequiresDependencies(t *testing.T) {
	t.Parallel()

	store := state.NewMemoryStore()
	feed := notification.NewFeed(store)
	toasts := notification.NewToastManager()
	t.Cleanup(toasts.Close)
	source := &fakeSource{}

	tests := []struct {
		name string
		deps Deps
	}{
		{"no source", Deps{Feed: feed, Toasts: toasts, Store: store}},
		{"no feed", Deps{Source: source, Toasts: toasts, Store: store}},
		{"no toasts", Deps{Source: source, Feed: feed, Store: store}},
		{"no store", Deps{Source: source, Feed: feed, Toasts: toasts}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.deps)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
		})
	}

	p, err := New(Deps{Source: source, Feed: feed, Toasts: toasts, Store: store})
	require.NoError(t, err)
	assert.Equal(t, 30, p.WindowDays())
}

func TestRun_OncePerDay(t *testing.T) {
	t.Parallel()
	h := newHarness(t, endingIn("c1", "w1", day1, 5))
	ctx := t.Context()

	out, err := h.p.Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, metrics.ResultNotified, out.Result)
	require.NotNil(t, out.Notification)
	require.NotNil(t, out.Toast)
	assert.Equal(t, "The contract of Ana García expires in 5 days.", out.Notification.Message)
	assert.Equal(t, notification.TypeWarning, out.Notification.Type)
	assert.Equal(t, 1, h.p.Feed().Len())
	assert.Len(t, h.p.Toasts().Active(), 1)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), mustMarker(t, h.store))

	// Same day, later on: gated.
	h.clock.advance(6 * time.Hour)
	out, err = h.p.Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, metrics.ResultSkipped, out.Result)
	assert.Nil(t, out.Notification)
	assert.Equal(t, 1, h.p.Feed().Len())
	assert.Equal(t, 1, h.store.writes())
	assert.Equal(t, 1, h.source.snapshots())

	// Next day: a second notification.
	h.clock.advance(24 * time.Hour)
	out, err = h.p.Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, metrics.ResultNotified, out.Result)
	assert.Equal(t, 2, h.p.Feed().Len())
	assert.Equal(t, 2, h.store.writes())
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), mustMarker(t, h.store))

	assert.InDelta(t, 2, h.runs(metrics.ResultNotified), 0)
	assert.InDelta(t, 1, h.runs(metrics.ResultSkipped), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.ExpiringContracts), 0)
}

func TestRun_ForceBypassesGate(t *testing.T) {
	t.Parallel()
	h := newHarness(t, endingIn("c1", "w1", day1, 0))

	for range 2 {
		out, err := h.p.Run(t.Context(), true)
		require.NoError(t, err)
		assert.Equal(t, metrics.ResultNotified, out.Result)
	}
	assert.Equal(t, 2, h.p.Feed().Len())
	assert.Equal(t, 2, h.store.writes())
}

func TestRun_NothingDueStillWritesMarker(t *testing.T) {
	t.Parallel()
	h := newHarness(t, endingIn("far", "w1", day1, 45))

	out, err := h.p.Run(t.Context(), false)
	require.NoError(t, err)
	assert.Equal(t, metrics.ResultNothingDue, out.Result)
	assert.Empty(t, out.Expiring)
	assert.Zero(t, h.p.Feed().Len())
	assert.Empty(t, h.p.Toasts().Active())
	mustMarker(t, h.store)
}

func TestRun_GroupedMessage(t *testing.T) {
	t.Parallel()
	h := newHarness(t,
		endingIn("a", "w1", day1, 5),
		endingIn("b", "w2", day1, 12),
		endingIn("c", "w3", day1, 5),
	)

	out, err := h.p.Run(t.Context(), false)
	require.NoError(t, err)
	require.NotNil(t, out.Notification)
	assert.Equal(t, "Contracts about to expire", out.Notification.Title)
	assert.Equal(t, "2 contracts expire in 5 days.\n1 contract expires in 12 days.", out.Notification.Message)
}

func TestRun_FetchErrorLeavesMarker(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		category errors.ErrorCategory
	}{
		{"connection refused", errors.NewStd("connection refused"), errors.CategoryNetwork},
		{"deadline", context.DeadlineExceeded, errors.CategoryTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, endingIn("c1", "w1", day1, 3))
			h.source.err = tt.err

			out, err := h.p.Run(t.Context(), false)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, tt.category), "got %v", err)
			assert.Equal(t, metrics.ResultFetchError, out.Result)
			assert.Zero(t, h.p.Feed().Len())

			_, found, err := state.ReadMarker(h.store)
			require.NoError(t, err)
			assert.False(t, found)
			assert.InDelta(t, 1, h.runs(metrics.ResultFetchError), 0)
		})
	}
}

func TestRun_CorruptMarkerCountsAsUnchecked(t *testing.T) {
	t.Parallel()
	h := newHarness(t, endingIn("c1", "w1", day1, 1))
	require.NoError(t, h.store.MemoryStore.Set(state.KeyLastCheck, []byte("not a date")))

	out, err := h.p.Run(t.Context(), false)
	require.NoError(t, err)
	assert.Equal(t, metrics.ResultNotified, out.Result)
	mustMarker(t, h.store)
}

func TestRun_ConcurrentCallersNotifyOnce(t *testing.T) {
	t.Parallel()
	h := newHarness(t, endingIn("c1", "w1", day1, 2))

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			_, err := h.p.Run(t.Context(), false)
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	assert.Equal(t, 1, h.p.Feed().Len())
	assert.Equal(t, 1, h.source.snapshots())
	assert.Equal(t, 1, h.store.writes())
}

func TestPreview_HasNoSideEffects(t *testing.T) {
	t.Parallel()
	h := newHarness(t, endingIn("c1", "w1", day1, 2), endingIn("c2", "w2", day1, 60))

	expiring, err := h.p.Preview(t.Context())
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, "c1", expiring[0].Contract.ID)
	assert.Equal(t, 2, expiring[0].DaysRemaining)

	assert.Zero(t, h.p.Feed().Len())
	assert.Zero(t, h.store.writes())
}

func TestValidateCandidate(t *testing.T) {
	t.Parallel()
	h := newHarness(t, endingIn("c1", "w1", day1, 10))

	start := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	err := h.p.ValidateCandidate(t.Context(), contract.Candidate{WorkerID: "w1", Start: start})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	assert.Equal(t, "c1", contract.ConflictingContractID(err))

	err = h.p.ValidateCandidate(t.Context(), contract.Candidate{WorkerID: "w2", Start: start})
	require.NoError(t, err)

	h.source.err = errors.NewStd("no route to host")
	err = h.p.ValidateCandidate(t.Context(), contract.Candidate{WorkerID: "w2", Start: start})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
}

func TestClose_RunsClosersOnceInReverse(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	var order []int
	h.p.own(func() error { order = append(order, 1); return nil })
	h.p.own(func() error { order = append(order, 2); return errors.NewStd("boom") })

	err := h.p.Close()
	require.Error(t, err)
	assert.Equal(t, []int{2, 1}, order)

	require.NoError(t, h.p.Close())
	assert.Equal(t, []int{2, 1}, order)
}
