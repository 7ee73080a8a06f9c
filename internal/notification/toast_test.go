package notification

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/contractwatch/internal/testutil"
)

// fakeTimer is fired by hand
type fakeTimer struct {
	mu      sync.Mutex
	f       func()
	d       time.Duration
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasPending := !t.stopped && !t.fired
	t.stopped = true
	return wasPending
}

// Fire runs the callback even when stopped, like a timer that fired just
// before Stop was called.
func (t *fakeTimer) Fire() {
	t.mu.Lock()
	t.fired = true
	f := t.f
	t.mu.Unlock()
	f()
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{f: f, d: d}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) timer(t *testing.T, i int) *fakeTimer {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.Greater(t, len(c.timers), i)
	return c.timers[i]
}

type dismissal struct {
	id     string
	reason DismissReason
}

func newTestToasts(t *testing.T) (*ToastManager, *fakeClock, *[]dismissal) {
	t.Helper()
	clock := &fakeClock{}
	var mu sync.Mutex
	var dismissed []dismissal
	m := NewToastManager(
		WithTimerFunc(clock.AfterFunc),
		WithDismissHook(func(tt Toast, r DismissReason) {
			mu.Lock()
			defer mu.Unlock()
			dismissed = append(dismissed, dismissal{tt.ID, r})
		}))
	t.Cleanup(m.Close)
	return m, clock, &dismissed
}

func TestToast_ShowSchedulesDefaultDuration(t *testing.T) {
	t.Parallel()

	m, clock, _ := newTestToasts(t)
	toast := m.Show("Contract about to expire", "msg", TypeWarning)

	assert.NotEmpty(t, toast.ID)
	assert.Equal(t, DefaultToastDuration, toast.Duration)
	assert.Equal(t, 5*time.Second, clock.timer(t, 0).d)
	require.Len(t, m.Active(), 1)
}

func TestToast_ExpiryRemovesToast(t *testing.T) {
	t.Parallel()

	m, clock, dismissed := newTestToasts(t)
	toast := m.Show("T", "m", TypeInfo)

	clock.timer(t, 0).Fire()

	assert.Empty(t, m.Active())
	assert.Equal(t, []dismissal{{toast.ID, DismissExpired}}, *dismissed)
	assert.False(t, m.Dismiss(toast.ID), "expired toast cannot be dismissed")
}

func TestToast_DismissCancelsTimer(t *testing.T) {
	t.Parallel()

	m, clock, dismissed := newTestToasts(t)
	toast := m.Show("T", "m", TypeInfo)

	assert.True(t, m.Dismiss(toast.ID))
	assert.True(t, clock.timer(t, 0).stopped)

	// A timer that fired concurrently with Dismiss finds the toast gone.
	clock.timer(t, 0).Fire()

	assert.Empty(t, m.Active())
	assert.Equal(t, []dismissal{{toast.ID, DismissManual}}, *dismissed, "exactly one removal")
	assert.False(t, m.Dismiss(toast.ID))
}

func TestToast_ActiveLayout(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestToasts(t)
	a := m.Show("A", "", TypeInfo)
	b := m.Show("B", "", TypeWarning)
	c := m.Show("C", "", TypeError)

	views := m.Active()
	require.Len(t, views, 3)

	tests := []struct {
		id     string
		index  int
		offset int
		zIndex int
	}{
		{a.ID, 0, 0, ToastBaseZ + 2},
		{b.ID, 1, ToastSpacing, ToastBaseZ + 1},
		{c.ID, 2, 2 * ToastSpacing, ToastBaseZ},
	}
	for i, tt := range tests {
		assert.Equal(t, tt.id, views[i].ID)
		assert.Equal(t, tt.index, views[i].Index)
		assert.Equal(t, tt.offset, views[i].Offset)
		assert.Equal(t, tt.zIndex, views[i].ZIndex)
	}

	require.True(t, m.Dismiss(a.ID))
	views = m.Active()
	require.Len(t, views, 2)
	assert.Equal(t, b.ID, views[0].ID)
	assert.Zero(t, views[0].Offset, "remaining toasts restack")
	assert.Equal(t, ToastBaseZ+1, views[0].ZIndex)
}

func TestToast_CloseStopsAllTimers(t *testing.T) {
	t.Parallel()

	m, clock, dismissed := newTestToasts(t)
	m.Show("A", "", TypeInfo)
	m.Show("B", "", TypeInfo)

	m.Close()

	assert.Empty(t, m.Active())
	assert.True(t, clock.timer(t, 0).stopped)
	assert.True(t, clock.timer(t, 1).stopped)
	require.Len(t, *dismissed, 2)
	assert.Equal(t, DismissClosed, (*dismissed)[0].reason)

	m.Show("late", "", TypeInfo)
	assert.Empty(t, m.Active(), "no toasts after close")
}

func TestToast_RealTimerExpires(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	m := NewToastManager(
		WithToastDuration(10*time.Millisecond),
		WithDismissHook(func(_ Toast, r DismissReason) {
			if r == DismissExpired {
				close(done)
			}
		}))
	defer m.Close()

	m.Show("T", "m", TypeSuccess)

	testutil.Receive(t, done, testutil.DefaultTestTimeout, "toast did not expire")
	assert.Empty(t, m.Active())
}

func TestToast_InvalidTypeBecomesInfo(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestToasts(t)
	assert.Equal(t, TypeInfo, m.Show("T", "m", Type("loud")).Type)
}
