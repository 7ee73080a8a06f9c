package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/contractwatch/internal/errors"
	"github.com/tphakala/contractwatch/internal/notification"
	"github.com/tphakala/contractwatch/internal/observability/metrics"
	"github.com/tphakala/contractwatch/internal/state"
)

func TestHandoff_StageThenConsume(t *testing.T) {
	t.Parallel()
	h := newHarness(t, endingIn("c1", "w1", day1, 7))

	out, err := h.p.StageHandoff(t.Context())
	require.NoError(t, err)
	assert.Equal(t, metrics.ResultStaged, out.Result)
	assert.Zero(t, h.p.Feed().Len(), "staging must not notify")
	assert.Zero(t, h.store.writes(), "staging must not touch the marker")

	staged, err := state.ReadHandoff(h.store)
	require.NoError(t, err)
	assert.True(t, staged.Pending)
	assert.True(t, staged.ScannedOn(day1))
	assert.Equal(t, "The contract of Ana García expires in 7 days.", staged.Message)

	out, err = h.p.ConsumeHandoff()
	require.NoError(t, err)
	assert.Equal(t, metrics.ResultNotified, out.Result)
	require.NotNil(t, out.Toast)
	require.NotNil(t, out.Notification)
	assert.Equal(t, staged.Title, out.Toast.Title)
	assert.Equal(t, notification.TypeWarning, out.Notification.Type)
	assert.Len(t, h.p.Toasts().Active(), 1)
	assert.Equal(t, 1, h.p.Feed().Len())
	mustMarker(t, h.store)

	cleared, err := state.ReadHandoff(h.store)
	require.NoError(t, err)
	assert.False(t, cleared.Pending)

	// Consumed once; the gated run is now a no-op for the day.
	out, err = h.p.ConsumeHandoff()
	require.NoError(t, err)
	assert.Equal(t, metrics.ResultNothingDue, out.Result)

	out, err = h.p.Run(t.Context(), false)
	require.NoError(t, err)
	assert.Equal(t, metrics.ResultSkipped, out.Result)
	assert.Equal(t, 1, h.p.Feed().Len())
}

func TestHandoff_StageSkipsWhenCheckedToday(t *testing.T) {
	t.Parallel()
	h := newHarness(t, endingIn("c1", "w1", day1, 7))
	require.NoError(t, state.WriteMarker(h.store, day1))

	out, err := h.p.StageHandoff(t.Context())
	require.NoError(t, err)
	assert.Equal(t, metrics.ResultSkipped, out.Result)
	assert.Zero(t, h.source.snapshots())
}

func TestHandoff_StageNothingDue(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	out, err := h.p.StageHandoff(t.Context())
	require.NoError(t, err)
	assert.Equal(t, metrics.ResultNothingDue, out.Result)

	_, found, err := h.store.Get(state.KeyHandoff)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestHandoff_StageFetchError(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.source.err = errors.NewStd("connection reset")

	out, err := h.p.StageHandoff(t.Context())
	require.Error(t, err)
	assert.Equal(t, metrics.ResultFetchError, out.Result)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
}

func TestHandoff_CorruptPayloadIsDiscarded(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	require.NoError(t, h.store.Set(state.KeyHandoff, []byte("{pending")))

	out, err := h.p.ConsumeHandoff()
	require.NoError(t, err)
	assert.Equal(t, metrics.ResultNothingDue, out.Result)
	assert.Zero(t, h.p.Feed().Len())

	_, found, err := h.store.Get(state.KeyHandoff)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSetHandoff(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	err := h.p.SetHandoff("", "body", notification.TypeInfo)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	require.NoError(t, h.p.SetHandoff("Welcome back", "3 contracts need review", notification.Type("bogus")))

	out, err := h.p.ConsumeHandoff()
	require.NoError(t, err)
	require.NotNil(t, out.Notification)
	assert.Equal(t, "Welcome back", out.Notification.Title)
	assert.Equal(t, notification.TypeInfo, out.Notification.Type)
}

func TestHandoff_RunSupersedesStagedHandoff(t *testing.T) {
	t.Parallel()
	h := newHarness(t, endingIn("c1", "w1", day1, 7))

	_, err := h.p.StageHandoff(t.Context())
	require.NoError(t, err)

	out, err := h.p.Run(t.Context(), false)
	require.NoError(t, err)
	assert.Equal(t, metrics.ResultNotified, out.Result)

	out, err = h.p.ConsumeHandoff()
	require.NoError(t, err)
	assert.Equal(t, metrics.ResultNothingDue, out.Result)
	assert.Equal(t, 1, h.p.Feed().Len())
	assert.Len(t, h.p.Toasts().Active(), 1)
	assert.Equal(t, 1, h.store.writes())
}

func TestHandoff_ConsumeDiscardsWhenDayAlreadyChecked(t *testing.T) {
	t.Parallel()
	h := newHarness(t, endingIn("c1", "w1", day1, 7))

	_, err := h.p.StageHandoff(t.Context())
	require.NoError(t, err)
	// another process checked the day in between
	require.NoError(t, state.WriteMarker(h.store, day1))

	out, err := h.p.ConsumeHandoff()
	require.NoError(t, err)
	assert.Equal(t, metrics.ResultSkipped, out.Result)
	assert.Nil(t, out.Notification)
	assert.Zero(t, h.p.Feed().Len())
	assert.Empty(t, h.p.Toasts().Active())

	_, found, err := h.store.Get(state.KeyHandoff)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestHandoff_StaleScanHandoffLeavesMarker(t *testing.T) {
	t.Parallel()
	h := newHarness(t, endingIn("c1", "w1", day1, 7))

	_, err := h.p.StageHandoff(t.Context())
	require.NoError(t, err)
	h.clock.advance(24 * time.Hour)

	out, err := h.p.ConsumeHandoff()
	require.NoError(t, err)
	assert.Equal(t, metrics.ResultNotified, out.Result)
	assert.Zero(t, h.store.writes(), "yesterday's facts do not check today")

	out, err = h.p.Run(t.Context(), false)
	require.NoError(t, err)
	assert.Equal(t, metrics.ResultNotified, out.Result)
}

func TestSetHandoff_DoesNotCheckTheDay(t *testing.T) {
	t.Parallel()
	h := newHarness(t, endingIn("c1", "w1", day1, 7))

	require.NoError(t, h.p.SetHandoff("Welcome", "", notification.TypeInfo))
	out, err := h.p.ConsumeHandoff()
	require.NoError(t, err)
	assert.Equal(t, metrics.ResultNotified, out.Result)
	assert.Zero(t, h.store.writes())

	out, err = h.p.Run(t.Context(), false)
	require.NoError(t, err)
	assert.Equal(t, metrics.ResultNotified, out.Result)
	assert.Equal(t, 2, h.p.Feed().Len())
}

func TestRun_KeepsCallerHandoff(t *testing.T) {
	t.Parallel()
	h := newHarness(t, endingIn("c1", "w1", day1, 7))

	require.NoError(t, h.p.SetHandoff("Welcome", "", notification.TypeInfo))
	_, err := h.p.Run(t.Context(), false)
	require.NoError(t, err)

	kept, err := state.ReadHandoff(h.store)
	require.NoError(t, err)
	assert.True(t, kept.Pending)
	assert.False(t, kept.Scanned)
}
