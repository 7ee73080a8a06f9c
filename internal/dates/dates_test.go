package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"iso date", "2024-03-15", date(2024, 3, 15), false},
		{"iso timestamp", "2024-03-15T10:30:00Z", date(2024, 3, 15), false},
		{"iso timestamp with offset", "2024-03-15T23:30:00-05:00", date(2024, 3, 15), false},
		{"iso with space", "2024-03-15 08:00:00", date(2024, 3, 15), false},
		{"day month year", "15/03/2024", date(2024, 3, 15), false},
		{"day month year no padding", "5/3/2024", date(2024, 3, 5), false},
		{"day month year with time", "15/03/2024 10:30", date(2024, 3, 15), false},
		{"day month year with seconds", "5/3/2024 23:59:59", date(2024, 3, 5), false},
		{"slashes in year first order", "2024/01/15", time.Time{}, true},
		{"surrounding spaces", "  2024-12-31 ", date(2024, 12, 31), false},
		{"leap day", "29/02/2024", date(2024, 2, 29), false},
		{"empty", "", time.Time{}, true},
		{"garbage", "next tuesday", time.Time{}, true},
		{"impossible day", "31/02/2024", time.Time{}, true},
		{"month out of range", "2024-13-01", time.Time{}, true},
		{"us order", "03-15-2024", time.Time{}, true},
		{"truncated iso", "2024-03", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidDate)
				assert.True(t, got.IsZero(), "invalid input must not yield a partial date")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseWithCustomOrder(t *testing.T) {
	t.Parallel()

	monthFirst := func(s string) (time.Time, bool) {
		v, err := time.Parse("01/02/2006", s)
		return v, err == nil
	}

	got, err := ParseWith("03/04/2024", monthFirst, DayMonthYear)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 3, 4), got)

	got, err = Parse("03/04/2024")
	require.NoError(t, err)
	assert.Equal(t, date(2024, 4, 3), got)

	_, err = ParseWith("2024-03-04")
	require.ErrorIs(t, err, ErrInvalidDate)
}

func TestDaysBetween(t *testing.T) {
	t.Parallel()

	base := date(2024, 3, 1)
	tests := []struct {
		name string
		b    time.Time
		want int
	}{
		{"same day", base, 0},
		{"one day", date(2024, 3, 2), 1},
		{"thirty days", date(2024, 3, 31), 30},
		{"partial day rounds up", base.Add(36 * time.Hour), 2},
		{"one hour rounds up", base.Add(time.Hour), 1},
		{"negative", date(2024, 2, 28), -2},
		{"negative partial", base.Add(-36 * time.Hour), -1},
		{"across leap day", date(2024, 3, 1).AddDate(0, 0, 365), 365},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DaysBetween(base, tt.b))
		})
	}
}

func TestToday(t *testing.T) {
	t.Parallel()

	madrid := time.FixedZone("CEST", 2*60*60)

	// 00:30 in Madrid is still the previous day in UTC
	now := time.Date(2024, 6, 10, 0, 30, 0, 0, madrid)
	assert.Equal(t, date(2024, 6, 10), Today(now))
	assert.Equal(t, date(2024, 6, 9), Today(now.UTC()))
}

func TestFormatting(t *testing.T) {
	t.Parallel()

	d := date(2024, 3, 5)
	assert.Equal(t, "05/03/2024", FormatForDisplay(d))
	assert.Equal(t, "2024-03-05", FormatISO(d))
	assert.Empty(t, FormatForDisplay(time.Time{}))
	assert.Empty(t, FormatISO(time.Time{}))
	assert.Equal(t, date(2024, 4, 4), AddDays(d, 30))
}
