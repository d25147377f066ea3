package civilday_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/realorai/internal/civilday"
)

func at(s string) func() time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

func TestTodayKey_NearMidnight(t *testing.T) {
	tests := []struct {
		name string
		now  string
		want civilday.Key
	}{
		// EDT (UTC-4): 03:59Z is 23:59 the previous evening.
		{"summer before midnight", "2024-06-02T03:59:59Z", "2024-06-01"},
		{"summer after midnight", "2024-06-02T04:00:00Z", "2024-06-02"},
		// EST (UTC-5): a fixed -4 offset would already call this the next day.
		{"winter before midnight", "2024-01-16T04:30:00Z", "2024-01-15"},
		{"winter after midnight", "2024-01-16T05:00:00Z", "2024-01-16"},
		// Spring forward on 2024-03-10 at 02:00 local.
		{"spring forward morning", "2024-03-10T07:30:00Z", "2024-03-10"},
		{"spring forward night", "2024-03-11T03:59:00Z", "2024-03-10"},
		// Fall back on 2024-11-03 at 02:00 local.
		{"fall back first 01:30", "2024-11-03T05:30:00Z", "2024-11-03"},
		{"fall back late night", "2024-11-04T04:59:00Z", "2024-11-03"},
		{"fall back next midnight", "2024-11-04T05:00:00Z", "2024-11-04"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := civilday.MustEastern(civilday.WithNow(at(tt.now)))
			assert.Equal(t, tt.want, r.TodayKey())
		})
	}
}

func TestTodayKey_StableAcrossTheDay(t *testing.T) {
	r := civilday.MustEastern()
	for _, key := range []civilday.Key{"2024-03-10", "2024-06-01", "2024-11-03", "2024-12-31"} {
		start, end, err := r.UTCRange(key)
		require.NoError(t, err)

		for ts := start; ts.Before(end); ts = ts.Add(17 * time.Minute) {
			now := ts
			clocked := civilday.MustEastern(civilday.WithNow(func() time.Time { return now }))
			require.Equal(t, key, clocked.TodayKey(), "instant %s", ts)

			canonical, err := clocked.CanonicalInstant(clocked.TodayKey())
			require.NoError(t, err)
			require.True(t, canonical.Equal(start))
		}
		last := end.Add(-time.Nanosecond)
		assert.Equal(t, key, r.KeyFor(last))
		assert.NotEqual(t, key, r.KeyFor(end))
	}
}

func TestUTCRange_TransitionLengths(t *testing.T) {
	r := civilday.MustEastern()

	start, end, err := r.UTCRange("2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 10, 5, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 23*time.Hour, end.Sub(start))

	start, end, err = r.UTCRange("2024-11-03")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 11, 3, 4, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 25*time.Hour, end.Sub(start))

	start, end, err = r.UTCRange("2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 4, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 6, 2, 4, 0, 0, 0, time.UTC), end)
}

func TestYesterdayKey(t *testing.T) {
	tests := []struct {
		now  string
		want civilday.Key
	}{
		{"2024-06-01T12:00:00Z", "2024-05-31"},
		{"2024-03-01T06:00:00Z", "2024-02-29"},
		{"2025-01-01T05:00:00Z", "2024-12-31"},
		{"2024-03-11T04:30:00Z", "2024-03-10"},
	}
	for _, tt := range tests {
		r := civilday.MustEastern(civilday.WithNow(at(tt.now)))
		assert.Equal(t, tt.want, r.YesterdayKey(), tt.now)
	}
}

func TestParseKey(t *testing.T) {
	valid := []string{"2024-02-29", "2024-06-01", "1999-12-31"}
	for _, s := range valid {
		k, err := civilday.ParseKey(s)
		require.NoError(t, err, s)
		assert.Equal(t, civilday.Key(s), k)
	}

	invalid := []string{"", "2023-02-29", "2024-13-01", "2024-6-1", "06/01/2024", "2024-06-01T00:00:00Z"}
	for _, s := range invalid {
		_, err := civilday.ParseKey(s)
		require.Error(t, err, s)
		var keyErr *civilday.InvalidKeyError
		assert.True(t, errors.As(err, &keyErr), s)
	}

	r := civilday.MustEastern()
	_, _, err := r.UTCRange("2024-02-30")
	assert.Error(t, err)
}

func TestKey_AddDaysAndOrdering(t *testing.T) {
	k := civilday.Key("2024-12-31")
	next, err := k.AddDays(1)
	require.NoError(t, err)
	assert.Equal(t, civilday.Key("2025-01-01"), next)
	assert.True(t, k.Before(next))
	assert.True(t, next.After(k))

	prev, err := civilday.Key("2024-03-01").AddDays(-1)
	require.NoError(t, err)
	assert.Equal(t, civilday.Key("2024-02-29"), prev)

	_, err = civilday.Key("nope").AddDays(1)
	assert.Error(t, err)
}

func TestLoad_UnknownZone(t *testing.T) {
	_, err := civilday.Load("Mars/Olympus_Mons")
	assert.Error(t, err)

	r, err := civilday.Load("")
	require.NoError(t, err)
	assert.Equal(t, civilday.DefaultZone, r.Location().String())
}
