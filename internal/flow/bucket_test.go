package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flujo/internal/core"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := core.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestWeekKey(t *testing.T) {
	cases := map[string]string{
		"2024-01-06": "2024-01-06", // Saturday
		"2024-01-12": "2024-01-06", // following Friday
		"2024-01-13": "2024-01-13",
		"2024-01-05": "2023-12-30",
		"2024-03-01": "2024-02-24",
	}
	for in, want := range cases {
		key, ok := Week.KeyOf(in)
		require.True(t, ok, in)
		assert.Equal(t, want, key, in)
	}
}

func TestWeekKeyIgnoresLocalMidnight(t *testing.T) {
	loc := time.FixedZone("UTC-6", -6*3600)
	late := time.Date(2024, 1, 12, 23, 30, 0, 0, loc) // already Saturday in UTC
	assert.Equal(t, "2024-01-13", WeekKey(late))

	early := time.Date(2024, 1, 6, 0, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-06", WeekKey(early))
}

func TestDayAndMonthKeys(t *testing.T) {
	key, ok := Day.KeyOf("2024-01-05")
	require.True(t, ok)
	assert.Equal(t, "2024-01-05", key)

	key, ok = Month.KeyOf("2024-01-05")
	require.True(t, ok)
	assert.Equal(t, "2024-01", key)

	_, ok = Month.KeyOf("05/01/2024")
	assert.False(t, ok)
	_, ok = Day.KeyOf("")
	assert.False(t, ok)
}

func TestRangeHasNoGaps(t *testing.T) {
	cases := []struct {
		g          Granularity
		start, end string
		want       []string
	}{
		{Day, "2024-02-27", "2024-03-01", []string{"2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01"}},
		{Week, "2024-01-03", "2024-01-20", []string{"2023-12-30", "2024-01-06", "2024-01-13", "2024-01-20"}},
		{Month, "2023-11-15", "2024-02-01", []string{"2023-11", "2023-12", "2024-01", "2024-02"}},
		{Month, "2024-05-31", "2024-05-01", nil},
	}
	for _, tc := range cases {
		got := tc.g.Range(mustDate(t, tc.start), mustDate(t, tc.end))
		assert.Equal(t, tc.want, got, "%s %s..%s", tc.g, tc.start, tc.end)
	}
}

func TestRangeConsecutiveBuckets(t *testing.T) {
	start, end := mustDate(t, "2023-01-01"), mustDate(t, "2024-12-31")
	for _, g := range []Granularity{Day, Week, Month} {
		keys := g.Range(start, end)
		require.NotEmpty(t, keys)
		for i := 1; i < len(keys); i++ {
			prev, ok := g.BucketStart(keys[i-1])
			require.True(t, ok)
			assert.Equal(t, keys[i], g.Key(g.next(prev)), "%s gap after %s", g, keys[i-1])
		}
	}
}

func TestBucketStart(t *testing.T) {
	s, ok := Month.BucketStart("2024-02")
	require.True(t, ok)
	assert.Equal(t, "2024-02-01", core.FormatDate(s))
	assert.Equal(t, 12, s.Hour())

	s, ok = Week.BucketStart("2024-01-10")
	require.True(t, ok)
	assert.Equal(t, "2024-01-06", core.FormatDate(s))

	_, ok = Month.BucketStart("2024-13")
	assert.False(t, ok)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "ene 2024", Month.Label("2024-01"))
	assert.Equal(t, "06/01–12/01/2024", Week.Label("2024-01-06"))
	assert.Equal(t, "05/01/2024", Day.Label("2024-01-05"))
	assert.Equal(t, "bogus", Day.Label("bogus"))
}

func TestParseGranularity(t *testing.T) {
	g, err := ParseGranularity("Weekly")
	require.NoError(t, err)
	assert.Equal(t, Week, g)
	_, err = ParseGranularity("year")
	assert.Error(t, err)
}

func TestDefaultRange(t *testing.T) {
	items := []Item{{Date: "2024-03-01"}, {Date: "bad"}, {Date: "2024-01-05"}}
	today := mustDate(t, "2024-04-10")

	cases := []struct {
		name       string
		items      []Item
		r          DateRange
		upToToday  bool
		start, end string
		ok         bool
	}{
		{"records span", items, DateRange{}, false, "2024-01-05", "2024-03-01", true},
		{"start only", items, DateRange{Start: "2024-02-01"}, false, "2024-02-01", "2024-03-01", true},
		{"start only up to today", items, DateRange{Start: "2024-02-01"}, true, "2024-02-01", "2024-04-10", true},
		{"explicit", nil, DateRange{Start: "2024-01-01", End: "2024-01-03"}, false, "2024-01-01", "2024-01-03", true},
		{"end only without records", nil, DateRange{End: "2024-01-03"}, false, "2024-01-03", "2024-01-03", true},
		{"nothing", nil, DateRange{}, false, "", "", false},
		{"inverted", nil, DateRange{Start: "2024-02-01", End: "2024-01-01"}, false, "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start, end, ok := DefaultRange(tc.items, tc.r, today, tc.upToToday)
			require.Equal(t, tc.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tc.start, core.FormatDate(start))
			assert.Equal(t, tc.end, core.FormatDate(end))
		})
	}
}

func TestCountMatchesRange(t *testing.T) {
	spans := [][2]string{
		{"2024-01-01", "2024-01-01"},
		{"2024-01-05", "2024-03-02"},
		{"2023-12-30", "2024-12-31"},
		{"2024-02-28", "2024-03-01"},
		{"2024-03-20", "2024-03-05"},
		{"2024-05-01", "2023-05-01"},
	}
	for _, g := range []Granularity{Day, Week, Month} {
		for _, sp := range spans {
			start, end := mustDate(t, sp[0]), mustDate(t, sp[1])
			assert.Equal(t, len(g.Range(start, end)), g.Count(start, end), "%s %v", g, sp)
		}
	}
}

func TestCountWholeCalendar(t *testing.T) {
	start, end := mustDate(t, "0001-01-01"), mustDate(t, "9999-12-31")

	assert.Equal(t, 3652059, Day.Count(start, end))
	assert.Equal(t, 9999*12, Month.Count(start, end))
	assert.InDelta(t, 3652059/7, Week.Count(start, end), 2)
}
