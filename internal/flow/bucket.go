// Package flow aggregates cash-flow records into time-bucketed tables.
//
// Everything in this package is pure: functions take records, a catalog and a
// query, and return freshly built values. Nothing here logs or performs I/O.
package flow

import (
	"fmt"
	"strings"
	"time"

	"flujo/internal/core"
)

type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
)

const (
	monthLayout   = "2006-01"
	secondsPerDay = 24 * 60 * 60
)

var monthNames = [...]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sep", "oct", "nov", "dic"}

// DateRange is an optional inclusive filter on record dates (YYYY-MM-DD).
type DateRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(strings.ToLower(strings.TrimSpace(s))) {
	case Day, "daily":
		return Day, nil
	case Week, "weekly":
		return Week, nil
	case Month, "monthly":
		return Month, nil
	default:
		return "", fmt.Errorf("unknown granularity %q", s)
	}
}

// DayKey is the identity on the record date.
func DayKey(t time.Time) string {
	return core.FormatDate(t)
}

// WeekKey returns the Saturday on or before t. Weeks run Saturday to Friday.
func WeekKey(t time.Time) string {
	return core.FormatDate(weekStart(t))
}

// MonthKey returns "YYYY-MM".
func MonthKey(t time.Time) string {
	return t.UTC().Format(monthLayout)
}

func weekStart(t time.Time) time.Time {
	t = noon(t)
	back := (int(t.Weekday()) - int(time.Saturday) + 7) % 7
	return t.AddDate(0, 0, -back)
}

// noon anchors t at 12:00 UTC of its UTC calendar day.
func noon(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

// Key returns the bucket key of t for granularity g.
func (g Granularity) Key(t time.Time) string {
	switch g {
	case Week:
		return WeekKey(t)
	case Month:
		return MonthKey(t)
	default:
		return DayKey(t)
	}
}

// KeyOf buckets a raw record date. ok is false when the date cannot be parsed.
func (g Granularity) KeyOf(date string) (key string, ok bool) {
	t, err := core.ParseDate(date)
	if err != nil {
		return "", false
	}
	return g.Key(t), true
}

// BucketStart returns the first calendar day covered by key, at noon UTC.
func (g Granularity) BucketStart(key string) (time.Time, bool) {
	if g == Month {
		t, err := time.Parse(monthLayout, strings.TrimSpace(key))
		if err != nil {
			return time.Time{}, false
		}
		return t.Add(12 * time.Hour), true
	}
	t, err := core.ParseDate(key)
	if err != nil {
		return time.Time{}, false
	}
	if g == Week {
		t = weekStart(t)
	}
	return t, true
}

func (g Granularity) next(t time.Time) time.Time {
	switch g {
	case Week:
		return t.AddDate(0, 0, 7)
	case Month:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// Range enumerates every bucket key between the buckets containing start and
// end, inclusive. Buckets without records are still present. It returns nil
// when end falls before start.
func (g Granularity) Range(start, end time.Time) []string {
	first, last := g.Key(start), g.Key(end)
	cur, ok := g.BucketStart(first)
	if !ok || last < first {
		return nil
	}
	var keys []string
	for {
		k := g.Key(cur)
		keys = append(keys, k)
		if k == last {
			return keys
		}
		cur = g.next(cur)
	}
}

// Count returns the number of keys Range would return for start and end,
// without enumerating them.
func (g Granularity) Count(start, end time.Time) int {
	var n int
	switch g {
	case Week:
		n = int((weekStart(end).Unix() - weekStart(start).Unix()) / (7 * secondsPerDay))
	case Month:
		sy, sm, _ := start.UTC().Date()
		ey, em, _ := end.UTC().Date()
		n = (ey-sy)*12 + int(em) - int(sm)
	default:
		n = int((noon(end).Unix() - noon(start).Unix()) / secondsPerDay)
	}
	if n < 0 {
		return 0
	}
	return n + 1
}

// Label renders a bucket key for column headers.
func (g Granularity) Label(key string) string {
	start, ok := g.BucketStart(key)
	if !ok {
		return key
	}
	switch g {
	case Month:
		return fmt.Sprintf("%s %d", monthNames[start.Month()-1], start.Year())
	case Week:
		end := start.AddDate(0, 0, 6)
		return fmt.Sprintf("%02d/%02d–%02d/%02d/%d", start.Day(), start.Month(), end.Day(), end.Month(), end.Year())
	default:
		return fmt.Sprintf("%02d/%02d/%d", start.Day(), start.Month(), start.Year())
	}
}

// DefaultRange resolves the date window of a view. Explicit bounds win;
// otherwise the earliest and latest parsable item dates are used. When
// upToToday is set, a missing end defaults to today instead of the last record.
// ok is false when there is nothing to span.
func DefaultRange(items []Item, r DateRange, today time.Time, upToToday bool) (start, end time.Time, ok bool) {
	var minT, maxT time.Time
	seen := false
	for _, it := range items {
		t, err := core.ParseDate(it.Date)
		if err != nil {
			continue
		}
		if !seen || t.Before(minT) {
			minT = t
		}
		if !seen || t.After(maxT) {
			maxT = t
		}
		seen = true
	}

	hasStart, hasEnd := false, false
	if t, err := core.ParseDate(r.Start); err == nil {
		start, hasStart = t, true
	}
	if t, err := core.ParseDate(r.End); err == nil {
		end, hasEnd = t, true
	}

	if !hasStart {
		switch {
		case seen:
			start = minT
		case hasEnd:
			start = end
		case upToToday:
			start = noon(today)
		default:
			return time.Time{}, time.Time{}, false
		}
	}
	if !hasEnd {
		switch {
		case upToToday:
			end = noon(today)
		case seen:
			end = maxT
		default:
			end = start
		}
	}
	if end.Before(start) {
		return start, end, false
	}
	return start, end, true
}
