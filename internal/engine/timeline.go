package engine

import (
	"fmt"
	"sort"
	"time"
)

// DayLayout is the calendar-date key format used by timelines and insights.
const DayLayout = "2006-01-02"

// Timestamped is any record with a creation instant.
type Timestamped interface {
	CreatedTime() time.Time
}

// Timeline maps a calendar date (DayLayout, in the grouping zone) to the
// records created that day, oldest first.
type Timeline[T Timestamped] map[string][]T

// GroupByDay buckets records by the calendar date of their creation time in
// loc (UTC when nil). Every record lands in exactly one bucket.
func GroupByDay[T Timestamped](records []T, loc *time.Location) Timeline[T] {
	if loc == nil {
		loc = time.UTC
	}
	tl := make(Timeline[T])
	for _, r := range records {
		key := DayKey(r.CreatedTime(), loc)
		tl[key] = append(tl[key], r)
	}
	for _, bucket := range tl {
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].CreatedTime().Before(bucket[j].CreatedTime())
		})
	}
	return tl
}

// Days returns the day keys, most recent first.
func (tl Timeline[T]) Days() []string {
	days := make([]string, 0, len(tl))
	for d := range tl {
		days = append(days, d)
	}
	// DayLayout sorts lexically in date order.
	sort.Sort(sort.Reverse(sort.StringSlice(days)))
	return days
}

// Len returns the number of records across all days.
func (tl Timeline[T]) Len() int {
	n := 0
	for _, bucket := range tl {
		n += len(bucket)
	}
	return n
}

// DayKey formats the calendar date of t in loc.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayLayout)
}

// StartOfDay returns midnight of t's calendar date in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// ParseDay parses a YYYY-MM-DD date as midnight in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}
