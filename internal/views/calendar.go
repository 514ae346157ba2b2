// Package views holds the pure projections of the event collection: the day agenda, the week density
// strip and the month grid. Nothing here touches I/O or shared state; callers pass the snapshot, the
// reference date and, where needed, "today" and a completion predicate.
package views

import (
	"sort"
	"time"

	"github.com/jinzhu/now"

	"github.com/noah-isme/dayboard/internal/models"
)

// Weeks start on Sunday.
var calendarConfig = &now.Config{WeekStartDay: time.Sunday}

// WeekdayLabels are the grid headers in week order.
var WeekdayLabels = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

type dayKey struct {
	year  int
	month time.Month
	day   int
}

func keyOf(t time.Time, loc *time.Location) dayKey {
	y, m, d := t.In(loc).Date()
	return dayKey{year: y, month: m, day: d}
}

// SameDay compares calendar days in loc, not a 24h window.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return keyOf(a, loc) == keyOf(b, loc)
}

// StartOfDay is midnight of t in t's location.
func StartOfDay(t time.Time) time.Time {
	return calendarConfig.With(t).BeginningOfDay()
}

// StartOfWeek is midnight of the Sunday on or before t.
func StartOfWeek(t time.Time) time.Time {
	return calendarConfig.With(t).BeginningOfWeek()
}

// StartOfMonth is midnight of the 1st of t's month.
func StartOfMonth(t time.Time) time.Time {
	return calendarConfig.With(t).BeginningOfMonth()
}

// AddMonths moves t by n calendar months, clamping the day to the target month's length
// (Jan 31 + 1 month is the last day of February).
func AddMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, n, 0)
	day := t.Day()
	if last := calendarConfig.With(first).EndOfMonth().Day(); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// sortedByStart returns a copy ordered by start_date; equal timestamps keep arrival order.
func sortedByStart(events []models.Event) []models.Event {
	out := make([]models.Event, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out
}

// bucketByDay groups events by calendar day in loc, keeping arrival order inside a bucket.
func bucketByDay(events []models.Event, loc *time.Location) map[dayKey][]models.Event {
	buckets := make(map[dayKey][]models.Event)
	for _, ev := range events {
		k := keyOf(ev.StartDate, loc)
		buckets[k] = append(buckets[k], ev)
	}
	return buckets
}
