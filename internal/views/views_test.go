package views

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dayboard/internal/models"
)

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func event(id string, kind models.EventType, start time.Time) models.Event {
	return models.Event{ID: id, Title: "event " + id, Type: kind, StartDate: start}
}

func completed(ids ...string) CompletionFunc {
	set := map[string]bool{}
	for _, id := range ids {
		set[id] = true
	}
	return func(id string) bool { return set[id] }
}

func TestDayAgendaGymMeetingScenario(t *testing.T) {
	events := []models.Event{
		{ID: "1", Title: "Gym", Type: models.EventTypeRoutine, StartDate: at(2024, 6, 1, 7, 0)},
		{ID: "2", Title: "Meeting", Type: models.EventTypeTask, StartDate: at(2024, 6, 1, 10, 0)},
	}

	agenda := Day(events, at(2024, 6, 1, 0, 0), nil)

	require.NotNil(t, agenda.Focus)
	assert.Equal(t, "1", agenda.Focus.ID)
	require.Len(t, agenda.Queue, 1)
	assert.Equal(t, "2", agenda.Queue[0].ID)
	require.Len(t, agenda.Routines, 1)
	assert.Equal(t, "1", agenda.Routines[0].ID)
}

func TestDayAgendaFocusSkipsCompletedAndCapsQueue(t *testing.T) {
	ref := at(2024, 6, 3, 12, 0)
	events := []models.Event{
		event("late", models.EventTypeTask, at(2024, 6, 3, 18, 0)),
		event("early", models.EventTypeTask, at(2024, 6, 3, 6, 0)),
		event("mid", models.EventTypeRoutine, at(2024, 6, 3, 9, 0)),
		event("noon", models.EventTypeTask, at(2024, 6, 3, 12, 0)),
		event("eve", models.EventTypeAway, at(2024, 6, 3, 20, 0)),
		event("night", models.EventTypeTask, at(2024, 6, 3, 23, 0)),
		event("tomorrow", models.EventTypeTask, at(2024, 6, 4, 0, 0)),
	}

	agenda := Day(events, ref, completed("early", "mid"))

	require.NotNil(t, agenda.Focus)
	assert.Equal(t, "noon", agenda.Focus.ID)
	assert.Equal(t, []string{"late", "eve", "night"}, ids(agenda.Queue))
	assert.Equal(t, []string{"mid"}, ids(agenda.Routines), "routines ignore completion")
	assert.Equal(t, 2, agenda.Completed)
	assert.Len(t, agenda.Items, 6)
	assert.True(t, agenda.Items[0].Completed)
}

func TestDayAgendaEmptyDay(t *testing.T) {
	agenda := Day([]models.Event{event("x", models.EventTypeTask, at(2024, 6, 2, 9, 0))}, at(2024, 6, 1, 9, 0), nil)
	assert.True(t, agenda.Empty())
	assert.Empty(t, agenda.Queue)
	assert.NotNil(t, agenda.Queue)
	assert.Empty(t, agenda.Routines)
}

func TestDayAgendaAllCompletedHasNoFocus(t *testing.T) {
	events := []models.Event{event("a", models.EventTypeTask, at(2024, 6, 1, 9, 0))}
	agenda := Day(events, at(2024, 6, 1, 0, 0), completed("a"))
	assert.Nil(t, agenda.Focus)
	assert.Len(t, agenda.Items, 1)
}

func TestDayAgendaStableOnEqualTimestamps(t *testing.T) {
	same := at(2024, 6, 1, 9, 0)
	events := []models.Event{
		event("first", models.EventTypeTask, same),
		event("second", models.EventTypeTask, same),
		event("third", models.EventTypeTask, same),
	}
	agenda := Day(events, same, nil)
	assert.Equal(t, "first", agenda.Focus.ID)
	assert.Equal(t, []string{"second", "third"}, ids(agenda.Queue))
}

func TestDayAgendaUsesCalendarDayOfReferenceLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	// 2024-06-01 23:30 JST is 14:30 UTC on the same date; 2024-06-01 00:30 JST is still May 31 in UTC.
	events := []models.Event{
		event("late", models.EventTypeTask, time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC)),
		event("early", models.EventTypeTask, time.Date(2024, 5, 31, 15, 30, 0, 0, time.UTC)),
	}
	agenda := Day(events, time.Date(2024, 6, 1, 12, 0, 0, 0, tokyo), nil)
	require.NotNil(t, agenda.Focus)
	assert.Equal(t, "early", agenda.Focus.ID)
	assert.Equal(t, []string{"late"}, ids(agenda.Queue))
}

func TestDensityLevels(t *testing.T) {
	cases := map[int]int{0: 0, 1: 1, 2: 1, 3: 2, 4: 2, 5: 3, 12: 3}
	for count, level := range cases {
		assert.Equal(t, level, DensityLevel(count), "count %d", count)
	}
}

func TestWeekDensityBuckets(t *testing.T) {
	// Week of Sunday 2024-06-02 .. Saturday 2024-06-08.
	var events []models.Event
	add := func(day, n int) {
		for i := 0; i < n; i++ {
			events = append(events, event(fmt.Sprintf("%d-%d", day, i), models.EventTypeTask, at(2024, 6, day, 8+i, 0)))
		}
	}
	add(3, 2)
	add(4, 4)
	add(5, 5)
	add(9, 3) // next week

	strip := Week(events, at(2024, 6, 5, 15, 0), at(2024, 6, 4, 9, 0))

	require.Len(t, strip.Days, 7)
	assert.Equal(t, at(2024, 6, 2, 0, 0), strip.Start)
	levels := make([]int, 0, 7)
	for _, d := range strip.Days {
		levels = append(levels, d.Level)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 0, 0, 0}, levels)
	assert.Equal(t, "Sun", strip.Days[0].Label)
	assert.True(t, strip.Days[3].Selected)
	assert.True(t, strip.Days[2].Today)
	assert.Equal(t, 5, strip.Days[3].Count)
}

func TestMonthGridCoversFullWeeks(t *testing.T) {
	for month := time.January; month <= time.December; month++ {
		for _, year := range []int{2023, 2024, 2026} {
			ref := at(year, month, 15, 12, 0)
			grid := Month(nil, ref, ref)

			require.Zero(t, len(grid.Cells)%7, "%s %d", month, year)
			assert.Equal(t, time.Sunday, grid.Cells[0].Date.Weekday())
			assert.Equal(t, time.Saturday, grid.Cells[len(grid.Cells)-1].Date.Weekday())

			seen := map[int]int{}
			for _, cell := range grid.Cells {
				if cell.InMonth {
					seen[cell.Day]++
				}
			}
			daysInMonth := at(year, month+1, 0, 0, 0).Day()
			require.Len(t, seen, daysInMonth, "%s %d", month, year)
			for day, n := range seen {
				assert.Equal(t, 1, n, "day %d of %s %d", day, month, year)
			}
		}
	}
}

func TestMonthGridPlacesEventsAndFlags(t *testing.T) {
	events := []models.Event{
		event("b", models.EventTypeTask, at(2024, 6, 1, 10, 0)),
		event("a", models.EventTypeRoutine, at(2024, 6, 1, 7, 0)),
		event("spill", models.EventTypeAway, at(2024, 5, 28, 9, 0)),
		event("far", models.EventTypeTask, at(2024, 8, 1, 9, 0)),
	}
	grid := Month(events, at(2024, 6, 10, 0, 0), at(2024, 6, 1, 8, 0))

	assert.Equal(t, "June 2024", grid.Title)
	assert.Equal(t, 6, grid.Weeks) // May 26 .. July 6
	first := grid.Cells[0]
	assert.Equal(t, at(2024, 5, 26, 0, 0), first.Date)
	assert.False(t, first.InMonth)

	var june1, may28 MonthCell
	for _, c := range grid.Cells {
		switch {
		case c.Date.Equal(at(2024, 6, 1, 0, 0)):
			june1 = c
		case c.Date.Equal(at(2024, 5, 28, 0, 0)):
			may28 = c
		}
	}
	assert.True(t, june1.InMonth)
	assert.True(t, june1.IsToday)
	assert.Equal(t, []string{"a", "b"}, ids(june1.Events))
	assert.Equal(t, []string{"spill"}, ids(may28.Events))
	assert.False(t, may28.InMonth)
}

func TestAddMonthsClampsDay(t *testing.T) {
	assert.Equal(t, at(2024, 2, 29, 8, 30), AddMonths(at(2024, 1, 31, 8, 30), 1))
	assert.Equal(t, at(2023, 2, 28, 0, 0), AddMonths(at(2023, 3, 31, 0, 0), -1))
	assert.Equal(t, at(2025, 1, 15, 0, 0), AddMonths(at(2024, 12, 15, 0, 0), 1))
	assert.Equal(t, at(2023, 12, 31, 0, 0), AddMonths(at(2024, 1, 31, 0, 0), -1))
}

func TestSameDayIgnoresTimeOfDay(t *testing.T) {
	assert.True(t, SameDay(at(2024, 6, 1, 0, 0), at(2024, 6, 1, 23, 59), time.UTC))
	assert.False(t, SameDay(at(2024, 6, 1, 23, 59), at(2024, 6, 2, 0, 1), time.UTC))
}

func ids(events []models.Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.ID)
	}
	return out
}
