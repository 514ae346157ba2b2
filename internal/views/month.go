package views

import (
	"time"

	"github.com/noah-isme/dayboard/internal/models"
)

// MonthCell is one day of the month grid.
type MonthCell struct {
	Date     time.Time      `json:"date"`
	Day      int            `json:"day"`
	Events   []models.Event `json:"events"`
	InMonth  bool           `json:"in_month"`
	IsToday  bool           `json:"is_today"`
	Selected bool           `json:"selected"`
}

// MonthGrid covers the full weeks spanning ref's month.
type MonthGrid struct {
	Month    time.Time   `json:"month"`
	Title    string      `json:"title"`
	Weekdays []string    `json:"weekdays"`
	Weeks    int         `json:"weeks"`
	Cells    []MonthCell `json:"cells"`
}

// Month partitions events into the cells from the Sunday on or before the 1st to the Saturday on or after
// the last day of ref's month. The cell count is always a multiple of seven.
func Month(events []models.Event, ref, today time.Time) MonthGrid {
	loc := ref.Location()
	monthStart := StartOfMonth(ref)
	monthEnd := calendarConfig.With(monthStart).EndOfMonth()
	gridStart := StartOfWeek(monthStart)
	gridEnd := calendarConfig.With(monthEnd).EndOfWeek()

	buckets := bucketByDay(events, loc)
	grid := MonthGrid{
		Month:    monthStart,
		Title:    monthStart.Format("January 2006"),
		Weekdays: WeekdayLabels,
		Cells:    make([]MonthCell, 0, 42),
	}
	for day := gridStart; !day.After(gridEnd); day = day.AddDate(0, 0, 1) {
		dayEvents := buckets[keyOf(day, loc)]
		if dayEvents == nil {
			dayEvents = []models.Event{}
		} else {
			dayEvents = sortedByStart(dayEvents)
		}
		grid.Cells = append(grid.Cells, MonthCell{
			Date:     day,
			Day:      day.Day(),
			Events:   dayEvents,
			InMonth:  day.Month() == monthStart.Month() && day.Year() == monthStart.Year(),
			IsToday:  SameDay(day, today, loc),
			Selected: SameDay(day, ref, loc),
		})
	}
	grid.Weeks = len(grid.Cells) / 7
	return grid
}
