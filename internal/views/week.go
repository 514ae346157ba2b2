package views

import (
	"time"

	"github.com/noah-isme/dayboard/internal/models"
)

// DensityLevel buckets a day's event count: 0, 1-2, 3-4, 5+.
func DensityLevel(count int) int {
	switch {
	case count <= 0:
		return 0
	case count <= 2:
		return 1
	case count <= 4:
		return 2
	default:
		return 3
	}
}

// DensityDay is one cell of the week strip.
type DensityDay struct {
	Date     time.Time `json:"date"`
	Label    string    `json:"label"`
	Count    int       `json:"count"`
	Level    int       `json:"level"`
	Selected bool      `json:"selected"`
	Today    bool      `json:"today"`
}

// WeekStrip is the seven-day density indicator around the reference date.
type WeekStrip struct {
	Start time.Time    `json:"start"`
	Days  []DensityDay `json:"days"`
}

// Week computes densities for the Sunday-started week containing ref.
func Week(events []models.Event, ref, today time.Time) WeekStrip {
	loc := ref.Location()
	buckets := bucketByDay(events, loc)
	start := StartOfWeek(ref)

	strip := WeekStrip{Start: start, Days: make([]DensityDay, 0, 7)}
	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i)
		count := len(buckets[keyOf(day, loc)])
		strip.Days = append(strip.Days, DensityDay{
			Date:     day,
			Label:    WeekdayLabels[day.Weekday()],
			Count:    count,
			Level:    DensityLevel(count),
			Selected: SameDay(day, ref, loc),
			Today:    SameDay(day, today, loc),
		})
	}
	return strip
}
