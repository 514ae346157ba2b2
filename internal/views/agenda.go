package views

import (
	"time"

	"github.com/noah-isme/dayboard/internal/models"
)

// QueueSize is how many items follow the focus item.
const QueueSize = 3

// CompletionFunc reports whether an event id was marked done this session.
type CompletionFunc func(id string) bool

// AgendaItem is one event of the day with its session completion flag.
type AgendaItem struct {
	models.Event
	Completed bool `json:"completed"`
}

// Agenda is the dashboard projection of a single day.
type Agenda struct {
	Date      time.Time      `json:"date"`
	Items     []AgendaItem   `json:"items"`
	Focus     *models.Event  `json:"focus"`
	Queue     []models.Event `json:"queue"`
	Routines  []models.Event `json:"routines"`
	Completed int            `json:"completed"`
}

// Empty reports a clear schedule: nothing left to focus on.
func (a Agenda) Empty() bool {
	return a.Focus == nil
}

// Day builds the agenda for ref's calendar day. Focus is the earliest not-completed event, the queue the
// next QueueSize not-completed ones; routines are listed regardless of completion.
func Day(events []models.Event, ref time.Time, isCompleted CompletionFunc) Agenda {
	if isCompleted == nil {
		isCompleted = func(string) bool { return false }
	}
	loc := ref.Location()
	agenda := Agenda{
		Date:     StartOfDay(ref),
		Items:    []AgendaItem{},
		Queue:    []models.Event{},
		Routines: []models.Event{},
	}

	day := make([]models.Event, 0)
	for _, ev := range events {
		if SameDay(ev.StartDate, ref, loc) {
			day = append(day, ev)
		}
	}

	for _, ev := range sortedByStart(day) {
		done := isCompleted(ev.ID)
		agenda.Items = append(agenda.Items, AgendaItem{Event: ev, Completed: done})
		if ev.IsRoutine() {
			agenda.Routines = append(agenda.Routines, ev)
		}
		switch {
		case done:
			agenda.Completed++
		case agenda.Focus == nil:
			focus := ev
			agenda.Focus = &focus
		case len(agenda.Queue) < QueueSize:
			agenda.Queue = append(agenda.Queue, ev)
		}
	}
	return agenda
}
