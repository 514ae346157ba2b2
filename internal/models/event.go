package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// EventType is the closed set of calendar item kinds. Stored values match the existing events table.
type EventType string

const (
	EventTypeTask    EventType = "todo"
	EventTypeRoutine EventType = "routine"
	EventTypeAway    EventType = "vacation"
)

// EventTypes lists every kind in display order.
var EventTypes = []EventType{EventTypeTask, EventTypeRoutine, EventTypeAway}

// ParseEventType accepts stored values and their display aliases (task, away), case-insensitively.
func ParseEventType(raw string) (EventType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "todo", "task":
		return EventTypeTask, nil
	case "routine":
		return EventTypeRoutine, nil
	case "vacation", "away":
		return EventTypeAway, nil
	default:
		return "", fmt.Errorf("unknown event type %q", raw)
	}
}

// Valid reports whether t is one of the known kinds.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeTask, EventTypeRoutine, EventTypeAway:
		return true
	default:
		return false
	}
}

// Label is the human facing name.
func (t EventType) Label() string {
	switch t {
	case EventTypeTask:
		return "Task"
	case EventTypeRoutine:
		return "Routine"
	case EventTypeAway:
		return "Away"
	default:
		return string(t)
	}
}

// UnmarshalJSON folds aliases onto the stored value; unknown values are kept as-is and rejected by Validate.
func (t *EventType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if parsed, err := ParseEventType(raw); err == nil {
		*t = parsed
		return nil
	}
	*t = EventType(raw)
	return nil
}

// Event is a single calendar item as stored in the events table.
type Event struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Type      EventType `db:"type" json:"type"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

var (
	ErrEventMissingID    = errors.New("event id is empty")
	ErrEventMissingTitle = errors.New("event title is empty")
	ErrEventMissingStart = errors.New("event start_date is empty")
)

// Validate checks the row invariants every collection member must satisfy.
func (e Event) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEventMissingID
	}
	if strings.TrimSpace(e.Title) == "" {
		return ErrEventMissingTitle
	}
	if !e.Type.Valid() {
		return fmt.Errorf("event %s: unknown type %q", e.ID, e.Type)
	}
	if e.StartDate.IsZero() {
		return ErrEventMissingStart
	}
	return nil
}

// IsRoutine reports whether the event belongs in the routines section.
func (e Event) IsRoutine() bool {
	return e.Type == EventTypeRoutine
}

// ViewMode selects which projection the shell renders.
type ViewMode string

const (
	ViewModeDashboard ViewMode = "dashboard"
	ViewModeMonth     ViewMode = "month"
)

// Toggle flips between dashboard and month grid.
func (m ViewMode) Toggle() ViewMode {
	if m == ViewModeMonth {
		return ViewModeDashboard
	}
	return ViewModeMonth
}
