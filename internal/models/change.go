package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ChangeKind is the row operation carried by a realtime notification.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "INSERT"
	ChangeUpdate ChangeKind = "UPDATE"
	ChangeDelete ChangeKind = "DELETE"
)

// EventsTable is the only table the feed is scoped to.
const EventsTable = "events"

// Change is one realtime notification. The JSON shape is shared by the Postgres trigger and the Redis publisher.
type Change struct {
	Kind  ChangeKind `json:"type"`
	Table string     `json:"table,omitempty"`
	New   *Event     `json:"record,omitempty"`
	Old   *Event     `json:"old_record,omitempty"`
}

// RowID is the id the change targets: new row for inserts and updates, old row for deletes.
func (c Change) RowID() string {
	switch c.Kind {
	case ChangeDelete:
		if c.Old != nil {
			return c.Old.ID
		}
	default:
		if c.New != nil {
			return c.New.ID
		}
	}
	return ""
}

// Validate rejects notifications the merge engine cannot apply.
func (c Change) Validate() error {
	if c.Table != "" && c.Table != EventsTable {
		return fmt.Errorf("change for table %q ignored", c.Table)
	}
	switch c.Kind {
	case ChangeInsert, ChangeUpdate:
		if c.New == nil {
			return fmt.Errorf("%s without record", c.Kind)
		}
		return c.New.Validate()
	case ChangeDelete:
		if c.Old == nil || strings.TrimSpace(c.Old.ID) == "" {
			return fmt.Errorf("%s without old_record id", c.Kind)
		}
		return nil
	default:
		return fmt.Errorf("unknown change kind %q", c.Kind)
	}
}

// DecodeChange parses a feed payload.
func DecodeChange(payload []byte) (Change, error) {
	var change Change
	if err := json.Unmarshal(payload, &change); err != nil {
		return Change{}, fmt.Errorf("decode change: %w", err)
	}
	change.Kind = ChangeKind(strings.ToUpper(string(change.Kind)))
	return change, nil
}
