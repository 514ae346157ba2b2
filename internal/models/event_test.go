package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventTypeAliases(t *testing.T) {
	cases := map[string]EventType{
		"todo":     EventTypeTask,
		"Task":     EventTypeTask,
		"routine":  EventTypeRoutine,
		"vacation": EventTypeAway,
		" AWAY ":   EventTypeAway,
	}
	for raw, want := range cases {
		got, err := ParseEventType(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseEventType("meeting")
	assert.Error(t, err)
}

func TestEventTypeLabelsCoverEveryKind(t *testing.T) {
	for _, kind := range EventTypes {
		assert.True(t, kind.Valid())
		assert.NotEqual(t, string(kind), kind.Label())
	}
}

func TestEventValidate(t *testing.T) {
	ev := Event{ID: "1", Title: "Gym", Type: EventTypeRoutine, StartDate: time.Now()}
	require.NoError(t, ev.Validate())

	bad := ev
	bad.Type = "meeting"
	assert.Error(t, bad.Validate())

	bad = ev
	bad.Title = "  "
	assert.ErrorIs(t, bad.Validate(), ErrEventMissingTitle)
}

func TestDecodeChangeFromTriggerPayload(t *testing.T) {
	payload := []byte(`{"type":"insert","table":"events","record":{"id":"5","title":"Trip","type":"away","start_date":"2024-06-01T07:00:00+00:00","created_at":"2024-06-01T07:00:00.123456+00:00"},"old_record":null}`)

	change, err := DecodeChange(payload)
	require.NoError(t, err)
	require.NoError(t, change.Validate())
	assert.Equal(t, ChangeInsert, change.Kind)
	assert.Equal(t, "5", change.RowID())
	assert.Equal(t, EventTypeAway, change.New.Type)
	assert.Nil(t, change.Old)
}

func TestChangeValidateRejectsIncompletePayloads(t *testing.T) {
	assert.Error(t, Change{Kind: ChangeDelete}.Validate())
	assert.Error(t, Change{Kind: ChangeUpdate}.Validate())
	assert.Error(t, Change{Kind: "TRUNCATE"}.Validate())
	assert.Error(t, Change{Kind: ChangeDelete, Table: "other", Old: &Event{ID: "1"}}.Validate())
	assert.NoError(t, Change{Kind: ChangeDelete, Old: &Event{ID: "1"}}.Validate())
}

func TestEventJSONRoundTripKeepsStoredType(t *testing.T) {
	raw, err := json.Marshal(Event{ID: "1", Title: "x", Type: EventTypeAway})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"vacation"`)
}

func TestViewModeToggle(t *testing.T) {
	assert.Equal(t, ViewModeMonth, ViewModeDashboard.Toggle())
	assert.Equal(t, ViewModeDashboard, ViewModeMonth.Toggle())
}
