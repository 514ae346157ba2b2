package dto

import (
	"time"

	"github.com/noah-isme/dayboard/internal/models"
	"github.com/noah-isme/dayboard/internal/views"
)

// ShellState mirrors the navigation and modal state of the mounted view.
type ShellState struct {
	ReferenceDate time.Time       `json:"reference_date"`
	Mode          models.ViewMode `json:"mode"`
	ModalOpen     bool            `json:"modal_open"`
	Submitting    bool            `json:"submitting"`
}

// SyncStatus reports the last fetch failure, if any. It is informational and never blocks the view.
type SyncStatus struct {
	Message  string    `json:"message"`
	FailedAt time.Time `json:"failed_at"`
}

// ViewResponse is the projection of the active view. Dashboard mode fills Agenda and Week, month mode fills
// Month.
type ViewResponse struct {
	Shell     ShellState        `json:"shell"`
	Loading   bool              `json:"loading"`
	SyncError *SyncStatus       `json:"sync_error,omitempty"`
	Version   uint64            `json:"version"`
	Agenda    *views.Agenda     `json:"agenda,omitempty"`
	Week      *views.WeekStrip  `json:"week,omitempty"`
	Month     *views.MonthGrid  `json:"month,omitempty"`
	Types     []EventTypeOption `json:"types"`
}

// EventTypeOption is one choice of the add-item form.
type EventTypeOption struct {
	Value models.EventType `json:"value"`
	Label string           `json:"label"`
}

// SubmitResult reports the outcome of an add-item submit. A blank title yields Submitted=false with the
// modal left as it was.
type SubmitResult struct {
	Submitted bool          `json:"submitted"`
	Event     *models.Event `json:"event,omitempty"`
	Shell     ShellState    `json:"shell"`
}

// SelectDateRequest carries a YYYY-MM-DD date.
type SelectDateRequest struct {
	Date string `json:"date" binding:"required"`
}

// SyncResult summarises a manual resync.
type SyncResult struct {
	Events  int    `json:"events"`
	Version uint64 `json:"version"`
}

// HealthResponse backs the liveness and readiness probes.
type HealthResponse struct {
	Status   string `json:"status"`
	Mounted  bool   `json:"mounted"`
	Loading  bool   `json:"loading"`
	Events   int    `json:"events"`
	Realtime string `json:"realtime"`
	Store    string `json:"store,omitempty"`
}
