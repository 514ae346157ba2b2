package service

import (
	"time"

	"github.com/noah-isme/dayboard/internal/models"
	"github.com/noah-isme/dayboard/internal/views"
)

// ViewShell is the navigation and modal state of the mounted view. It is a plain value; SessionService
// serialises access.
type ViewShell struct {
	ReferenceDate time.Time       `json:"reference_date"`
	Mode          models.ViewMode `json:"mode"`
	ModalOpen     bool            `json:"modal_open"`
	Submitting    bool            `json:"submitting"`
}

// NewViewShell starts on the dashboard, referencing now.
func NewViewShell(now time.Time) ViewShell {
	return ViewShell{ReferenceDate: now, Mode: models.ViewModeDashboard}
}

func (s *ViewShell) NextMonth() {
	s.ReferenceDate = views.AddMonths(s.ReferenceDate, 1)
}

func (s *ViewShell) PrevMonth() {
	s.ReferenceDate = views.AddMonths(s.ReferenceDate, -1)
}

func (s *ViewShell) GoToToday(now time.Time) {
	s.ReferenceDate = now
}

func (s *ViewShell) SelectDate(date time.Time) {
	s.ReferenceDate = date
}

func (s *ViewShell) ToggleView() {
	s.Mode = s.Mode.Toggle()
}

func (s *ViewShell) OpenAddModal() {
	s.ModalOpen = true
}

// CloseAddModal dismisses the form. An outstanding submit keeps running.
func (s *ViewShell) CloseAddModal() {
	s.ModalOpen = false
}

// BeginSubmit flags a submit in flight. It reports false if one already is.
func (s *ViewShell) BeginSubmit() bool {
	if s.Submitting {
		return false
	}
	s.Submitting = true
	return true
}

// EndSubmit clears the in-flight flag; a successful submit closes the modal, a failed one leaves it open.
func (s *ViewShell) EndSubmit(success bool) {
	s.Submitting = false
	if success {
		s.ModalOpen = false
	}
}
