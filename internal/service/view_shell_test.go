package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/dayboard/internal/models"
)

func TestViewShellMonthNavigationClamps(t *testing.T) {
	shell := NewViewShell(time.Date(2024, time.January, 31, 10, 0, 0, 0, time.UTC))

	shell.NextMonth()
	assert.Equal(t, time.Date(2024, time.February, 29, 10, 0, 0, 0, time.UTC), shell.ReferenceDate)

	shell.PrevMonth()
	assert.Equal(t, time.Date(2024, time.January, 29, 10, 0, 0, 0, time.UTC), shell.ReferenceDate)
}

func TestViewShellNavigation(t *testing.T) {
	now := time.Date(2024, time.March, 12, 8, 0, 0, 0, time.UTC)
	shell := NewViewShell(now)
	assert.Equal(t, models.ViewModeDashboard, shell.Mode)

	shell.ToggleView()
	assert.Equal(t, models.ViewModeMonth, shell.Mode)
	shell.ToggleView()
	assert.Equal(t, models.ViewModeDashboard, shell.Mode)

	picked := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)
	shell.SelectDate(picked)
	assert.Equal(t, picked, shell.ReferenceDate)

	shell.GoToToday(now)
	assert.Equal(t, now, shell.ReferenceDate)
}

func TestViewShellSubmitLifecycle(t *testing.T) {
	shell := NewViewShell(time.Now())
	shell.OpenAddModal()

	assert.True(t, shell.BeginSubmit())
	assert.False(t, shell.BeginSubmit())

	shell.EndSubmit(false)
	assert.False(t, shell.Submitting)
	assert.True(t, shell.ModalOpen)

	assert.True(t, shell.BeginSubmit())
	shell.EndSubmit(true)
	assert.False(t, shell.ModalOpen)
}

func TestViewShellCloseWhileSubmitting(t *testing.T) {
	shell := NewViewShell(time.Now())
	shell.OpenAddModal()
	shell.BeginSubmit()

	shell.CloseAddModal()
	assert.False(t, shell.ModalOpen)
	assert.True(t, shell.Submitting)
}

func TestCompletionSet(t *testing.T) {
	set := NewCompletionSet()
	assert.False(t, set.IsCompleted("a"))

	set.MarkComplete("a")
	set.MarkComplete("a")
	set.MarkComplete("unknown")

	assert.True(t, set.IsCompleted("a"))
	assert.Equal(t, 2, set.Len())
	assert.True(t, set.IsCompleted("unknown"))

	set.Reset()
	assert.Equal(t, 0, set.Len())
	assert.False(t, set.IsCompleted("a"))
}
