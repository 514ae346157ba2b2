package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/dayboard/internal/models"
	appErrors "github.com/noah-isme/dayboard/pkg/errors"
)

type fakeStore struct {
	mu          sync.Mutex
	events      []models.Event
	fetchErr    error
	createErr   error
	fetchCalls  int
	createCalls int
	gate        chan struct{}
	entered     chan struct{}
	// fetchGate holds the next FetchAll after it has read the rows.
	fetchGate    chan struct{}
	fetchEntered chan struct{}
}

func (f *fakeStore) FetchAll(context.Context) ([]models.Event, error) {
	f.mu.Lock()
	f.fetchCalls++
	if f.fetchErr != nil {
		f.mu.Unlock()
		return nil, appErrors.Store(f.fetchErr, "failed to load events")
	}
	out := make([]models.Event, len(f.events))
	copy(out, f.events)
	gate, entered := f.fetchGate, f.fetchEntered
	f.fetchGate, f.fetchEntered = nil, nil
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return out, nil
}

func (f *fakeStore) Create(ctx context.Context, req CreateEventRequest) (*models.Event, error) {
	f.mu.Lock()
	f.createCalls++
	gate, entered := f.gate, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, appErrors.Store(f.createErr, "failed to save event")
	}
	kind, err := models.ParseEventType(req.Type)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	return &models.Event{ID: "new-1", Title: req.Title, Type: kind, StartDate: baseTime}, nil
}

func (f *fakeStore) set(events ...models.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = events
}

func (f *fakeStore) calls() (fetch, create int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls, f.createCalls
}

var sessionDay = time.Date(2024, time.June, 1, 6, 0, 0, 0, time.UTC)

func gymAndMeeting() []models.Event {
	return []models.Event{
		{ID: "1", Title: "Gym", Type: models.EventTypeRoutine, StartDate: time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC)},
		{ID: "2", Title: "Meeting", Type: models.EventTypeTask, StartDate: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)},
	}
}

func newTestSession(t *testing.T, store *fakeStore, feed *fakeFeed) *SessionService {
	t.Helper()
	params := SessionParams{
		Store:  store,
		Logger: zap.NewNop(),
		Config: SessionConfig{Location: time.UTC},
	}
	if feed != nil {
		params.Feed = feed
	}
	session := NewSessionService(params)
	session.now = func() time.Time { return sessionDay }
	t.Cleanup(session.Unmount)
	return session
}

func mountAndWait(t *testing.T, session *SessionService) {
	t.Helper()
	require.NoError(t, session.Mount(context.Background()))
	require.Eventually(t, func() bool { return !session.Health().Loading }, 2*time.Second, 5*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, session.WaitIdle(ctx))
}

func flush(t *testing.T, session *SessionService) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, session.WaitIdle(ctx))
}

func TestSessionMountLoadsDashboard(t *testing.T) {
	store := &fakeStore{events: gymAndMeeting()}
	feed := &fakeFeed{}
	session := newTestSession(t, store, feed)

	mountAndWait(t, session)

	view := session.View()
	assert.False(t, view.Loading)
	assert.Nil(t, view.SyncError)
	assert.Equal(t, models.ViewModeDashboard, view.Shell.Mode)
	require.NotNil(t, view.Agenda)
	require.NotNil(t, view.Agenda.Focus)
	assert.Equal(t, "1", view.Agenda.Focus.ID)
	assert.Equal(t, []string{"2"}, ids(view.Agenda.Queue))
	assert.Equal(t, []string{"1"}, ids(view.Agenda.Routines))
	require.NotNil(t, view.Week)
	assert.Len(t, view.Week.Days, 7)
	assert.Nil(t, view.Month)
	assert.Len(t, view.Types, 3)

	health := session.Health()
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, RealtimeConnected, health.Realtime)
	assert.Equal(t, 2, health.Events)
}

func TestSessionAppliesRealtimeChanges(t *testing.T) {
	store := &fakeStore{events: gymAndMeeting()}
	feed := &fakeFeed{}
	session := newTestSession(t, store, feed)
	mountAndWait(t, session)

	sub := feed.last()
	require.NotNil(t, sub)
	lunch := models.Event{ID: "3", Title: "Lunch", Type: models.EventTypeTask, StartDate: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	require.True(t, sub.Deliver(insert(lunch)))
	require.True(t, sub.Deliver(remove("2")))

	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"1", "3"}, ids(session.Events()))
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSessionFetchFailureKeepsStateAndReportsSyncError(t *testing.T) {
	store := &fakeStore{fetchErr: errors.New("network down")}
	session := newTestSession(t, store, &fakeFeed{})

	mountAndWait(t, session)

	view := session.View()
	assert.False(t, view.Loading)
	require.NotNil(t, view.SyncError)
	assert.Equal(t, "failed to load events", view.SyncError.Message)
	require.NotNil(t, view.Agenda)
	assert.True(t, view.Agenda.Empty())

	// recovers on the next successful fetch
	store.mu.Lock()
	store.fetchErr = nil
	store.events = gymAndMeeting()
	store.mu.Unlock()

	result, err := session.Resync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Events)
	assert.Nil(t, session.View().SyncError)
}

func TestSessionResyncFailureRetainsCollection(t *testing.T) {
	store := &fakeStore{events: gymAndMeeting()}
	session := newTestSession(t, store, &fakeFeed{})
	mountAndWait(t, session)

	store.mu.Lock()
	store.fetchErr = errors.New("timeout")
	store.mu.Unlock()

	_, err := session.Resync(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.IsStore(err))
	assert.Equal(t, []string{"1", "2"}, ids(session.Events()))
	assert.NotNil(t, session.View().SyncError)
}

func TestSessionGapTriggersResync(t *testing.T) {
	store := &fakeStore{events: gymAndMeeting()}
	feed := &fakeFeed{}
	session := newTestSession(t, store, feed)
	mountAndWait(t, session)

	store.set(gymAndMeeting()[0])
	feed.last().SignalGap()

	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"1"}, ids(session.Events()))
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSessionGapDuringRunningResyncIsNotLost(t *testing.T) {
	store := &fakeStore{fetchGate: make(chan struct{}), fetchEntered: make(chan struct{}, 1)}
	feed := &fakeFeed{}
	session := newTestSession(t, store, feed)
	require.NoError(t, session.Mount(context.Background()))

	// the initial fetch has read an empty table and is still in flight
	<-store.fetchEntered
	missed := models.Event{ID: "missed", Title: "Dentist", Type: models.EventTypeTask, StartDate: sessionDay}
	store.set(missed)
	feed.last().SignalGap()

	// the gap handler runs on its own goroutine; give it time to find the running fetch
	assert.Never(t, func() bool {
		fetches, _ := store.calls()
		return fetches > 1
	}, 50*time.Millisecond, 5*time.Millisecond)
	close(store.fetchGate)

	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"missed"}, ids(session.Events()))
	}, 2*time.Second, 5*time.Millisecond)
	fetches, _ := store.calls()
	assert.Equal(t, 2, fetches)
}

func TestSessionManualResyncWhileRunningConflicts(t *testing.T) {
	store := &fakeStore{fetchGate: make(chan struct{}), fetchEntered: make(chan struct{}, 1)}
	session := newTestSession(t, store, nil)
	require.NoError(t, session.Mount(context.Background()))
	<-store.fetchEntered

	_, err := session.Resync(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	close(store.fetchGate)
	require.Eventually(t, func() bool { return !session.Health().Loading }, 2*time.Second, 5*time.Millisecond)
	flush(t, session)
	fetches, _ := store.calls()
	assert.Equal(t, 1, fetches)
}

func TestSessionSubscribeFailureStillMounts(t *testing.T) {
	store := &fakeStore{events: gymAndMeeting()}
	session := newTestSession(t, store, &fakeFeed{err: errors.New("listen refused")})

	mountAndWait(t, session)

	assert.Equal(t, RealtimeUnavailable, session.Health().Realtime)
	assert.Len(t, session.Events(), 2)
}

func TestSessionInvalidScheduleStillMounts(t *testing.T) {
	store := &fakeStore{events: gymAndMeeting()}
	session := NewSessionService(SessionParams{
		Store:  store,
		Config: SessionConfig{Location: time.UTC, ResyncSchedule: "not a schedule"},
	})
	t.Cleanup(session.Unmount)

	mountAndWait(t, session)
	assert.Len(t, session.Events(), 2)
}

func TestSessionSubmitBlankTitleIsNoop(t *testing.T) {
	store := &fakeStore{}
	session := newTestSession(t, store, nil)
	mountAndWait(t, session)
	require.NoError(t, session.OpenAddModal())

	result, err := session.Submit(context.Background(), CreateEventRequest{Title: "   ", Type: "todo"})
	require.NoError(t, err)
	assert.False(t, result.Submitted)
	assert.True(t, result.Shell.ModalOpen)
	assert.False(t, result.Shell.Submitting)

	_, creates := store.calls()
	assert.Equal(t, 0, creates)
}

func TestSessionSubmitSuccessWaitsForFeed(t *testing.T) {
	store := &fakeStore{}
	feed := &fakeFeed{}
	session := newTestSession(t, store, feed)
	mountAndWait(t, session)
	require.NoError(t, session.OpenAddModal())

	result, err := session.Submit(context.Background(), CreateEventRequest{Title: "Call mom", Type: "task"})
	require.NoError(t, err)
	assert.True(t, result.Submitted)
	require.NotNil(t, result.Event)
	assert.False(t, result.Shell.ModalOpen)
	assert.False(t, result.Shell.Submitting)

	flush(t, session)
	assert.Empty(t, session.Events())

	require.True(t, feed.last().Deliver(insert(*result.Event)))
	assert.Eventually(t, func() bool { return len(session.Events()) == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestSessionSubmitFailureKeepsModalOpen(t *testing.T) {
	store := &fakeStore{createErr: errors.New("insert rejected")}
	session := newTestSession(t, store, nil)
	mountAndWait(t, session)
	require.NoError(t, session.OpenAddModal())

	result, err := session.Submit(context.Background(), CreateEventRequest{Title: "Gym", Type: "routine"})
	require.Error(t, err)
	assert.True(t, appErrors.IsStore(err))
	assert.False(t, result.Submitted)
	assert.True(t, result.Shell.ModalOpen)
	assert.False(t, result.Shell.Submitting)
}

func TestSessionRejectsDuplicateSubmit(t *testing.T) {
	store := &fakeStore{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	session := newTestSession(t, store, nil)
	mountAndWait(t, session)

	done := make(chan error, 1)
	go func() {
		_, err := session.Submit(context.Background(), CreateEventRequest{Title: "First", Type: "todo"})
		done <- err
	}()
	<-store.entered
	assert.True(t, session.Shell().Submitting)

	_, err := session.Submit(context.Background(), CreateEventRequest{Title: "Second", Type: "todo"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	close(store.gate)
	require.NoError(t, <-done)
	_, creates := store.calls()
	assert.Equal(t, 1, creates)
	assert.False(t, session.Shell().Submitting)
}

func TestSessionSubmitCompletingAfterUnmountLeavesShell(t *testing.T) {
	store := &fakeStore{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	session := newTestSession(t, store, nil)
	mountAndWait(t, session)
	require.NoError(t, session.OpenAddModal())

	done := make(chan error, 1)
	go func() {
		_, err := session.Submit(context.Background(), CreateEventRequest{Title: "Late", Type: "todo"})
		done <- err
	}()
	<-store.entered
	session.Unmount()

	close(store.gate)
	require.NoError(t, <-done)
	shell := session.Shell()
	assert.True(t, shell.ModalOpen)
	assert.False(t, shell.Submitting)
}

func TestSessionCompleteMovesFocus(t *testing.T) {
	store := &fakeStore{events: gymAndMeeting()}
	session := newTestSession(t, store, nil)
	mountAndWait(t, session)

	require.NoError(t, session.Complete("1"))
	require.NoError(t, session.Complete("1"))

	agenda := session.View().Agenda
	require.NotNil(t, agenda.Focus)
	assert.Equal(t, "2", agenda.Focus.ID)
	assert.Equal(t, []string{"1"}, ids(agenda.Routines))
	assert.Equal(t, 1, agenda.Completed)

	err := session.Complete(" ")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestSessionNavigation(t *testing.T) {
	store := &fakeStore{events: gymAndMeeting()}
	session := newTestSession(t, store, nil)
	mountAndWait(t, session)

	require.NoError(t, session.ToggleView())
	view := session.View()
	assert.Equal(t, models.ViewModeMonth, view.Shell.Mode)
	require.NotNil(t, view.Month)
	assert.Nil(t, view.Agenda)
	assert.Equal(t, "June 2024", view.Month.Title)

	require.NoError(t, session.NextMonth())
	assert.Equal(t, time.July, session.ReferenceDate().Month())
	require.NoError(t, session.PrevMonth())
	require.NoError(t, session.PrevMonth())
	assert.Equal(t, time.May, session.ReferenceDate().Month())

	require.NoError(t, session.GoToToday())
	assert.Equal(t, sessionDay, session.ReferenceDate())

	picked := time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)
	require.NoError(t, session.SelectDate(picked))
	assert.Equal(t, picked, session.ReferenceDate())

	require.NoError(t, session.OpenAddModal())
	assert.True(t, session.Shell().ModalOpen)
	require.NoError(t, session.CloseAddModal())
	assert.False(t, session.Shell().ModalOpen)
}

func TestSessionUnmountReleasesEverything(t *testing.T) {
	store := &fakeStore{events: gymAndMeeting()}
	feed := &fakeFeed{}
	session := newTestSession(t, store, feed)
	mountAndWait(t, session)
	require.NoError(t, session.Complete("1"))

	session.Unmount()
	session.Unmount()

	assert.Equal(t, 1, feed.releaseCount())
	assert.False(t, session.Mounted())
	assert.Equal(t, 0, session.completions.Len())

	_, err := session.Submit(context.Background(), CreateEventRequest{Title: "Gym", Type: "todo"})
	assert.ErrorIs(t, err, appErrors.ErrUnavailable)
	assert.ErrorIs(t, session.NextMonth(), appErrors.ErrUnavailable)
	_, err = session.Resync(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrUnavailable)

	// remount starts from a fresh fetch
	mountAndWait(t, session)
	assert.Len(t, session.Events(), 2)
	assert.Len(t, feed.subs, 2)
}
