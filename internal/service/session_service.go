package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/dayboard/internal/dto"
	"github.com/noah-isme/dayboard/internal/models"
	"github.com/noah-isme/dayboard/internal/views"
	appErrors "github.com/noah-isme/dayboard/pkg/errors"
)

// Realtime link states reported by Health.
const (
	RealtimeConnected   = "connected"
	RealtimeUnavailable = "unavailable"
	RealtimeDisabled    = "disabled"
)

// Resync triggers.
const (
	TriggerInitial  = "initial"
	TriggerSchedule = "schedule"
	TriggerGap      = "gap"
	TriggerManual   = "manual"
	TriggerFollowUp = "follow_up"
)

var errResyncRunning = errors.New("resync already running")

type eventStore interface {
	FetchAll(ctx context.Context) ([]models.Event, error)
	Create(ctx context.Context, req CreateEventRequest) (*models.Event, error)
}

// SessionConfig tunes the live session.
type SessionConfig struct {
	Location       *time.Location
	ResyncSchedule string
}

// SessionService is the mounted dashboard: it owns the live collection, the completion set and the shell
// state, and keeps the collection converged with the events table while mounted.
type SessionService struct {
	store   eventStore
	feed    changeFeed
	engine  *MergeEngine
	metrics *MetricsService
	logger  *zap.Logger
	cfg     SessionConfig
	now     func() time.Time

	completions *CompletionSet
	lifecycle   sync.Mutex
	resyncing   atomic.Bool
	pending     atomic.Bool
	background  sync.WaitGroup

	mu         sync.Mutex
	mounted    bool
	generation uint64
	loading    bool
	syncErr    *dto.SyncStatus
	realtime   string
	shell      ViewShell
	mountCtx   context.Context
	cancel     context.CancelFunc
	release    func()
	scheduler  *cron.Cron
}

// SessionParams groups constructor dependencies. Feed may be nil, in which case only fetches and the
// resync schedule keep the collection current.
type SessionParams struct {
	Store   eventStore
	Feed    changeFeed
	Engine  *MergeEngine
	Metrics *MetricsService
	Logger  *zap.Logger
	Config  SessionConfig
}

// NewSessionService constructs an unmounted session.
func NewSessionService(params SessionParams) *SessionService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := params.Config
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	engine := params.Engine
	if engine == nil {
		engine = NewMergeEngine(MergeEngineConfig{Metrics: params.Metrics, Logger: logger})
	}
	s := &SessionService{
		store:       params.Store,
		feed:        params.Feed,
		engine:      engine,
		metrics:     params.Metrics,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
		completions: NewCompletionSet(),
		realtime:    RealtimeDisabled,
	}
	s.shell = NewViewShell(s.today())
	return s
}

func (s *SessionService) today() time.Time {
	return s.now().In(s.cfg.Location)
}

// Mount subscribes to the change feed, then starts the initial fetch in the background and the resync
// schedule. Subscribing first means no change between the fetch and the subscription is lost. Mounting a
// mounted session is a no-op.
func (s *SessionService) Mount(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mounted {
		return nil
	}

	mountCtx, cancel := context.WithCancel(ctx)
	s.mounted = true
	s.generation++
	s.loading = true
	s.syncErr = nil
	s.shell = NewViewShell(s.today())
	s.completions.Reset()
	s.mountCtx = mountCtx
	s.cancel = cancel

	s.engine.Reset()
	s.engine.Start(mountCtx)

	s.realtime = RealtimeDisabled
	if s.feed != nil {
		release, err := s.engine.Attach(mountCtx, s.feed, s.onGap)
		if err != nil {
			s.realtime = RealtimeUnavailable
			s.logger.Warn("realtime subscription failed, relying on resync", zap.Error(err))
		} else {
			s.release = release
			s.realtime = RealtimeConnected
		}
	}

	if s.cfg.ResyncSchedule != "" {
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(s.cfg.ResyncSchedule, func() {
			_ = s.resync(mountCtx, TriggerSchedule)
		}); err != nil {
			s.logger.Warn("invalid resync schedule", zap.String("schedule", s.cfg.ResyncSchedule), zap.Error(err))
		} else {
			scheduler.Start()
			s.scheduler = scheduler
		}
	}

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		_ = s.resync(mountCtx, TriggerInitial)
	}()

	s.logger.Info("session mounted", zap.String("realtime", s.realtime))
	return nil
}

// Unmount releases the subscription, stops the schedule and the inbox and forgets completion marks. An
// in-flight submit is left to finish but no longer touches the shell.
func (s *SessionService) Unmount() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return
	}
	s.mounted = false
	s.loading = false
	s.shell.Submitting = false
	release, cancel, scheduler := s.release, s.cancel, s.scheduler
	s.release, s.cancel, s.scheduler = nil, nil, nil
	s.realtime = RealtimeDisabled
	s.mu.Unlock()

	if release != nil {
		release()
	}
	if cancel != nil {
		cancel()
	}
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	s.background.Wait()
	s.engine.Stop()
	s.completions.Reset()
	s.logger.Info("session unmounted")
}

// Mounted reports whether the session is live.
func (s *SessionService) Mounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounted
}

func (s *SessionService) onGap() {
	s.mu.Lock()
	ctx, mounted := s.mountCtx, s.mounted
	s.mu.Unlock()
	if !mounted {
		return
	}
	s.logger.Info("change feed reported a gap, resyncing")
	_ = s.resync(ctx, TriggerGap)
}

// resync refetches the whole table and posts a REPLACE. On failure the collection is left as it was and
// the failure is recorded for the view. A gap or scheduled trigger that arrives while another resync runs
// is queued, and the running resync makes one more pass for it once it finishes.
func (s *SessionService) resync(ctx context.Context, trigger string) error {
	if trigger == TriggerManual {
		if !s.resyncing.CompareAndSwap(false, true) {
			return errResyncRunning
		}
	} else if !s.acquireOrQueue() {
		s.logger.Debug("resync queued behind running one", zap.String("trigger", trigger))
		return errResyncRunning
	}

	for {
		s.mu.Lock()
		generation := s.generation
		s.mu.Unlock()

		status, err := s.refetch(ctx, trigger)
		s.resyncing.Store(false)
		s.finishFetch(generation, status)

		if !s.pending.Swap(false) {
			return err
		}
		s.mu.Lock()
		mountCtx, mounted := s.mountCtx, s.mounted
		s.mu.Unlock()
		if !mounted || mountCtx.Err() != nil {
			return err
		}
		if !s.acquireOrQueue() {
			return err
		}
		ctx, trigger = mountCtx, TriggerFollowUp
	}
}

// acquireOrQueue claims the resync slot, or leaves a pending mark that the current holder picks up after
// its fetch. The holder clears resyncing before reading the mark, so a mark set while the slot is taken is
// never lost.
func (s *SessionService) acquireOrQueue() bool {
	if s.resyncing.CompareAndSwap(false, true) {
		return true
	}
	s.pending.Store(true)
	if !s.resyncing.CompareAndSwap(false, true) {
		return false
	}
	s.pending.Store(false)
	return true
}

func (s *SessionService) refetch(ctx context.Context, trigger string) (*dto.SyncStatus, error) {
	s.engine.BeginResync()
	events, err := s.store.FetchAll(ctx)
	s.metrics.ObserveResync(trigger, err)
	if err != nil {
		s.engine.AbortResync()
		s.logger.Warn("event fetch failed, keeping current state", zap.String("trigger", trigger), zap.Error(err))
		return &dto.SyncStatus{Message: appErrors.FromError(err).Message, FailedAt: s.now().UTC()}, err
	}
	if err := s.engine.CompleteResync(events); err != nil {
		s.engine.AbortResync()
		return nil, err
	}
	s.logger.Debug("events resynced", zap.String("trigger", trigger), zap.Int("count", len(events)))
	return nil, nil
}

func (s *SessionService) finishFetch(generation uint64, syncErr *dto.SyncStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted || s.generation != generation {
		return
	}
	s.loading = false
	s.syncErr = syncErr
}

// Resync runs a full refetch now and waits for it to be applied.
func (s *SessionService) Resync(ctx context.Context) (dto.SyncResult, error) {
	if !s.Mounted() {
		return dto.SyncResult{}, appErrors.Clone(appErrors.ErrUnavailable, "session not mounted")
	}
	if err := s.resync(ctx, TriggerManual); err != nil {
		if errors.Is(err, errResyncRunning) {
			return dto.SyncResult{}, appErrors.Clone(appErrors.ErrConflict, err.Error())
		}
		if errors.Is(err, ErrEngineStopped) {
			return dto.SyncResult{}, appErrors.Clone(appErrors.ErrUnavailable, "session not mounted")
		}
		return dto.SyncResult{}, err
	}
	if err := s.engine.Flush(ctx); err != nil {
		return dto.SyncResult{}, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "resync not applied")
	}
	return dto.SyncResult{Events: s.engine.Len(), Version: s.engine.Version()}, nil
}

// WaitIdle blocks until the inbox has applied everything posted so far.
func (s *SessionService) WaitIdle(ctx context.Context) error {
	return s.engine.Flush(ctx)
}

// Submit handles the add-item form. A blank title does nothing. Otherwise the item is created remotely
// and appears in the collection once its INSERT notification arrives.
func (s *SessionService) Submit(ctx context.Context, req CreateEventRequest) (dto.SubmitResult, error) {
	title := strings.TrimSpace(req.Title)

	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return dto.SubmitResult{}, appErrors.Clone(appErrors.ErrUnavailable, "session not mounted")
	}
	if title == "" {
		result := dto.SubmitResult{Shell: s.shellStateLocked()}
		s.mu.Unlock()
		return result, nil
	}
	if !s.shell.BeginSubmit() {
		s.mu.Unlock()
		return dto.SubmitResult{}, appErrors.Clone(appErrors.ErrConflict, "a submission is already in progress")
	}
	generation := s.generation
	s.mu.Unlock()

	event, err := s.store.Create(ctx, CreateEventRequest{Title: title, Type: req.Type})

	s.mu.Lock()
	if s.mounted && s.generation == generation {
		s.shell.EndSubmit(err == nil)
	}
	shell := s.shellStateLocked()
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("submit failed", zap.Error(err))
		return dto.SubmitResult{Shell: shell}, err
	}
	return dto.SubmitResult{Submitted: true, Event: event, Shell: shell}, nil
}

// Complete marks an item done for this session.
func (s *SessionService) Complete(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return appErrors.Clone(appErrors.ErrValidation, "id is required")
	}
	if !s.Mounted() {
		return appErrors.Clone(appErrors.ErrUnavailable, "session not mounted")
	}
	s.completions.MarkComplete(id)
	return nil
}

func (s *SessionService) withShell(fn func(shell *ViewShell)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return appErrors.Clone(appErrors.ErrUnavailable, "session not mounted")
	}
	fn(&s.shell)
	return nil
}

func (s *SessionService) NextMonth() error {
	return s.withShell(func(shell *ViewShell) { shell.NextMonth() })
}

func (s *SessionService) PrevMonth() error {
	return s.withShell(func(shell *ViewShell) { shell.PrevMonth() })
}

func (s *SessionService) GoToToday() error {
	today := s.today()
	return s.withShell(func(shell *ViewShell) { shell.GoToToday(today) })
}

// SelectDate moves the reference date to date, read in the session's timezone.
func (s *SessionService) SelectDate(date time.Time) error {
	local := date.In(s.cfg.Location)
	return s.withShell(func(shell *ViewShell) { shell.SelectDate(local) })
}

func (s *SessionService) ToggleView() error {
	return s.withShell(func(shell *ViewShell) { shell.ToggleView() })
}

func (s *SessionService) OpenAddModal() error {
	return s.withShell(func(shell *ViewShell) { shell.OpenAddModal() })
}

func (s *SessionService) CloseAddModal() error {
	return s.withShell(func(shell *ViewShell) { shell.CloseAddModal() })
}

func (s *SessionService) shellStateLocked() dto.ShellState {
	return dto.ShellState{
		ReferenceDate: s.shell.ReferenceDate,
		Mode:          s.shell.Mode,
		ModalOpen:     s.shell.ModalOpen,
		Submitting:    s.shell.Submitting,
	}
}

// Shell returns the current shell state.
func (s *SessionService) Shell() dto.ShellState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shellStateLocked()
}

// View projects the active view from the current snapshot.
func (s *SessionService) View() dto.ViewResponse {
	s.mu.Lock()
	shell := s.shellStateLocked()
	loading := s.loading
	var syncErr *dto.SyncStatus
	if s.syncErr != nil {
		copied := *s.syncErr
		syncErr = &copied
	}
	s.mu.Unlock()

	events := s.engine.Snapshot()
	resp := dto.ViewResponse{
		Shell:     shell,
		Loading:   loading,
		SyncError: syncErr,
		Version:   s.engine.Version(),
		Types:     EventTypeOptions(),
	}
	today := s.today()
	if shell.Mode == models.ViewModeMonth {
		grid := views.Month(events, shell.ReferenceDate, today)
		resp.Month = &grid
		return resp
	}
	agenda := views.Day(events, shell.ReferenceDate, s.completions.IsCompleted)
	week := views.Week(events, shell.ReferenceDate, today)
	resp.Agenda = &agenda
	resp.Week = &week
	return resp
}

// Agenda projects the day containing ref.
func (s *SessionService) Agenda(ref time.Time) views.Agenda {
	return views.Day(s.engine.Snapshot(), ref.In(s.cfg.Location), s.completions.IsCompleted)
}

// Week projects the density strip for the week containing ref.
func (s *SessionService) Week(ref time.Time) views.WeekStrip {
	return views.Week(s.engine.Snapshot(), ref.In(s.cfg.Location), s.today())
}

// Month projects the grid for the month containing ref.
func (s *SessionService) Month(ref time.Time) views.MonthGrid {
	return views.Month(s.engine.Snapshot(), ref.In(s.cfg.Location), s.today())
}

// ReferenceDate returns the shell's reference date, used when a request names no date.
func (s *SessionService) ReferenceDate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shell.ReferenceDate
}

// Location is the timezone calendar days are computed in.
func (s *SessionService) Location() *time.Location {
	return s.cfg.Location
}

// Events returns the live collection.
func (s *SessionService) Events() []models.Event {
	return s.engine.Snapshot()
}

// FetchRemote reads the events table directly, bypassing the live collection.
func (s *SessionService) FetchRemote(ctx context.Context) ([]models.Event, error) {
	return s.store.FetchAll(ctx)
}

// Health summarises the session for probes.
func (s *SessionService) Health() dto.HealthResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := "ok"
	if !s.mounted || s.loading {
		status = "starting"
	}
	return dto.HealthResponse{
		Status:   status,
		Mounted:  s.mounted,
		Loading:  s.loading,
		Events:   s.engine.Len(),
		Realtime: s.realtime,
	}
}

// EventTypeOptions lists the add-form choices in display order.
func EventTypeOptions() []dto.EventTypeOption {
	options := make([]dto.EventTypeOption, 0, len(models.EventTypes))
	for _, t := range models.EventTypes {
		options = append(options, dto.EventTypeOption{Value: t, Label: t.Label()})
	}
	return options
}
