package service

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/dayboard/internal/models"
	"github.com/noah-isme/dayboard/internal/repository"
	"github.com/noah-isme/dayboard/pkg/jobs"
)

const (
	jobChange  = "change"
	jobReplace = "replace"
	jobBarrier = "barrier"
)

// ErrEngineStopped is returned when messages are posted to an engine that is not running.
var ErrEngineStopped = errors.New("merge engine not running")

type changeFeed interface {
	Subscribe(ctx context.Context) (*repository.Subscription, error)
}

// MergeEngineConfig configures the inbox.
type MergeEngineConfig struct {
	InboxSize int
	Metrics   *MetricsService
	Logger    *zap.Logger
}

// MergeEngine owns the live event collection. Every mutation (fetch results and realtime notifications)
// goes through a single-consumer inbox so they are applied one at a time in arrival order; readers take
// snapshots.
type MergeEngine struct {
	inboxSize int
	metrics   *MetricsService
	logger    *zap.Logger

	mu      sync.RWMutex
	events  []models.Event
	index   map[string]int
	version uint64

	// replay holds notifications applied since a resync began, so they can be re-applied on top of the
	// fetched snapshot.
	recording bool
	replay    []models.Change

	inboxMu sync.Mutex
	inbox   *jobs.Queue
}

// NewMergeEngine builds an idle engine with an empty collection.
func NewMergeEngine(cfg MergeEngineConfig) *MergeEngine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 256
	}
	return &MergeEngine{
		inboxSize: cfg.InboxSize,
		metrics:   cfg.Metrics,
		logger:    logger,
		events:    []models.Event{},
		index:     make(map[string]int),
	}
}

// Start launches the inbox consumer. Calling Start on a running engine is a no-op.
func (e *MergeEngine) Start(ctx context.Context) {
	e.inboxMu.Lock()
	defer e.inboxMu.Unlock()
	if e.inbox != nil {
		return
	}
	e.inbox = jobs.NewQueue("realtime-inbox", e.handle, jobs.QueueConfig{
		Workers:     1,
		BufferSize:  e.inboxSize,
		Logger:      e.logger,
		OnProcessed: e.metrics.SetInboxDepth,
	})
	e.inbox.Start(ctx)
}

// Stop halts the consumer. Pending messages are discarded; the collection is kept.
func (e *MergeEngine) Stop() {
	e.inboxMu.Lock()
	inbox := e.inbox
	e.inbox = nil
	e.inboxMu.Unlock()
	if inbox != nil {
		inbox.Stop()
	}
	e.mu.Lock()
	e.recording = false
	e.replay = nil
	e.mu.Unlock()
	e.metrics.SetInboxDepth(0)
}

// Reset empties the collection.
func (e *MergeEngine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = []models.Event{}
	e.index = make(map[string]int)
	e.version++
	e.metrics.SetCollectionSize(0)
}

// Enqueue posts a notification to the inbox.
func (e *MergeEngine) Enqueue(change models.Change) error {
	return e.post(context.Background(), jobs.Job{Type: jobChange, Payload: change})
}

// BeginResync starts recording applied notifications so they survive the snapshot that a later
// CompleteResync installs.
func (e *MergeEngine) BeginResync() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recording = true
	e.replay = nil
}

// CompleteResync posts a REPLACE with the fetched rows. Notifications recorded since BeginResync are
// re-applied right after the snapshot.
func (e *MergeEngine) CompleteResync(events []models.Event) error {
	return e.post(context.Background(), jobs.Job{Type: jobReplace, Payload: events})
}

// AbortResync stops recording after a failed fetch; the collection is left untouched.
func (e *MergeEngine) AbortResync() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recording = false
	e.replay = nil
}

// Flush blocks until every message posted before the call has been applied.
func (e *MergeEngine) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if err := e.post(ctx, jobs.Job{Type: jobBarrier, Payload: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *MergeEngine) post(ctx context.Context, job jobs.Job) error {
	e.inboxMu.Lock()
	inbox := e.inbox
	e.inboxMu.Unlock()
	if inbox == nil {
		return ErrEngineStopped
	}
	if err := inbox.EnqueueContext(ctx, job); err != nil {
		if errors.Is(err, jobs.ErrQueueClosed) {
			return errors.Join(ErrEngineStopped, err)
		}
		return err
	}
	e.metrics.SetInboxDepth(inbox.Depth())
	return nil
}

func (e *MergeEngine) handle(_ context.Context, job jobs.Job) error {
	switch job.Type {
	case jobChange:
		change, ok := job.Payload.(models.Change)
		if !ok {
			return nil
		}
		e.Apply(change)
	case jobReplace:
		events, _ := job.Payload.([]models.Event)
		e.replaceAndReplay(events)
	case jobBarrier:
		if done, ok := job.Payload.(chan struct{}); ok {
			close(done)
		}
	}
	return nil
}

// Apply merges one notification into the collection and reports what happened. INSERT for an id already
// present is a no-op, as are UPDATE and DELETE for an absent id. Malformed notifications are dropped.
func (e *MergeEngine) Apply(change models.Change) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	outcome := e.applyLocked(change)
	if e.recording && outcome != OutcomeDropped {
		e.replay = append(e.replay, change)
	}
	e.metrics.ObserveChange(change.Kind, outcome)
	return outcome
}

func (e *MergeEngine) applyLocked(change models.Change) string {
	if err := change.Validate(); err != nil {
		e.logger.Warn("dropping realtime change", zap.String("kind", string(change.Kind)), zap.Error(err))
		return OutcomeDropped
	}

	id := change.RowID()
	pos, exists := e.index[id]

	switch change.Kind {
	case models.ChangeInsert:
		if exists {
			return OutcomeNoop
		}
		e.index[id] = len(e.events)
		e.events = append(e.events, *change.New)
	case models.ChangeUpdate:
		if !exists {
			return OutcomeNoop
		}
		e.events[pos] = *change.New
	case models.ChangeDelete:
		if !exists {
			return OutcomeNoop
		}
		e.removeAt(pos)
	}

	e.version++
	e.metrics.SetCollectionSize(len(e.events))
	return OutcomeApplied
}

func (e *MergeEngine) removeAt(pos int) {
	delete(e.index, e.events[pos].ID)
	e.events = append(e.events[:pos], e.events[pos+1:]...)
	for i := pos; i < len(e.events); i++ {
		e.index[e.events[i].ID] = i
	}
}

// Replace installs a fetched snapshot wholesale. Duplicate ids keep their first position and last payload.
func (e *MergeEngine) Replace(events []models.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.replaceLocked(events)
}

func (e *MergeEngine) replaceLocked(events []models.Event) {
	next := make([]models.Event, 0, len(events))
	index := make(map[string]int, len(events))
	for _, ev := range events {
		if pos, ok := index[ev.ID]; ok {
			next[pos] = ev
			continue
		}
		index[ev.ID] = len(next)
		next = append(next, ev)
	}
	e.events = next
	e.index = index
	e.version++
	e.metrics.SetCollectionSize(len(next))
}

func (e *MergeEngine) replaceAndReplay(events []models.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.replaceLocked(events)
	replay := e.replay
	e.recording = false
	e.replay = nil
	for _, change := range replay {
		e.applyLocked(change)
	}
	if len(replay) > 0 {
		e.logger.Debug("replayed changes over snapshot", zap.Int("count", len(replay)))
	}
}

// Snapshot returns a copy of the collection in arrival order.
func (e *MergeEngine) Snapshot() []models.Event {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.Event, len(e.events))
	copy(out, e.events)
	return out
}

// Version increases on every applied mutation.
func (e *MergeEngine) Version() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.version
}

// Len reports the collection size.
func (e *MergeEngine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.events)
}

// Attach subscribes to feed and pumps its notifications into the inbox until ctx ends or the feed closes.
// onGap runs (on its own goroutine) whenever the feed reports possibly missed notifications. The returned
// release closes the subscription and waits for the pump; it is safe to call more than once. If Subscribe
// fails nothing is held and release is nil.
func (e *MergeEngine) Attach(ctx context.Context, feed changeFeed, onGap func()) (func(), error) {
	sub, err := feed.Subscribe(ctx)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.Done():
				return
			case <-sub.Gaps():
				if onGap != nil {
					go onGap()
				}
			case change, ok := <-sub.Changes():
				if !ok {
					return
				}
				if err := e.Enqueue(change); err != nil {
					e.logger.Warn("realtime change not queued", zap.String("kind", string(change.Kind)), zap.Error(err))
				}
			}
		}
	}()

	var once sync.Once
	release := func() {
		once.Do(func() {
			if err := sub.Close(); err != nil {
				e.logger.Warn("closing change subscription", zap.Error(err))
			}
			<-done
		})
	}
	return release, nil
}
