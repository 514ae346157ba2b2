package repository

import (
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/dayboard/internal/models"
)

// Subscription is a live, ordered stream of row changes from a change feed. Close is idempotent and
// must be called on every exit path to release the underlying channel.
type Subscription struct {
	changes chan models.Change
	gaps    chan struct{}
	done    chan struct{}
	release func() error

	once sync.Once
	err  error
}

// NewSubscription builds a subscription whose Close runs release once.
func NewSubscription(buffer int, release func() error) *Subscription {
	if buffer <= 0 {
		buffer = 64
	}
	if release == nil {
		release = func() error { return nil }
	}
	return &Subscription{
		changes: make(chan models.Change, buffer),
		gaps:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		release: release,
	}
}

// Changes yields notifications in the order the feed delivered them. It is closed when the feed stops.
func (s *Subscription) Changes() <-chan models.Change {
	return s.changes
}

// Gaps fires when the feed may have lost notifications (e.g. after a reconnect) and a full resync is due.
func (s *Subscription) Gaps() <-chan struct{} {
	return s.gaps
}

// Done is closed once Close has been called.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close unsubscribes. Repeated calls return the first result.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.err = s.release()
	})
	return s.err
}

// Deliver pushes a change downstream, blocking while the buffer is full. It reports false once closed.
func (s *Subscription) Deliver(change models.Change) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.changes <- change:
		return true
	case <-s.done:
		return false
	}
}

// SignalGap requests a resync. Pending signals coalesce.
func (s *Subscription) SignalGap() {
	select {
	case s.gaps <- struct{}{}:
	default:
	}
}

func (s *Subscription) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// forward decodes one raw payload and pushes it downstream; malformed payloads are logged and skipped.
func (s *Subscription) forward(payload string, logger *zap.Logger) bool {
	change, err := models.DecodeChange([]byte(payload))
	if err != nil {
		logger.Warn("dropping undecodable change", zap.Error(err), zap.Int("bytes", len(payload)))
		return true
	}
	if change.Table != "" && change.Table != models.EventsTable {
		return true
	}
	return s.Deliver(change)
}
