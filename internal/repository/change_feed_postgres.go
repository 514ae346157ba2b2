package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// notificationSource is the slice of *pq.Listener the feed relies on.
type notificationSource interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Close() error
}

// PostgresChangeFeed streams events table changes published by the events_notify trigger via LISTEN/NOTIFY.
type PostgresChangeFeed struct {
	dsn          string
	channel      string
	minReconnect time.Duration
	maxReconnect time.Duration
	buffer       int
	logger       *zap.Logger

	newSource func(dsn string, minReconnect, maxReconnect time.Duration, cb pq.EventCallbackType) notificationSource
}

// PostgresFeedConfig groups the listener settings.
type PostgresFeedConfig struct {
	DSN          string
	Channel      string
	MinReconnect time.Duration
	MaxReconnect time.Duration
	Buffer       int
}

// NewPostgresChangeFeed constructs a LISTEN/NOTIFY based feed.
func NewPostgresChangeFeed(cfg PostgresFeedConfig, logger *zap.Logger) *PostgresChangeFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MinReconnect <= 0 {
		cfg.MinReconnect = 10 * time.Second
	}
	if cfg.MaxReconnect < cfg.MinReconnect {
		cfg.MaxReconnect = cfg.MinReconnect
	}
	return &PostgresChangeFeed{
		dsn:          cfg.DSN,
		channel:      cfg.Channel,
		minReconnect: cfg.MinReconnect,
		maxReconnect: cfg.MaxReconnect,
		buffer:       cfg.Buffer,
		logger:       logger.Named("pg_feed"),
		newSource: func(dsn string, minReconnect, maxReconnect time.Duration, cb pq.EventCallbackType) notificationSource {
			return pq.NewListener(dsn, minReconnect, maxReconnect, cb)
		},
	}
}

// Subscribe starts listening on the channel. The returned subscription stops when ctx is cancelled or
// Close is called.
func (f *PostgresChangeFeed) Subscribe(ctx context.Context) (*Subscription, error) {
	source := f.newSource(f.dsn, f.minReconnect, f.maxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventDisconnected:
			f.logger.Warn("listener disconnected", zap.Error(err))
		case pq.ListenerEventReconnected:
			f.logger.Info("listener reconnected")
		case pq.ListenerEventConnectionAttemptFailed:
			f.logger.Warn("listener reconnect failed", zap.Error(err))
		}
	})
	if err := source.Listen(f.channel); err != nil {
		_ = source.Close()
		return nil, fmt.Errorf("listen %s: %w", f.channel, err)
	}

	sub := NewSubscription(f.buffer, source.Close)
	go f.pump(ctx, source.NotificationChannel(), sub)
	f.logger.Info("subscribed", zap.String("channel", f.channel))
	return sub, nil
}

func (f *PostgresChangeFeed) pump(ctx context.Context, notifications <-chan *pq.Notification, sub *Subscription) {
	defer close(sub.changes)
	for {
		select {
		case <-ctx.Done():
			_ = sub.Close()
			return
		case <-sub.done:
			return
		case n, ok := <-notifications:
			if !ok {
				return
			}
			if n == nil {
				// pq sends nil after a reconnect: anything published meanwhile is gone.
				sub.SignalGap()
				continue
			}
			if !sub.forward(n.Extra, f.logger) {
				return
			}
		}
	}
}
