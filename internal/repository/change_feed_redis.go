package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/dayboard/internal/models"
)

// messageSource is the part of *redis.PubSub the feed reads from.
type messageSource interface {
	Receive(ctx context.Context) (interface{}, error)
	Close() error
}

// RedisChangeFeed streams changes relayed over a Redis Pub/Sub channel.
type RedisChangeFeed struct {
	channel    string
	buffer     int
	retryDelay time.Duration
	logger     *zap.Logger

	newSource func(ctx context.Context, channel string) messageSource
}

// NewRedisChangeFeed constructs a Pub/Sub based feed.
func NewRedisChangeFeed(client *redis.Client, channel string, buffer int, logger *zap.Logger) *RedisChangeFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisChangeFeed{
		channel:    channel,
		buffer:     buffer,
		retryDelay: time.Second,
		logger:     logger.Named("redis_feed"),
		newSource: func(ctx context.Context, channel string) messageSource {
			return client.Subscribe(ctx, channel)
		},
	}
}

// Subscribe confirms the subscription with the server before returning.
func (f *RedisChangeFeed) Subscribe(ctx context.Context) (*Subscription, error) {
	src := f.newSource(ctx, f.channel)
	if _, err := src.Receive(ctx); err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("subscribe %s: %w", f.channel, err)
	}

	sub := NewSubscription(f.buffer, src.Close)
	go f.watch(ctx, sub)
	go f.pump(ctx, src, sub)
	f.logger.Info("subscribed", zap.String("channel", f.channel))
	return sub, nil
}

// watch closes the subscription when ctx ends; closing the source unblocks a pending Receive.
func (f *RedisChangeFeed) watch(ctx context.Context, sub *Subscription) {
	select {
	case <-ctx.Done():
		_ = sub.Close()
	case <-sub.done:
	}
}

// pump forwards messages until the subscription closes. go-redis reconnects and resubscribes on its own,
// so a subscribe confirmation after the initial one means messages may have been missed.
func (f *RedisChangeFeed) pump(ctx context.Context, src messageSource, sub *Subscription) {
	defer close(sub.changes)
	broken := false
	for {
		msg, err := src.Receive(ctx)
		if err != nil {
			if sub.closed() || ctx.Err() != nil {
				return
			}
			if !broken {
				f.logger.Warn("pubsub receive failed, reconnecting", zap.Error(err))
				broken = true
			}
			select {
			case <-time.After(f.retryDelay):
				continue
			case <-sub.done:
				return
			}
		}

		switch m := msg.(type) {
		case *redis.Subscription:
			if m.Kind == "subscribe" {
				f.logger.Info("resubscribed, requesting resync", zap.String("channel", m.Channel))
				broken = false
				sub.SignalGap()
			}
		case *redis.Message:
			if !sub.forward(m.Payload, f.logger) {
				return
			}
		}
	}
}

// RedisChangePublisher relays successful writes onto the Pub/Sub channel.
type RedisChangePublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisChangePublisher constructs a publisher.
func NewRedisChangePublisher(client *redis.Client, channel string) *RedisChangePublisher {
	return &RedisChangePublisher{client: client, channel: channel}
}

// Publish sends the change in the shared wire shape.
func (p *RedisChangePublisher) Publish(ctx context.Context, change models.Change) error {
	if change.Table == "" {
		change.Table = models.EventsTable
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", p.channel, err)
	}
	return nil
}
