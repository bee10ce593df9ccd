package feed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/pothole-dashboard/internal/config"
	"github.com/spec-kit/pothole-dashboard/internal/observability"
)

// RedisFeed consumes ticket change events published on a Redis pub/sub
// channel by the detection pipeline.
type RedisFeed struct {
	client    *redis.Client
	channel   string
	reconnect ReconnectPolicy
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewRedisFeed constructs a feed over an existing Redis client.
func NewRedisFeed(client *redis.Client, cfg config.FeedConfig, logger *zap.Logger, metrics *observability.Metrics) *RedisFeed {
	return &RedisFeed{
		client:  client,
		channel: cfg.Channel,
		reconnect: ReconnectPolicy{
			Enabled: cfg.ReconnectEnabled,
			Backoff: cfg.ReconnectBackoff,
		},
		logger:  logger,
		metrics: metrics,
	}
}

type redisSubscription struct {
	cancel    context.CancelFunc
	mu        sync.Mutex
	pubsub    *redis.PubSub
	closeOnce sync.Once
	closeErr  error
}

func (s *redisSubscription) setPubSub(pubsub *redis.PubSub) {
	s.mu.Lock()
	s.pubsub = pubsub
	s.mu.Unlock()
}

// Close tears the subscription down exactly once.
func (s *redisSubscription) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closeErr = s.pubsub.Close()
	})
	return s.closeErr
}

// Subscribe attaches to the change channel and delivers events to handler
// until the subscription is closed. Channel failures are reported through
// status; resubscription only happens when the reconnect policy enables it.
func (f *RedisFeed) Subscribe(ctx context.Context, handler Handler, status StatusHandler) (Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)

	pubsub := f.client.Subscribe(subCtx, f.channel)
	if _, err := pubsub.Receive(subCtx); err != nil {
		cancel()
		_ = pubsub.Close()
		if errors.Is(err, context.DeadlineExceeded) {
			status(StatusTimedOut, err)
		} else {
			status(StatusChannelError, err)
		}
		return nil, err
	}
	status(StatusSubscribed, nil)

	sub := &redisSubscription{cancel: cancel, pubsub: pubsub}
	go f.consume(subCtx, sub, pubsub, handler, status)
	return sub, nil
}

func (f *RedisFeed) consume(ctx context.Context, sub *redisSubscription, pubsub *redis.PubSub, handler Handler, status StatusHandler) {
	for {
		ch := pubsub.Channel()
		for msg := range ch {
			event, err := parseEvent([]byte(msg.Payload))
			if err != nil {
				f.logger.Warn("discarding malformed change event", zap.Error(err))
				continue
			}
			f.metrics.RecordFeedEvent(string(event.Type))
			handler(event)
		}

		if ctx.Err() != nil {
			return
		}

		status(StatusChannelError, errors.New("change channel closed"))
		if !f.reconnect.Enabled {
			return
		}

		f.logger.Warn("change channel closed, resubscribing",
			zap.Duration("backoff", f.reconnect.Backoff))
		select {
		case <-ctx.Done():
			return
		case <-time.After(f.reconnect.Backoff):
		}

		_ = pubsub.Close()
		pubsub = f.client.Subscribe(ctx, f.channel)
		sub.setPubSub(pubsub)
		if _, err := pubsub.Receive(ctx); err != nil {
			status(StatusChannelError, err)
			_ = pubsub.Close()
			if ctx.Err() != nil {
				return
			}
			continue
		}
		status(StatusSubscribed, nil)
	}
}

func parseEvent(payload []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return Event{}, err
	}
	switch event.Type {
	case EventInsert, EventUpdate, EventDelete:
		return event, nil
	default:
		return Event{}, errors.New("unknown event type " + string(event.Type))
	}
}
