package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBus fans events out across server instances through Redis Pub/Sub.
type RedisBus struct {
	rdb    goredis.UniversalClient
	logger *zap.Logger
}

func NewRedisBus(rdb goredis.UniversalClient, logger *zap.Logger) *RedisBus {
	return &RedisBus{rdb: rdb, logger: logger}
}

// NewRedisClient parses url (redis://…) and pings the server.
func NewRedisClient(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

func (b *RedisBus) Publish(ctx context.Context, topic string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return b.rdb.Publish(ctx, topic, data).Err()
}

// Subscribe waits for Redis to confirm the subscription before returning,
// so events published afterwards are not missed.
func (b *RedisBus) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	ps := b.rdb.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	subCtx, cancel := context.WithCancel(context.Background())
	s := &redisSub{ps: ps, cancel: cancel, ch: make(chan Event, subscriptionBuffer), done: make(chan struct{})}

	go func() {
		defer close(s.done)
		defer close(s.ch)
		msgCh := ps.Channel()
		for {
			select {
			case msg, ok := <-msgCh:
				if !ok {
					return
				}
				ev, err := decodeMessage(msg.Payload)
				if err != nil {
					b.logger.Warn("dropping malformed relay message", zap.String("topic", topic), zap.Error(err))
					continue
				}
				select {
				case s.ch <- ev:
				default:
					// receiver is slow
				}
			case <-subCtx.Done():
				return
			}
		}
	}()
	return s, nil
}

func decodeMessage(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}

type redisSub struct {
	ps     *goredis.PubSub
	cancel context.CancelFunc
	ch     chan Event
	done   chan struct{}
	once   sync.Once
}

func (s *redisSub) Events() <-chan Event { return s.ch }

func (s *redisSub) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.ps.Close()
		<-s.done
	})
	return err
}

var _ Bus = (*RedisBus)(nil)
