package relay

import (
	"context"
	"sync"
)

const subscriptionBuffer = 64

// Bus carries events between the instances serving a webinar.
type Bus interface {
	Publish(ctx context.Context, topic string, ev Event) error
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}

// Subscription delivers the events of one topic until Close. The Events
// channel is closed once the subscription ends.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// MemoryBus is a process-local Bus. Slow subscribers lose events.
type MemoryBus struct {
	mu   sync.Mutex
	subs map[string]map[*memorySub]struct{}
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string]map[*memorySub]struct{})}
}

type memorySub struct {
	bus   *MemoryBus
	topic string
	ch    chan Event
	once  sync.Once
}

func (s *memorySub) Events() <-chan Event { return s.ch }

func (s *memorySub) Close() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		if subs, ok := s.bus.subs[s.topic]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(s.bus.subs, s.topic)
			}
		}
		close(s.ch)
	})
	return nil
}

func (b *MemoryBus) Publish(_ context.Context, topic string, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs[topic] {
		select {
		case s.ch <- ev:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, topic string) (Subscription, error) {
	s := &memorySub{bus: b, topic: topic, ch: make(chan Event, subscriptionBuffer)}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*memorySub]struct{})
	}
	b.subs[topic][s] = struct{}{}
	return s, nil
}

var _ Bus = (*MemoryBus)(nil)
