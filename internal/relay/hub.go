package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wech4801-eng/mirror-frame-forge/internal/metrics"
)

// viewerQueue bounds the audio and chat backlog of one viewer.
const viewerQueue = 32

var ErrRoomFull = errors.New("webinar has reached its viewer limit")

// Viewer receives the events of one webinar. Frames arrive on Frames and
// only the newest undelivered frame is kept; every other event arrives on
// Events in order, and overflow is dropped. Done is closed when the viewer
// is removed.
type Viewer struct {
	ID        uuid.UUID
	Name      string
	WebinarID uuid.UUID

	frames chan Event
	events chan Event
	done   chan struct{}
}

func (v *Viewer) Frames() <-chan Event  { return v.frames }
func (v *Viewer) Events() <-chan Event  { return v.events }
func (v *Viewer) Done() <-chan struct{} { return v.done }

type room struct {
	webinarID uuid.UUID
	sub       Subscription
	done      chan struct{}

	mu      sync.Mutex
	viewers map[uuid.UUID]*Viewer
}

// Hub keeps one bus subscription per webinar that has local viewers and
// fans its events out to them. The host never waits on viewers.
type Hub struct {
	bus        Bus
	maxViewers int
	logger     *zap.Logger
	metrics    *metrics.Metrics

	mu    sync.Mutex
	rooms map[uuid.UUID]*room
}

func NewHub(bus Bus, maxViewers int, logger *zap.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		bus:        bus,
		maxViewers: maxViewers,
		logger:     logger,
		metrics:    m,
		rooms:      make(map[uuid.UUID]*room),
	}
}

// Publish validates ev and puts it on the webinar topic.
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	if err := Validate(ev); err != nil {
		return err
	}
	if err := h.bus.Publish(ctx, Topic(ev.WebinarID), ev); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", ev.Type, err)
	}
	h.metrics.RelayEvents.WithLabelValues(string(ev.Type)).Inc()
	return nil
}

// Watch subscribes to the webinar topic directly. Hosts use it to see
// control events without counting as viewers. The caller closes it.
func (h *Hub) Watch(ctx context.Context, webinarID uuid.UUID) (Subscription, error) {
	return h.bus.Subscribe(ctx, Topic(webinarID))
}

// Join registers a viewer, subscribing to the webinar topic when it is the
// first local viewer. The bus subscription is made outside the hub lock.
func (h *Hub) Join(ctx context.Context, webinarID uuid.UUID, name string) (*Viewer, error) {
	if h.maxViewers <= 0 {
		return nil, ErrRoomFull
	}

	var spare Subscription
	h.mu.Lock()
	r, ok := h.rooms[webinarID]
	if !ok {
		h.mu.Unlock()
		sub, err := h.bus.Subscribe(ctx, Topic(webinarID))
		if err != nil {
			return nil, err
		}
		h.mu.Lock()
		if r, ok = h.rooms[webinarID]; ok {
			// Another join created the room meanwhile.
			spare = sub
		} else {
			r = &room{webinarID: webinarID, sub: sub, done: make(chan struct{}), viewers: make(map[uuid.UUID]*Viewer)}
			h.rooms[webinarID] = r
			go h.fanOut(r)
		}
	}

	r.mu.Lock()
	if len(r.viewers) >= h.maxViewers {
		r.mu.Unlock()
		h.mu.Unlock()
		h.closeSpare(spare)
		return nil, ErrRoomFull
	}
	v := &Viewer{
		ID:        uuid.New(),
		Name:      name,
		WebinarID: webinarID,
		frames:    make(chan Event, 1),
		events:    make(chan Event, viewerQueue),
		done:      make(chan struct{}),
	}
	r.viewers[v.ID] = v
	count := len(r.viewers)
	r.mu.Unlock()
	h.mu.Unlock()
	h.closeSpare(spare)

	h.metrics.RelayViewers.Inc()
	h.logger.Info("viewer joined", zap.String("webinar_id", webinarID.String()), zap.String("viewer", name), zap.Int("viewers", count))
	h.announce(ctx, webinarID, count)
	return v, nil
}

// Leave removes the viewer. The last local viewer tears the subscription
// down.
func (h *Hub) Leave(v *Viewer) {
	h.mu.Lock()
	r, ok := h.rooms[v.WebinarID]
	if !ok {
		h.mu.Unlock()
		return
	}
	r.mu.Lock()
	if _, ok := r.viewers[v.ID]; !ok {
		r.mu.Unlock()
		h.mu.Unlock()
		return
	}
	delete(r.viewers, v.ID)
	close(v.done)
	count := len(r.viewers)
	empty := count == 0
	if empty {
		delete(h.rooms, v.WebinarID)
	}
	r.mu.Unlock()
	h.mu.Unlock()

	h.metrics.RelayViewers.Dec()
	h.logger.Info("viewer left", zap.String("webinar_id", v.WebinarID.String()), zap.String("viewer", v.Name), zap.Int("viewers", count))
	if empty {
		h.closeRoom(r)
		return
	}
	h.announce(context.Background(), v.WebinarID, count)
}

// ViewerCount reports the local viewers of a webinar.
func (h *Hub) ViewerCount(webinarID uuid.UUID) int {
	h.mu.Lock()
	r, ok := h.rooms[webinarID]
	h.mu.Unlock()
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.viewers)
}

// Close removes every viewer and ends all subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[uuid.UUID]*room)
	h.mu.Unlock()

	for _, r := range rooms {
		r.mu.Lock()
		for id, v := range r.viewers {
			delete(r.viewers, id)
			close(v.done)
			h.metrics.RelayViewers.Dec()
		}
		r.mu.Unlock()
		h.closeRoom(r)
	}
}

func (h *Hub) closeSpare(sub Subscription) {
	if sub == nil {
		return
	}
	if err := sub.Close(); err != nil {
		h.logger.Warn("failed to close relay subscription", zap.Error(err))
	}
}

func (h *Hub) closeRoom(r *room) {
	if err := r.sub.Close(); err != nil {
		h.logger.Warn("failed to close relay subscription", zap.String("webinar_id", r.webinarID.String()), zap.Error(err))
	}
	<-r.done
}

func (h *Hub) announce(ctx context.Context, webinarID uuid.UUID, count int) {
	ev, err := NewEvent(EventPresence, webinarID, "", PresencePayload{Viewers: count})
	if err != nil {
		return
	}
	if err := h.bus.Publish(ctx, Topic(webinarID), ev); err != nil {
		h.logger.Warn("failed to publish presence", zap.String("webinar_id", webinarID.String()), zap.Error(err))
	}
}

func (h *Hub) fanOut(r *room) {
	defer close(r.done)
	for ev := range r.sub.Events() {
		r.mu.Lock()
		for _, v := range r.viewers {
			h.deliver(v, ev)
		}
		r.mu.Unlock()
	}
}

// deliver never blocks. A pending frame is replaced by the newer one;
// queued events beyond viewerQueue are dropped.
func (h *Hub) deliver(v *Viewer, ev Event) {
	if ev.Type == EventFrame {
		for {
			select {
			case v.frames <- ev:
				return
			default:
			}
			select {
			case <-v.frames:
				h.metrics.RelayDropped.WithLabelValues(string(EventFrame)).Inc()
			default:
			}
		}
	}
	select {
	case v.events <- ev:
	default:
		h.metrics.RelayDropped.WithLabelValues(string(ev.Type)).Inc()
	}
}
