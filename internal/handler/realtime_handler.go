// internal/handler/realtime_handler.go
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	appErrors "github.com/wech4801-eng/mirror-frame-forge/internal/errors"
	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
	"github.com/wech4801-eng/mirror-frame-forge/internal/relay"
)

const (
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	// historySize is the number of chat lines replayed to a new viewer.
	historySize = 50
	// maxMessageBytes leaves room for the JSON envelope around a frame.
	maxMessageBytes = relay.MaxFrameBytes + 4<<10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Webinars is satisfied by *service.WebinarService.
type Webinars interface {
	Get(ctx context.Context, userID, id uuid.UUID) (*model.Webinar, error)
	Lookup(ctx context.Context, id uuid.UUID) (*model.Webinar, error)
	PostChat(ctx context.Context, webinarID uuid.UUID, senderName, message string) (*model.WebinarChatMessage, error)
	ListChat(ctx context.Context, webinarID uuid.UUID, limit int) ([]*model.WebinarChatMessage, error)
}

// RealtimeHandler serves GET /realtime/webinars/{id}. The host streams
// frames, audio and chat; viewers receive them and may post chat.
type RealtimeHandler struct {
	Webinars Webinars
	Hub      *relay.Hub
	Logger   *zap.Logger
	// LiveCheckInterval throttles the status lookups made while a host
	// streams. Zero looks the webinar up before every frame.
	LiveCheckInterval time.Duration
}

var errStreamEnded = errors.New("the webinar has ended")

// inbound is what clients send: an event type and its payload.
type inbound struct {
	Type    relay.EventType `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func (h *RealtimeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, appErrors.Validation("invalid webinar id"))
		return
	}
	name := strings.TrimSpace(r.URL.Query().Get("name"))

	switch role := r.URL.Query().Get("role"); role {
	case "host":
		h.serveHost(w, r, id, name)
	case "", "viewer":
		h.serveViewer(w, r, id, name)
	default:
		h.fail(w, appErrors.Validation("role must be host or viewer, got %q", role))
	}
}

func (h *RealtimeHandler) fail(w http.ResponseWriter, err error) {
	e := appErrors.AsStructuredError(err)
	if e.HTTPStatus() >= http.StatusInternalServerError {
		h.Logger.Error("realtime request failed", zap.Error(err))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPStatus())
	_ = json.NewEncoder(w).Encode(e.ToResponse())
}

func (h *RealtimeHandler) serveHost(w http.ResponseWriter, r *http.Request, id uuid.UUID, name string) {
	userID, err := uuid.Parse(r.Header.Get("X-User-ID"))
	if err != nil {
		h.fail(w, appErrors.Unauthorized("the host must be authenticated"))
		return
	}
	webinar, err := h.Webinars.Get(r.Context(), userID, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if !webinar.IsLive() {
		h.fail(w, appErrors.Conflict("webinar %s is not live", id))
		return
	}
	if name == "" {
		name = "Host"
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := newConn(ws)
	defer c.close()

	log := h.Logger.With(zap.String("webinar_id", id.String()), zap.String("role", "host"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := h.Hub.Watch(ctx, id)
	if err != nil {
		log.Error("failed to watch webinar topic", zap.Error(err))
		_ = c.send(errorMessage{Type: "error", Error: "realtime channel unavailable"})
		return
	}
	defer sub.Close()

	s := &hostSession{h: h, id: id, name: name, conn: c, checkedAt: time.Now()}
	log.Info("host connected")
	go c.keepAlive(ctx)
	go s.watch(ctx, sub)

	c.readLoop(func(msg inbound) {
		err := s.handle(ctx, msg)
		switch {
		case errors.Is(err, errStreamEnded):
			s.stop()
		case err != nil:
			_ = c.send(errorMessage{Type: "error", Error: err.Error()})
		}
	})
	log.Info("host disconnected")
}

// hostSession is the state of one streaming host connection.
type hostSession struct {
	h    *RealtimeHandler
	id   uuid.UUID
	name string
	conn *conn

	ended atomic.Bool
	// checkedAt is only touched from the read loop.
	checkedAt time.Time
}

func (s *hostSession) handle(ctx context.Context, msg inbound) error {
	switch msg.Type {
	case relay.EventFrame, relay.EventAudio:
		if err := s.checkLive(ctx); err != nil {
			return err
		}
		ev := relay.Event{Type: msg.Type, WebinarID: s.id, Sender: "host", Payload: msg.Payload, SentAt: time.Now().UTC()}
		return s.h.Hub.Publish(ctx, ev)
	case relay.EventChat:
		return s.h.chat(ctx, s.id, s.name, msg.Payload)
	default:
		return errors.New("hosts may send frame, audio or chat events")
	}
}

func (s *hostSession) checkLive(ctx context.Context) error {
	if s.ended.Load() {
		return errStreamEnded
	}
	if interval := s.h.LiveCheckInterval; interval > 0 && time.Since(s.checkedAt) < interval {
		return nil
	}
	w, err := s.h.Webinars.Lookup(ctx, s.id)
	if err != nil {
		return err
	}
	s.checkedAt = time.Now()
	if !w.IsLive() {
		return errStreamEnded
	}
	return nil
}

// watch ends the session when the webinar topic carries stream_ended.
func (s *hostSession) watch(ctx context.Context, sub relay.Subscription) {
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if ev.Type == relay.EventStreamEnded {
				s.stop()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// stop tells the host the stream is over and closes the socket, which
// ends the read loop.
func (s *hostSession) stop() {
	if !s.ended.CompareAndSwap(false, true) {
		return
	}
	if ev, err := relay.NewEvent(relay.EventStreamEnded, s.id, "", nil); err == nil {
		_ = s.conn.send(ev)
	}
	s.conn.close()
}

func (h *RealtimeHandler) chat(ctx context.Context, id uuid.UUID, name string, payload json.RawMessage) error {
	var p relay.ChatPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return errors.New("invalid chat payload")
	}
	_, err := h.Webinars.PostChat(ctx, id, name, p.Message)
	return err
}

func (h *RealtimeHandler) serveViewer(w http.ResponseWriter, r *http.Request, id uuid.UUID, name string) {
	webinar, err := h.Webinars.Lookup(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if webinar.Status == model.WebinarEnded {
		h.fail(w, appErrors.Conflict("webinar %s has ended", id))
		return
	}
	history, err := h.Webinars.ListChat(r.Context(), id, historySize)
	if err != nil {
		h.fail(w, err)
		return
	}
	if name == "" {
		name = "Anonymous"
	}

	viewer, err := h.Hub.Join(context.Background(), id, name)
	if errors.Is(err, relay.ErrRoomFull) {
		h.fail(w, appErrors.Conflict("%s", err.Error()))
		return
	}
	if err != nil {
		h.fail(w, appErrors.Internal("failed to join webinar", err))
		return
	}
	defer h.Hub.Leave(viewer)

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := newConn(ws)
	defer c.close()

	log := h.Logger.With(zap.String("webinar_id", id.String()), zap.String("role", "viewer"), zap.String("viewer", name))
	log.Debug("viewer connected")

	for _, m := range history {
		ev, err := relay.NewEvent(relay.EventChat, id, m.SenderName, relay.ChatPayload{
			ID: m.ID, SenderName: m.SenderName, Message: m.Message, CreatedAt: m.CreatedAt,
		})
		if err != nil || c.send(ev) != nil {
			return
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.keepAlive(ctx)
	go func() {
		defer cancel()
		c.readLoop(func(msg inbound) {
			if msg.Type != relay.EventChat {
				_ = c.send(errorMessage{Type: "error", Error: "viewers may only send chat events"})
				return
			}
			if err := h.chat(ctx, id, name, msg.Payload); err != nil {
				_ = c.send(errorMessage{Type: "error", Error: err.Error()})
			}
		})
	}()

	for {
		var ev relay.Event
		select {
		case ev = <-viewer.Frames():
		case ev = <-viewer.Events():
		case <-viewer.Done():
			return
		case <-ctx.Done():
			return
		}
		if err := c.send(ev); err != nil {
			log.Debug("viewer write failed", zap.Error(err))
			return
		}
		if ev.Type == relay.EventStreamEnded {
			log.Debug("stream ended, closing viewer")
			return
		}
	}
}

// conn serializes writes to a websocket; gorilla allows one writer at a
// time.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func newConn(ws *websocket.Conn) *conn {
	ws.SetReadLimit(maxMessageBytes)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	return &conn{ws: ws}
}

func (c *conn) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(v)
}

func (c *conn) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.mu.Unlock()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// readLoop decodes client messages until the connection fails. Any
// message extends the read deadline.
func (c *conn) readLoop(handle func(inbound)) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = c.send(errorMessage{Type: "error", Error: "messages must be JSON events"})
			continue
		}
		handle(msg)
	}
}

func (c *conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	_ = c.ws.Close()
}
