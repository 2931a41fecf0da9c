package relay

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventFrame         EventType = "frame"
	EventAudio         EventType = "audio"
	EventChat          EventType = "chat"
	EventPresence      EventType = "presence"
	EventStreamStarted EventType = "stream_started"
	EventStreamEnded   EventType = "stream_ended"
)

// Event is the envelope carried on a webinar topic.
type Event struct {
	Type      EventType       `json:"type"`
	WebinarID uuid.UUID       `json:"webinar_id"`
	Sender    string          `json:"sender,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	SentAt    time.Time       `json:"sent_at"`
}

// FramePayload carries one encoded video frame as an image data URL.
type FramePayload struct {
	Image string `json:"image"`
}

// AudioPayload carries one base64 encoded recorder chunk.
type AudioPayload struct {
	Data     string `json:"data"`
	MimeType string `json:"mime_type"`
}

type ChatPayload struct {
	ID         uuid.UUID `json:"id"`
	SenderName string    `json:"sender_name"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

type PresencePayload struct {
	Viewers int `json:"viewers"`
}

// Topic is the pub/sub channel name of a webinar.
func Topic(webinarID uuid.UUID) string {
	return "webinar:" + webinarID.String()
}

// NewEvent marshals payload into an envelope stamped with the current time.
// A nil payload leaves Payload empty.
func NewEvent(t EventType, webinarID uuid.UUID, sender string, payload any) (Event, error) {
	ev := Event{Type: t, WebinarID: webinarID, Sender: sender, SentAt: time.Now().UTC()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("failed to marshal %s payload: %w", t, err)
		}
		ev.Payload = data
	}
	return ev, nil
}

// Decode unmarshals the payload into dst.
func (e Event) Decode(dst any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s event has no payload", e.Type)
	}
	return json.Unmarshal(e.Payload, dst)
}
