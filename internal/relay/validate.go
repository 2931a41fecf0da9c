package relay

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	MaxFrameBytes   = 512 << 10
	MaxAudioBytes   = 256 << 10
	MaxChatRunes    = 1000
	frameDataPrefix = "data:image/"
)

var frameDataURL = regexp.MustCompile(`^data:image/(jpeg|webp|png);base64,`)

var (
	ErrUnknownEvent = errors.New("unknown event type")
	ErrTooLarge     = errors.New("payload too large")
)

// Validate checks the payload of host and viewer events before they are
// published. Presence and stream events are produced by the server and are
// accepted as is.
func Validate(ev Event) error {
	switch ev.Type {
	case EventFrame:
		var p FramePayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		return validateFrame(p.Image)
	case EventAudio:
		var p AudioPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		return validateAudio(p)
	case EventChat:
		var p ChatPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		msg := strings.TrimSpace(p.Message)
		if msg == "" {
			return errors.New("chat message is empty")
		}
		if len([]rune(msg)) > MaxChatRunes {
			return ErrTooLarge
		}
		return nil
	case EventPresence, EventStreamStarted, EventStreamEnded:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
}

func validateFrame(image string) error {
	if len(image) > MaxFrameBytes {
		return ErrTooLarge
	}
	loc := frameDataURL.FindStringIndex(image)
	if loc == nil {
		if strings.HasPrefix(image, frameDataPrefix) {
			return errors.New("frame must be jpeg, webp or png")
		}
		return errors.New("frame must be an image data URL")
	}
	if _, err := base64.StdEncoding.DecodeString(image[loc[1]:]); err != nil {
		return fmt.Errorf("frame is not valid base64: %w", err)
	}
	return nil
}

func validateAudio(p AudioPayload) error {
	if !strings.HasPrefix(p.MimeType, "audio/") {
		return fmt.Errorf("unsupported audio mime type %q", p.MimeType)
	}
	if p.Data == "" {
		return errors.New("audio chunk is empty")
	}
	if len(p.Data) > MaxAudioBytes {
		return ErrTooLarge
	}
	if _, err := base64.StdEncoding.DecodeString(p.Data); err != nil {
		return fmt.Errorf("audio is not valid base64: %w", err)
	}
	return nil
}
