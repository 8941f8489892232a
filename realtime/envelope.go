package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"connect-sync/domain"
	conerrors "connect-sync/errors"

	"github.com/go-playground/validator/v10"
)

// Envelope is the wire format of inbound socket frames.
type Envelope struct {
	Type     string          `json:"type" validate:"required"`
	ThreadID int             `json:"thread_id"`
	Message  *messagePayload `json:"message"`
}

type messagePayload struct {
	ID         json.Number `json:"id" validate:"required"`
	Content    string      `json:"content"`
	SenderID   string      `json:"sender_id" validate:"required"`
	SenderName string      `json:"sender_name"`
	Timestamp  string      `json:"timestamp" validate:"required"`
}

// TypingCommand is the only outbound frame the client ever writes; message
// sends always go over REST.
type TypingCommand struct {
	Type string `json:"type"`
}

var validate = validator.New()

// DecodeEnvelope parses and validates one inbound frame. Malformed frames
// yield ErrMalformedEnvelope and are dropped by the caller, never
// propagated.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", conerrors.ErrMalformedEnvelope, err)
	}
	if err := validate.Struct(env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", conerrors.ErrMalformedEnvelope, err)
	}
	if env.Type == "new_message" {
		if env.Message == nil {
			return Envelope{}, fmt.Errorf("%w: new_message without payload", conerrors.ErrMalformedEnvelope)
		}
		if err := validate.Struct(env.Message); err != nil {
			return Envelope{}, fmt.Errorf("%w: %v", conerrors.ErrMalformedEnvelope, err)
		}
	}
	return env, nil
}

// ToMessage maps a new_message payload into the domain shape, classifying
// the sender against the current user's identity.
func (e Envelope) ToMessage(identity string) (domain.Message, error) {
	if e.Message == nil {
		return domain.Message{}, conerrors.ErrMalformedEnvelope
	}
	at, err := parseTimestamp(e.Message.Timestamp)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: timestamp %q", conerrors.ErrMalformedEnvelope, e.Message.Timestamp)
	}
	return domain.Message{
		ID:         e.Message.ID.String(),
		SenderID:   e.Message.SenderID,
		SenderName: e.Message.SenderName,
		Sender:     domain.ClassifySender(e.Message.SenderID, identity),
		Text:       e.Message.Content,
		SentAt:     at,
	}, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
	} {
		if at, err := time.Parse(layout, raw); err == nil {
			return at.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported layout")
}
