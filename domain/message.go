// Package domain contains the core concepts of the chat synchronization
// engine: messages, the conversation timeline, and the pending-send registry.
// Types here hold no I/O and no locking; ownership rules are enforced by the
// sync engine that drives them.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ThreadID identifies a chat thread on the backend.
type ThreadID int

// Sender classifies a message relative to the current user.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// localIDPrefix marks provisional identifiers assigned to optimistic
// messages before the server confirms them.
const localIDPrefix = "local-"

// Message is a single chat utterance. ID is provisional until the server
// echo upgrades it to the canonical server-assigned value.
type Message struct {
	ID         string
	SenderID   string
	SenderName string
	Sender     Sender
	Text       string
	SentAt     time.Time
}

// NewLocalMessage builds an optimistic message with a provisional id.
func NewLocalMessage(senderID, text string, at time.Time) Message {
	return Message{
		ID:       localIDPrefix + uuid.NewString(),
		SenderID: senderID,
		Sender:   SenderUser,
		Text:     text,
		SentAt:   at,
	}
}

// Confirmed reports whether the message carries a canonical server id.
func (m Message) Confirmed() bool {
	return !strings.HasPrefix(m.ID, localIDPrefix)
}

// ClassifySender derives the display sender by comparing the wire sender id
// against the current user's identity.
func ClassifySender(senderID, identity string) Sender {
	if senderID == identity {
		return SenderUser
	}
	return SenderAssistant
}
