// Package event defines the engine events consumed by UI sinks: message
// arrivals, timeline replacements, send failures, and transport status.
package event

import (
	"connect-sync/domain"
)

// SyncEvent is implemented by every event the engine emits towards sinks.
type SyncEvent interface {
	ThreadID() domain.ThreadID
}

// MessageAppended is emitted when a new entry lands at the end of the
// timeline, whether a local optimistic send or an inbound peer message.
type MessageAppended struct {
	Thread  domain.ThreadID
	Message domain.Message
}

func (e MessageAppended) ThreadID() domain.ThreadID { return e.Thread }

// MessageConfirmed is emitted when an optimistic entry is reconciled in
// place with its server-confirmed counterpart.
type MessageConfirmed struct {
	Thread        domain.ThreadID
	ProvisionalID string
	CanonicalID   string
}

func (e MessageConfirmed) ThreadID() domain.ThreadID { return e.Thread }

// TimelineReplaced is emitted after a history load or a polling refetch
// swapped the whole conversation.
type TimelineReplaced struct {
	Thread   domain.ThreadID
	Messages []domain.Message
}

func (e TimelineReplaced) ThreadID() domain.ThreadID { return e.Thread }

// SendFailed is emitted when the outbound REST call failed and the
// optimistic entry was rolled back. Text carries the attempted input so the
// UI can restore it for a manual resend.
type SendFailed struct {
	Thread domain.ThreadID
	Text   string
	Reason error
}

func (e SendFailed) ThreadID() domain.ThreadID { return e.Thread }

// TransportStatus is the coarse connection status surfaced to the UI. It
// never blocks sending.
type TransportStatus string

const (
	StatusConnecting TransportStatus = "connecting"
	StatusLive       TransportStatus = "live"
	StatusSynced     TransportStatus = "synced"
	StatusOffline    TransportStatus = "offline"
)

// TransportStatusChanged is emitted on every observable transport
// transition.
type TransportStatusChanged struct {
	Thread domain.ThreadID
	Status TransportStatus
}

func (e TransportStatusChanged) ThreadID() domain.ThreadID { return e.Thread }
