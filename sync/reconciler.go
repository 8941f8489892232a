// Package sync is the heart of the chat engine: it merges locally-originated
// optimistic sends with server-confirmed messages arriving over the
// transport into a single ordered, deduplicated conversation, and it decides
// which transport (live socket or polling fallback) feeds that merge.
package sync

import (
	"time"

	"connect-sync/contract"
	"connect-sync/domain"
)

// Outcome describes what absorbing one inbound message did to the timeline.
type Outcome int

const (
	// OutcomeDuplicate means the canonical id was already present and the
	// event was discarded.
	OutcomeDuplicate Outcome = iota
	// OutcomeReconciled means an optimistic entry was upgraded in place to
	// the canonical id.
	OutcomeReconciled
	// OutcomeAppended means the message was new and landed at the end of
	// the timeline.
	OutcomeAppended
)

// Reconciler maintains the canonical conversation from two concurrent input
// streams: local optimistic sends and inbound transport events. It holds no
// I/O and is only ever called from the selector's event loop, which makes
// each operation atomic with respect to the others.
type Reconciler struct {
	identity   string
	echoWindow time.Duration
	clock      contract.Clock
	conv       *domain.Conversation
	pending    *domain.PendingSendRegistry
}

func NewReconciler(
	identity string,
	thread domain.ThreadID,
	echoWindow, pendingTTL time.Duration,
	clock contract.Clock,
) *Reconciler {
	return &Reconciler{
		identity:   identity,
		echoWindow: echoWindow,
		clock:      clock,
		conv:       domain.NewConversation(thread),
		pending:    domain.NewPendingSendRegistry(pendingTTL),
	}
}

// AppendLocal constructs the optimistic message, appends it immediately and
// records the send in the pending registry. The caller dispatches the
// network send afterwards; the sender always sees their own message before
// any round-trip.
func (r *Reconciler) AppendLocal(text string) domain.Message {
	now := r.clock.Now()
	msg := domain.NewLocalMessage(r.identity, text, now)
	r.conv.Append(msg)
	r.pending.Record(text, now)
	return msg
}

// RollbackLocal removes a previously appended optimistic entry after a
// failed send, leaving the conversation exactly as it was before
// AppendLocal.
func (r *Reconciler) RollbackLocal(msg domain.Message) {
	r.conv.Remove(msg.ID)
	r.pending.Forget(msg.Text)
}

// AbsorbInbound merges one server-confirmed message into the timeline.
// The returned matchedID is the provisional id that was upgraded when the
// outcome is OutcomeReconciled. Self-echo matching requires a live entry in
// the pending registry: once the entry has gone stale and been pruned, a
// late echo is treated as a new message no matter what its timestamp says.
func (r *Reconciler) AbsorbInbound(inbound domain.Message) (Outcome, string) {
	now := r.clock.Now()
	r.pending.Prune(now)
	_, echoPending := r.pending.SentAt(inbound.Text)

	timeline, outcome, matchedID := reconcile(r.conv.Messages(), inbound, r.identity, r.echoWindow, echoPending)
	r.conv.Replace(timeline)

	if outcome == OutcomeReconciled {
		r.pending.Forget(inbound.Text)
	}
	return outcome, matchedID
}

// Replace swaps the whole timeline, e.g. after a history load or a polling
// refetch.
func (r *Reconciler) Replace(messages []domain.Message) {
	r.conv.Replace(messages)
}

// Snapshot returns the current timeline in display order.
func (r *Reconciler) Snapshot() []domain.Message {
	return r.conv.Messages()
}

func (r *Reconciler) Thread() domain.ThreadID {
	return r.conv.Thread
}

// reconcile applies one inbound server message to the timeline. It is pure
// so the matching windows can be unit tested without real timers.
//
// Step 1: exact-id dedup — a canonical id already present means a duplicate
// delivery; the event is discarded.
// Step 2: self-echo reconciliation — an inbound message from the current
// user matching an unconfirmed optimistic entry (same text, timestamps
// within the echo window, and a live pending-registry entry for the text)
// upgrades that entry's id in place, preserving its slot so the timeline
// never visibly reorders around the user's own sends.
// Step 3: anything else is appended in arrival order.
func reconcile(
	timeline []domain.Message,
	inbound domain.Message,
	identity string,
	window time.Duration,
	echoPending bool,
) ([]domain.Message, Outcome, string) {
	for _, m := range timeline {
		if m.ID == inbound.ID {
			return timeline, OutcomeDuplicate, ""
		}
	}

	if echoPending && inbound.SenderID == identity {
		for i, m := range timeline {
			if m.Confirmed() || m.Sender != domain.SenderUser {
				continue
			}
			if m.Text != inbound.Text {
				continue
			}
			if absDelta(m.SentAt, inbound.SentAt) > window {
				continue
			}
			provisionalID := m.ID
			out := append(timeline[:0:0], timeline...)
			out[i].ID = inbound.ID
			return out, OutcomeReconciled, provisionalID
		}
	}

	inbound.Sender = domain.ClassifySender(inbound.SenderID, identity)
	return append(append(timeline[:0:0], timeline...), inbound), OutcomeAppended, ""
}

func absDelta(a, b time.Time) time.Duration {
	if a.After(b) {
		return a.Sub(b)
	}
	return b.Sub(a)
}
