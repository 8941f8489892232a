package domain

import "time"

// PendingSendRegistry maps in-flight message text to its send instant. It
// exists only to bound the self-echo matching window: entries are pruned
// once matched or once older than the staleness threshold.
type PendingSendRegistry struct {
	ttl     time.Duration
	entries map[string]time.Time
}

func NewPendingSendRegistry(ttl time.Duration) *PendingSendRegistry {
	return &PendingSendRegistry{
		ttl:     ttl,
		entries: make(map[string]time.Time),
	}
}

// Record registers a send attempt for the given text.
func (r *PendingSendRegistry) Record(text string, at time.Time) {
	r.entries[text] = at
}

// SentAt returns the recorded send instant for the text, if any.
func (r *PendingSendRegistry) SentAt(text string) (time.Time, bool) {
	at, ok := r.entries[text]
	return at, ok
}

// Forget drops the entry for the text, typically after a successful match
// or a rolled-back send.
func (r *PendingSendRegistry) Forget(text string) {
	delete(r.entries, text)
}

// Prune drops every entry older than the staleness threshold.
func (r *PendingSendRegistry) Prune(now time.Time) {
	for text, at := range r.entries {
		if now.Sub(at) > r.ttl {
			delete(r.entries, text)
		}
	}
}

func (r *PendingSendRegistry) Len() int {
	return len(r.entries)
}
