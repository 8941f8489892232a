package domain

// Conversation is the ordered, deduplicated message timeline of one thread.
// It is owned exclusively by the chat screen instance that created it and is
// only mutated from the engine's event loop.
type Conversation struct {
	Thread   ThreadID
	messages []Message
}

func NewConversation(thread ThreadID) *Conversation {
	return &Conversation{Thread: thread}
}

func (c *Conversation) Len() int {
	return len(c.messages)
}

// Append adds a message at the end of the timeline.
func (c *Conversation) Append(m Message) {
	c.messages = append(c.messages, m)
}

// ContainsID reports whether a message with the given id is already present.
func (c *Conversation) ContainsID(id string) bool {
	for _, m := range c.messages {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Promote upgrades the message at index i to the canonical id while keeping
// its slot, so the timeline never visibly reorders around the user's sends.
func (c *Conversation) Promote(i int, canonicalID string) {
	if i < 0 || i >= len(c.messages) {
		return
	}
	c.messages[i].ID = canonicalID
}

// Remove deletes the message with the given id, if present. Used to roll
// back an optimistic entry after a failed send.
func (c *Conversation) Remove(id string) bool {
	for i, m := range c.messages {
		if m.ID == id {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			return true
		}
	}
	return false
}

// Replace swaps the whole timeline, e.g. after a history (re)load.
func (c *Conversation) Replace(messages []Message) {
	c.messages = append(c.messages[:0:0], messages...)
}

// Messages returns a copy of the timeline in display order.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}
