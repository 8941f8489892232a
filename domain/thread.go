package domain

import "time"

// Thread is the per-user chat thread resolved (get-or-create) on the
// backend before any history load or send.
type Thread struct {
	ID              ThreadID
	UserID          string
	RecipientName   string
	RecipientAvatar string
	IsOnline        bool
	UnreadCount     int
	CreatedAt       time.Time
}
