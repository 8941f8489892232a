package internal

import "time"

// SystemClock is the production contract.Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
