package errors

import "fmt"

var (
	// ErrNormalClosure marks an intentional socket shutdown; it is terminal
	// and must never trigger a reconnect.
	ErrNormalClosure = fmt.Errorf("socket closed normally")

	// ErrRetryBudgetExhausted signals the transport selector to switch to
	// polling fallback.
	ErrRetryBudgetExhausted = fmt.Errorf("socket retry budget exhausted")

	ErrMalformedEnvelope = fmt.Errorf("malformed socket envelope")
	ErrSendRejected      = fmt.Errorf("message send rejected by backend")
	ErrNoIdentity        = fmt.Errorf("no user identity in token")
	ErrWorkerPanic       = fmt.Errorf("worker panic")
)
