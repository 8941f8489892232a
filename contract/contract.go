//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"connect-sync/domain"
	"connect-sync/domain/event"
	"context"
	"reflect"
	"time"
)

// Backend is the REST surface the engine depends on. The real backend is an
// opaque collaborator; history fetch and sends always go through here
// regardless of transport mode.
type Backend interface {
	ResolveThread(ctx context.Context) (domain.Thread, error)
	FetchHistory(ctx context.Context, before *time.Time) ([]domain.Message, error)
	SendMessage(ctx context.Context, text string) (domain.Message, error)
}

// Socket is one live transport connection. Read blocks until the next frame
// or a close; an intentional teardown surfaces as errors.ErrNormalClosure.
type Socket interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close(normal bool, reason string) error
}

// SocketDialer opens a live socket connection for the current user.
type SocketDialer interface {
	Dial(ctx context.Context) (Socket, error)
}

// EventSink receives engine events, typically for UI rendering.
type EventSink interface {
	Consume(ctx context.Context, e event.SyncEvent) error
}

// Clock abstracts time so the reconciliation windows can be unit tested
// without real timers.
type Clock interface {
	Now() time.Time
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// ISupervisor runs workers under panic isolation.
type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding the need for manual naming in the Worker
// interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
