// Package realtime owns the live-socket side of the sync engine: one
// websocket connection at a time, reconnect with a fixed backoff and a
// bounded retry budget, and delivery of raw inbound frames in arrival order.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"connect-sync/contract"
	conerrors "connect-sync/errors"
)

// ConnState is the connection state machine. Exactly one of the three
// variants is current at any time.
type ConnState interface {
	connState()
}

type Disconnected struct{}

type Connecting struct {
	Attempt int
}

type Connected struct{}

func (Disconnected) connState() {}
func (Connecting) connState()   {}
func (Connected) connState()    {}

// Manager drives the full lifecycle of the live socket connection. It is a
// worker: Run blocks until teardown (nil), a normal closure (nil), or the
// retry budget is exhausted (ErrRetryBudgetExhausted, which tells the
// selector to fall back to polling).
type Manager struct {
	mu         sync.Mutex
	log        *slog.Logger
	dialer     contract.SocketDialer
	frames     chan<- []byte
	retryDelay time.Duration
	maxRetries int
	state      ConnState
	conn       contract.Socket
	notify     func(ConnState)
}

func NewManager(
	log *slog.Logger,
	dialer contract.SocketDialer,
	frames chan<- []byte,
	retryDelay time.Duration,
	maxRetries int,
	notify func(ConnState),
) *Manager {
	return &Manager{
		log:        log,
		dialer:     dialer,
		frames:     frames,
		retryDelay: retryDelay,
		maxRetries: maxRetries,
		state:      Disconnected{},
		notify:     notify,
	}
}

// State returns the current connection state.
func (m *Manager) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Run executes the connect/read/reconnect loop. Socket errors are non-fatal
// and logged once per attempt; the contract is "degrade silently", never
// "break the chat".
func (m *Manager) Run(ctx context.Context) error {
	retries := 0
	for {
		m.transition(Connecting{Attempt: retries})

		conn, err := m.dialer.Dial(ctx)
		if err != nil {
			m.log.Warn("Socket open failed", "attempt", retries, "error", err)
		} else {
			m.setConn(conn)
			m.transition(Connected{})
			retries = 0

			err = m.readLoop(ctx, conn)
			m.dropConn(ctx.Err() != nil)

			if ctx.Err() != nil || errors.Is(err, conerrors.ErrNormalClosure) {
				m.transition(Disconnected{})
				return nil
			}
			m.log.Warn("Socket closed abnormally", "error", err)
		}

		if ctx.Err() != nil {
			m.transition(Disconnected{})
			return nil
		}
		if retries >= m.maxRetries {
			m.transition(Disconnected{})
			return conerrors.ErrRetryBudgetExhausted
		}
		retries++

		select {
		case <-ctx.Done():
			m.transition(Disconnected{})
			return nil
		case <-time.After(m.retryDelay):
		}
	}
}

// SendTyping writes a fire-and-forget typing signal. Failures are ignored:
// the frame is a courtesy, not part of the delivery contract.
func (m *Manager) SendTyping(ctx context.Context) {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}
	data, err := json.Marshal(TypingCommand{Type: "typing"})
	if err != nil {
		return
	}
	if err := conn.Write(ctx, data); err != nil {
		m.log.Debug("Typing signal dropped", "error", err)
	}
}

// readLoop delivers frames strictly in arrival order until the connection
// closes.
func (m *Manager) readLoop(ctx context.Context, conn contract.Socket) error {
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		select {
		case m.frames <- data:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *Manager) setConn(conn contract.Socket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conn = conn
}

// dropConn discards the current socket so a reconnect can never leave two
// sockets live.
func (m *Manager) dropConn(normal bool) {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()
	if conn != nil {
		_ = conn.Close(normal, "connection discarded")
	}
}

func (m *Manager) transition(next ConnState) {
	m.mu.Lock()
	m.state = next
	m.mu.Unlock()
	if m.notify != nil {
		m.notify(next)
	}
}
