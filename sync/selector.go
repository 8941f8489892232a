package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"connect-sync/contract"
	"connect-sync/domain"
	"connect-sync/domain/event"
	conerrors "connect-sync/errors"
	"connect-sync/realtime"
)

const queueCapacity = 16

// Config carries the selector's timing knobs. The windows are deliberate
// tolerances for network latency, not correctness boundaries.
type Config struct {
	GraceDelay           time.Duration
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	PollInterval         time.Duration
}

// Selector decides whether the conversation is fed by the live socket or by
// the polling fallback, and owns the single event loop through which every
// conversation mutation flows: inbound frames, local sends, send results,
// and poll snapshots. Serializing them here preserves the "handlers are
// atomic" guarantee without locks on the conversation itself.
//
// Exactly one of {socket, poller} is active at any time; outbound sends go
// through REST regardless of mode.
type Selector struct {
	log      *slog.Logger
	backend  contract.Backend
	manager  *realtime.Manager
	poller   *Poller
	rec      *Reconciler
	sink     contract.EventSink
	identity string
	cfg      Config

	frames      chan []byte
	states      chan realtime.ConnState
	sendReqs    chan string
	pollResults chan []domain.Message

	mu       sync.Mutex
	status   event.TransportStatus
	fallback bool
}

func NewSelector(
	log *slog.Logger,
	backend contract.Backend,
	dialer contract.SocketDialer,
	rec *Reconciler,
	sink contract.EventSink,
	identity string,
	cfg Config,
) *Selector {
	s := &Selector{
		log:         log,
		backend:     backend,
		rec:         rec,
		sink:        sink,
		identity:    identity,
		cfg:         cfg,
		frames:      make(chan []byte, queueCapacity),
		states:      make(chan realtime.ConnState, queueCapacity),
		sendReqs:    make(chan string, queueCapacity),
		pollResults: make(chan []domain.Message, 1),
		status:      event.StatusOffline,
	}
	s.manager = realtime.NewManager(
		log, dialer, s.frames,
		cfg.ReconnectDelay, cfg.MaxReconnectAttempts,
		s.observeState,
	)
	s.poller = NewPoller(log, backend, cfg.PollInterval, s.pollResults)
	return s
}

// Send queues one outbound message. The optimistic append happens on the
// event loop before the network request is dispatched, so the sender sees
// their own message immediately.
func (s *Selector) Send(text string) error {
	select {
	case s.sendReqs <- text:
		return nil
	default:
		return fmt.Errorf("send queue full")
	}
}

// Typing forwards a fire-and-forget typing signal over the socket, if one
// is live.
func (s *Selector) Typing(ctx context.Context) {
	s.manager.SendTyping(ctx)
}

// Status returns the coarse transport status shown to the user.
func (s *Selector) Status() event.TransportStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

type sendResult struct {
	optimistic domain.Message
	confirmed  domain.Message
	err        error
}

// Run seeds the conversation from history, starts the live-socket path
// after the grace delay, and processes the event loop until the context is
// cancelled. Cancelling tears everything down: the socket closes through
// the normal-closure path and the poller stops.
func (s *Selector) Run(ctx context.Context) error {
	s.seedHistory(ctx)

	var managerDone chan error
	var pollCancel context.CancelFunc
	defer func() {
		if pollCancel != nil {
			pollCancel()
		}
	}()

	if s.identity != "" {
		s.setStatus(ctx, event.StatusConnecting)
		// Deliberate pause so a slow connect does not flash an error
		// during initial render.
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.cfg.GraceDelay):
		}
		managerDone = make(chan error, 1)
		go func() { managerDone <- s.manager.Run(ctx) }()
	} else {
		pollCancel = s.startPolling(ctx)
		s.setStatus(ctx, event.StatusSynced)
	}

	sendResults := make(chan sendResult, queueCapacity)
	inflight := 0

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-managerDone:
			managerDone = nil
			if !errors.Is(err, conerrors.ErrRetryBudgetExhausted) {
				// Normal closure: the screen is being torn down.
				return nil
			}
			s.log.Info("Live socket unavailable, switching to polling fallback")
			pollCancel = s.startPolling(ctx)
			s.setStatus(ctx, event.StatusSynced)

		case st := <-s.states:
			s.publishState(ctx, st)

		case data := <-s.frames:
			s.handleFrame(ctx, data)

		case text := <-s.sendReqs:
			msg := s.rec.AppendLocal(text)
			s.emit(ctx, event.MessageAppended{Thread: s.rec.Thread(), Message: msg})
			inflight++
			go func(text string, optimistic domain.Message) {
				confirmed, err := s.backend.SendMessage(ctx, text)
				select {
				case sendResults <- sendResult{optimistic: optimistic, confirmed: confirmed, err: err}:
				case <-ctx.Done():
				}
			}(text, msg)

		case res := <-sendResults:
			inflight--
			if res.err != nil {
				s.rec.RollbackLocal(res.optimistic)
				s.emit(ctx, event.SendFailed{
					Thread: s.rec.Thread(),
					Text:   res.optimistic.Text,
					Reason: res.err,
				})
				continue
			}
			s.absorb(ctx, res.confirmed)

		case snapshot := <-s.pollResults:
			if inflight > 0 {
				// A wholesale replace would discard the optimistic entry
				// before its send resolves; skip this tick.
				continue
			}
			if sameTimeline(s.rec.Snapshot(), snapshot) {
				// Idle tick: the sink would re-render an identical
				// transcript.
				continue
			}
			s.rec.Replace(snapshot)
			s.emit(ctx, event.TimelineReplaced{Thread: s.rec.Thread(), Messages: snapshot})
		}
	}
}

// seedHistory loads the authoritative past-message list. On failure the
// chat starts empty but usable; the error is never surfaced.
func (s *Selector) seedHistory(ctx context.Context) {
	messages, err := s.backend.FetchHistory(ctx, nil)
	if err != nil {
		s.log.Warn("History load failed, starting with empty conversation", "error", err)
		messages = nil
	}
	s.rec.Replace(messages)
	s.emit(ctx, event.TimelineReplaced{Thread: s.rec.Thread(), Messages: messages})
}

func (s *Selector) handleFrame(ctx context.Context, data []byte) {
	env, err := realtime.DecodeEnvelope(data)
	if err != nil {
		s.log.Warn("Dropping malformed frame", "error", err)
		return
	}
	if env.Type != "new_message" {
		return
	}
	msg, err := env.ToMessage(s.identity)
	if err != nil {
		s.log.Warn("Dropping malformed frame", "error", err)
		return
	}
	s.absorb(ctx, msg)
}

func (s *Selector) absorb(ctx context.Context, msg domain.Message) {
	outcome, provisionalID := s.rec.AbsorbInbound(msg)
	switch outcome {
	case OutcomeReconciled:
		s.emit(ctx, event.MessageConfirmed{
			Thread:        s.rec.Thread(),
			ProvisionalID: provisionalID,
			CanonicalID:   msg.ID,
		})
	case OutcomeAppended:
		s.emit(ctx, event.MessageAppended{Thread: s.rec.Thread(), Message: msg})
	case OutcomeDuplicate:
		s.log.Debug("Duplicate delivery discarded", "id", msg.ID)
	}
}

// sameTimeline reports whether the polled snapshot carries exactly the ids
// already on the timeline, in the same order.
func sameTimeline(current, snapshot []domain.Message) bool {
	if len(current) != len(snapshot) {
		return false
	}
	for i := range current {
		if current[i].ID != snapshot[i].ID {
			return false
		}
	}
	return true
}

func (s *Selector) startPolling(ctx context.Context) context.CancelFunc {
	pollCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.fallback = true
	s.mu.Unlock()
	go func() { _ = s.poller.Run(pollCtx) }()
	return cancel
}

// observeState runs on the manager's goroutine; transitions are funneled
// back onto the event loop.
func (s *Selector) observeState(st realtime.ConnState) {
	select {
	case s.states <- st:
	default:
	}
}

func (s *Selector) publishState(ctx context.Context, st realtime.ConnState) {
	switch st.(type) {
	case realtime.Connected:
		s.setStatus(ctx, event.StatusLive)
	case realtime.Connecting:
		s.setStatus(ctx, event.StatusConnecting)
	case realtime.Disconnected:
		s.mu.Lock()
		fallback := s.fallback
		s.mu.Unlock()
		if fallback {
			s.setStatus(ctx, event.StatusSynced)
		} else {
			s.setStatus(ctx, event.StatusOffline)
		}
	}
}

func (s *Selector) setStatus(ctx context.Context, status event.TransportStatus) {
	s.mu.Lock()
	if s.status == status {
		s.mu.Unlock()
		return
	}
	s.status = status
	s.mu.Unlock()
	s.emit(ctx, event.TransportStatusChanged{Thread: s.rec.Thread(), Status: status})
}

func (s *Selector) emit(ctx context.Context, e event.SyncEvent) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Consume(ctx, e); err != nil {
		s.log.Warn("Sink rejected event", "error", err)
	}
}
