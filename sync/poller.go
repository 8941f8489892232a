package sync

import (
	"context"
	"log/slog"
	"time"

	"connect-sync/contract"
	"connect-sync/domain"
)

// Poller is the eventual-consistency fallback: a fixed-interval refetch of
// the full conversation history, used as a substitute real-time mechanism
// once the socket retry budget is exhausted.
type Poller struct {
	log      *slog.Logger
	backend  contract.Backend
	interval time.Duration
	results  chan<- []domain.Message
}

func NewPoller(
	log *slog.Logger,
	backend contract.Backend,
	interval time.Duration,
	results chan<- []domain.Message,
) *Poller {
	return &Poller{
		log:      log,
		backend:  backend,
		interval: interval,
		results:  results,
	}
}

// Run refetches history on every tick until the context is cancelled.
// Fetch failures are logged and skipped: the previous snapshot simply stays
// on screen until the next successful poll.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			messages, err := p.backend.FetchHistory(ctx, nil)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				p.log.Warn("Polling refetch failed", "error", err)
				continue
			}
			select {
			case p.results <- messages:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
