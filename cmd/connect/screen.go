package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"connect-sync/domain"
	"connect-sync/domain/event"

	"github.com/gookit/color"
)

// screen renders engine events as a terminal chat view. It implements
// contract.EventSink.
type screen struct {
	mu     sync.Mutex
	out    io.Writer
	thread domain.Thread
}

func newScreen(out io.Writer, thread domain.Thread) *screen {
	return &screen{out: out, thread: thread}
}

func (s *screen) Banner(thread domain.Thread) {
	s.mu.Lock()
	defer s.mu.Unlock()

	header := fmt.Sprintf("  ====== Chat with %s ======", threadLabel(thread))
	fmt.Fprintln(s.out, color.New(color.BgBlack, color.FgGreen).Render(header))
	if thread.UnreadCount > 0 {
		fmt.Fprintln(s.out, color.New(color.FgYellow).Render(
			fmt.Sprintf("  %d unread message(s)", thread.UnreadCount)))
	}
	fmt.Fprintln(s.out, "  Type a message and press Enter. /quit to leave.")
}

func (s *screen) Consume(_ context.Context, e event.SyncEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch evt := e.(type) {
	case event.MessageAppended:
		s.renderMessage(evt.Message)
	case event.MessageConfirmed:
		// Identity upgrade only; nothing visible changes.
	case event.TimelineReplaced:
		for _, msg := range evt.Messages {
			s.renderMessage(msg)
		}
	case event.SendFailed:
		fmt.Fprintln(s.out, color.New(color.FgRed).Render(
			fmt.Sprintf("  ✗ Could not send %q — type it again to retry", evt.Text)))
	case event.TransportStatusChanged:
		fmt.Fprintln(s.out, color.New(color.FgYellow).Render(
			fmt.Sprintf("  [%s]", statusLabel(evt.Status))))
	}
	return nil
}

func (s *screen) Warnf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, color.New(color.FgRed).Render("  "+fmt.Sprintf(format, args...)))
}

func (s *screen) renderMessage(msg domain.Message) {
	stamp := msg.SentAt.Local().Format(time.TimeOnly)
	if msg.Sender == domain.SenderUser {
		fmt.Fprintf(s.out, "%s %s\n",
			color.New(color.FgDarkGray).Render(stamp),
			color.New(color.FgGreen).Render("me: "+msg.Text))
		return
	}
	name := msg.SenderName
	if name == "" {
		name = threadLabel(s.thread)
	}
	fmt.Fprintf(s.out, "%s %s\n",
		color.New(color.FgDarkGray).Render(stamp),
		color.New(color.FgCyan).Render(name+": "+msg.Text))
}

func statusLabel(status event.TransportStatus) string {
	switch status {
	case event.StatusLive:
		return "Live"
	case event.StatusSynced:
		return "Synced"
	case event.StatusConnecting:
		return "Connecting…"
	default:
		return "Offline"
	}
}
