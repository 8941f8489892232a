package e2e

import (
	"context"
	"testing"
	"time"

	"connect-sync/domain"
	"connect-sync/realtime"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type testLiveChatSuite struct {
	BaseLiveSuite
}

func TestLiveChatSuite(t *testing.T) {
	suite.Run(t, &testLiveChatSuite{})
}

func (s *testLiveChatSuite) TestFullChatFlow() {
	// A unique marker makes the sent message recognizable in history and
	// on the socket even when the thread already has traffic.
	marker := "e2e-" + uuid.New().String()

	var thread domain.Thread

	s.Run("Step 0: Resolve the support thread", func() {
		s.Step("Resolving thread", func(ctx context.Context) {
			var err error
			thread, err = s.Client.ResolveThread(ctx)
			s.Require().NoError(err)
			s.Require().NotZero(thread.ID, "Backend returned a thread without an id")
		})
	})

	s.Run("Step 1: History loads in chronological order", func() {
		s.Step("Fetching first history page", func(ctx context.Context) {
			page, err := s.Client.FetchHistory(ctx, nil)
			s.Require().NoError(err)
			for i := 1; i < len(page); i++ {
				s.Require().False(page[i].SentAt.Before(page[i-1].SentAt),
					"History page is not sorted oldest first")
			}
		})
	})

	s.Run("Step 2: Send over REST and observe the socket echo", func() {
		s.Step("Dialing socket and sending", func(ctx context.Context) {
			socket, err := s.Dialer.Dial(ctx)
			s.Require().NoError(err, "Failed to open the realtime socket")
			defer socket.Close(true, "scenario finished")

			sent, err := s.Client.SendMessage(ctx, marker)
			s.Require().NoError(err)
			s.Require().True(sent.Confirmed(), "Backend did not assign a canonical id")
			s.Require().Equal(domain.SenderUser, sent.Sender)

			// The backend broadcasts every persisted message, including
			// the sender's own, as a new_message frame.
			deadline := time.Now().Add(15 * time.Second)
			for time.Now().Before(deadline) {
				frame, err := socket.Read(ctx)
				s.Require().NoError(err)

				envelope, err := realtime.DecodeEnvelope(frame)
				if err != nil {
					continue
				}
				if envelope.Type != "new_message" {
					continue
				}
				echo, err := envelope.ToMessage(s.Identity)
				s.Require().NoError(err)
				if echo.Text == marker {
					s.Require().Equal(sent.ID, echo.ID, "Socket echo carries a different id than the REST response")
					return
				}
			}
			s.FailNow("Self echo never arrived on the socket")
		})
	})

	s.Run("Step 3: The sent message is part of history", func() {
		s.Step("Refetching history", func(ctx context.Context) {
			s.Eventually(func() bool {
				page, err := s.Client.FetchHistory(ctx, nil)
				if err != nil {
					return false
				}
				return lo.ContainsBy(page, func(msg domain.Message) bool {
					return msg.Text == marker
				})
			}, 10*time.Second, 1*time.Second, "Sent message never showed up in history")
		})
	})
}
