package e2e

import (
	"context"
	"time"

	"connect-sync/auth"
	"connect-sync/realtime"
	"connect-sync/rest"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

// BaseLiveSuite drives a real backend over REST and websocket. Tests skip
// when CONNECT_ADDR is not provided, so the suite is safe in CI.
type BaseLiveSuite struct {
	suite.Suite
	Config   Config
	Identity string
	Client   *rest.Client
	Dialer   *realtime.Dialer
}

func (s *BaseLiveSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.ServerAddr == "" {
		s.T().Skip("CONNECT_ADDR not set, skipping live backend suite")
	}

	s.Identity, err = auth.IdentityFromToken(s.Config.AuthToken)
	s.Require().NoError(err, "CONNECT_TOKEN must carry a user identity")

	log := logs.GetLoggerFromString("warn")
	s.Client = rest.NewClient(
		s.Config.ServerAddr, s.Config.AuthToken, s.Identity,
		10*time.Second, 50, log,
	)
	s.Dialer = realtime.NewDialer(s.Config.ServerAddr, s.Config.AuthToken)
}

// Step prints a colorized header so multi-step scenarios read well in logs.
func (s *BaseLiveSuite) Step(name string, fn func(ctx context.Context)) {
	header := "  ====== " + name + " ======"
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	fn(ctx)
}
