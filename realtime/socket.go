package realtime

import (
	"context"
	"fmt"
	"strings"

	"connect-sync/contract"
	conerrors "connect-sync/errors"

	"nhooyr.io/websocket"
)

// Dialer opens websocket connections against the backend's per-user chat
// endpoint.
type Dialer struct {
	url string
}

// NewDialer derives the socket URL from the REST base URL and the bearer
// token, the same way the mobile client builds it.
func NewDialer(baseURL, token string) *Dialer {
	wsURL := strings.Replace(baseURL, "https://", "wss://", 1)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	return &Dialer{url: wsURL + "/connect/socket?token=" + token}
}

func (d *Dialer) Dial(ctx context.Context) (contract.Socket, error) {
	conn, _, err := websocket.Dial(ctx, d.url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return &wsConn{conn: conn}, nil
}

// wsConn adapts a websocket connection to the contract.Socket interface so
// the manager can be driven by fakes in tests.
type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
			return nil, fmt.Errorf("%w: %v", conerrors.ErrNormalClosure, err)
		}
		return nil, err
	}
	return data, nil
}

func (c *wsConn) Write(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *wsConn) Close(normal bool, reason string) error {
	status := websocket.StatusGoingAway
	if normal {
		status = websocket.StatusNormalClosure
	}
	return c.conn.Close(status, reason)
}
