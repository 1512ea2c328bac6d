package tellevo

import (
	"context"
	"time"

	"github.com/coder/websocket"

	"github.com/tellevo/tellevo-sdk-go/tellevo/internal"
)

const (
	// StreamPath is the backend route serving the ventas feed.
	StreamPath = "/ws/ventas"

	frameTypePing = "ping"

	// CloseNormal is the only closure code that suppresses reconnection.
	CloseNormal = websocket.StatusNormalClosure
)

// PingFrame is the keepalive the client sends while connected.
type PingFrame struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

func newPingFrame(now time.Time) PingFrame {
	return PingFrame{Type: frameTypePing, Timestamp: now.UnixMilli()}
}

// Transport is one open socket to the backend.
type Transport interface {
	// Read blocks for the next frame. A closure surfaces as an error carrying
	// a websocket close status.
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, v any) error
	Close(code websocket.StatusCode, reason string) error
}

// Dialer opens transports.
type Dialer interface {
	Dial(ctx context.Context, url string) (Transport, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, url string) (Transport, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context, url string) (Transport, error) {
	return f(ctx, url)
}

type websocketDialer struct {
	writeTimeout time.Duration
}

func (d websocketDialer) Dial(ctx context.Context, url string) (Transport, error) {
	conn, err := internal.Dial(ctx, url, 0, d.writeTimeout)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
